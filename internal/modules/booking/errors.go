package booking

import (
	"fmt"

	"fieldbooking/internal/domain"
)

func invalid(field, msg string) error {
	return domain.ValidationError{Field: field, Msg: msg}
}

func slotConflict(subFieldID int64, date string, start, end domain.Clock) error {
	return domain.ConflictError{
		Resource: "slot",
		Msg:      fmt.Sprintf("sub-field %d is already booked on %s between %s and %s", subFieldID, date, start, end),
		Err:      domain.ErrSlotUnavailable,
	}
}

func transitionConflict(action string, status domain.BookingStatus) error {
	return domain.ConflictError{
		Resource: "booking",
		Msg:      fmt.Sprintf("cannot %s a %s booking", action, status),
		Err:      domain.ErrInvalidTransition,
	}
}

func alreadyCancelled() error {
	return domain.ConflictError{Resource: "booking", Err: domain.ErrAlreadyCancelled}
}
