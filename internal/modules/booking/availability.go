package booking

import (
	"context"

	"fieldbooking/internal/domain"
)

type slotSource interface {
	ListActiveSlots(ctx context.Context, subFieldID int64, date string, excludeBookingID int64) ([]domain.BookingTimeSlot, error)
}

type BusySlot struct {
	Start domain.Clock `json:"start"`
	End   domain.Clock `json:"end"`
}

type AvailabilityChecker struct{}

// IsAvailable reports whether [start, end) is free on (subFieldID, date), ignoring the slots of
// excludeBookingID. Writers must call it with the transaction handle while holding the slot lock.
func (AvailabilityChecker) IsAvailable(ctx context.Context, src slotSource, subFieldID int64, date string, start, end domain.Clock, excludeBookingID int64) (bool, error) {
	slots, err := src.ListActiveSlots(ctx, subFieldID, date, excludeBookingID)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if excludeBookingID != 0 && s.BookingID == excludeBookingID {
			continue
		}
		if s.Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

// BusySlots lists the occupied intervals of (subFieldID, date), merged where they touch.
func (AvailabilityChecker) BusySlots(ctx context.Context, src slotSource, subFieldID int64, date string) ([]BusySlot, error) {
	slots, err := src.ListActiveSlots(ctx, subFieldID, date, 0)
	if err != nil {
		return nil, err
	}
	out := make([]BusySlot, 0, len(slots))
	for _, s := range slots {
		if n := len(out); n > 0 && s.StartTime <= out[n-1].End {
			if s.EndTime > out[n-1].End {
				out[n-1].End = s.EndTime
			}
			continue
		}
		out = append(out, BusySlot{Start: s.StartTime, End: s.EndTime})
	}
	return out, nil
}
