package domain

import (
	"errors"
	"fmt"
)

// Sentinel reasons wrapped inside the error kinds below.
var (
	ErrSlotUnavailable    = errors.New("slot is no longer available")
	ErrAlreadyCancelled   = errors.New("booking already cancelled")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrBookingDatePassed  = errors.New("booking date has passed")
	ErrPromotionExhausted = errors.New("promotion usage limit reached")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrAmountMismatch     = errors.New("amount mismatch")
)

// ValidationError is returned when the caller supplied malformed or out-of-range input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return "validation failed"
}

func (e ValidationError) Unwrap() error { return e.Err }

// NotFoundError is returned when a referenced record does not exist or is not visible.
type NotFoundError struct {
	Resource string
	ID       any
	Err      error
}

func (e NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError is returned when the request collides with the current state.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s conflict", e.Resource)
}

func (e ConflictError) Unwrap() error { return e.Err }

// ForbiddenError is returned when the actor is not allowed to perform the operation.
type ForbiddenError struct {
	Msg string
	Err error
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "forbidden"
}

func (e ForbiddenError) Unwrap() error { return e.Err }

// InternalError wraps infrastructure failures (database, gateway, lock backend).
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e InternalError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
