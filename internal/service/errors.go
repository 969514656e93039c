package service

import "errors"

// The closed set of failures an operation reports. Call sites wrap them with
// detail as fmt.Errorf("%w: ...", ErrX); anything else is an internal error.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrAlreadyBooked       = errors.New("already booked")
	ErrSlotFull            = errors.New("slot full")
	ErrNotificationFailure = errors.New("notification failure")
)

func IsErrValidation(err error) bool          { return errors.Is(err, ErrValidation) }
func IsErrNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsErrUnauthorized(err error) bool        { return errors.Is(err, ErrUnauthorized) }
func IsErrForbidden(err error) bool           { return errors.Is(err, ErrForbidden) }
func IsErrInvalidState(err error) bool        { return errors.Is(err, ErrInvalidState) }
func IsErrAlreadyBooked(err error) bool       { return errors.Is(err, ErrAlreadyBooked) }
func IsErrSlotFull(err error) bool            { return errors.Is(err, ErrSlotFull) }
func IsErrNotificationFailure(err error) bool { return errors.Is(err, ErrNotificationFailure) }

// Kind names the taxonomy entry err belongs to, or "internal".
func Kind(err error) string {
	switch {
	case IsErrValidation(err):
		return "validation_error"
	case IsErrNotFound(err):
		return "not_found"
	case IsErrUnauthorized(err):
		return "unauthorized"
	case IsErrForbidden(err):
		return "forbidden"
	case IsErrInvalidState(err):
		return "invalid_state"
	case IsErrAlreadyBooked(err):
		return "already_booked"
	case IsErrSlotFull(err):
		return "slot_full"
	case IsErrNotificationFailure(err):
		return "notification_failure"
	default:
		return "internal"
	}
}
