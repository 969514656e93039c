package repository

import "errors"

var (
	// ErrDuplicateActiveBooking is returned when a second active booking for
	// the same requester and slot would be stored.
	ErrDuplicateActiveBooking = errors.New("active booking already exists for requester and slot")

	// ErrTxConflict marks a transaction that lost a race with a concurrent one
	// and may be retried from the start.
	ErrTxConflict = errors.New("transaction conflict")
)

func IsTxConflict(err error) bool {
	return errors.Is(err, ErrTxConflict)
}
