package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // waiting for the owner's decision
	BookingStatusConfirmed BookingStatus = "confirmed" // accepted by the owner
	BookingStatusRejected  BookingStatus = "rejected"  // declined by the owner
	BookingStatusCancelled BookingStatus = "cancelled" // withdrawn by the requester
	BookingStatusCompleted BookingStatus = "completed" // session took place
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusRejected,
		BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether the booking holds a seat and blocks a second request
// from the same requester on the same slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal reports whether no further transition is accepted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled || s == BookingStatusCompleted
}

// ActiveBookingStatuses are the statuses counted against capacity.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

const (
	MinRating = 1
	MaxRating = 5
)

type Booking struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	SlotID      uuid.UUID `json:"slot_id"`

	Date    string `json:"date"` // 2006-01-02
	Time    string `json:"time"` // 10:00-11:00
	Subject string `json:"subject"`

	// Contact snapshot taken at booking time, not a live join to the requester.
	StudentName    string `json:"student_name"`
	StudentPhone   string `json:"student_phone"`
	StudentEmail   string `json:"student_email"`
	SpecialRequest string `json:"special_request"`

	Status          BookingStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	Feedback        string        `json:"feedback,omitempty"`
	Rating          *int          `json:"rating,omitempty"`

	BookedAt  time.Time `json:"booked_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingSummary is a booking joined with the slot and profile it belongs to.
type BookingSummary struct {
	Booking
	SlotTitle        string `json:"slot_title"`
	ProfileName      string `json:"profile_name"`
	OrganizationName string `json:"organization_name"`
}
