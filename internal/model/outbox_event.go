package model

import (
	"time"

	"github.com/google/uuid"
)

const AggregateBooking = "demo_booking"

// Booking lifecycle event types published through the outbox.
const (
	EventBookingRequested = "demo.booking.requested.v1"
	EventBookingConfirmed = "demo.booking.confirmed.v1"
	EventBookingRejected  = "demo.booking.rejected.v1"
	EventBookingCancelled = "demo.booking.cancelled.v1"
	EventBookingCompleted = "demo.booking.completed.v1"
)

type OutboxEvent struct {
	ID            int64      `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	AggregateType string     `json:"aggregate_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	EventType     string     `json:"event_type"`
	Payload       []byte     `json:"payload"`
	CreatedAt     time.Time  `json:"created_at"`
	PublishedAt   *time.Time `json:"published_at"`
}

// EventTypeForStatus maps a booking status to the event emitted on entering it.
func EventTypeForStatus(s BookingStatus) string {
	switch s {
	case BookingStatusConfirmed:
		return EventBookingConfirmed
	case BookingStatusRejected:
		return EventBookingRejected
	case BookingStatusCancelled:
		return EventBookingCancelled
	case BookingStatusCompleted:
		return EventBookingCompleted
	default:
		return EventBookingRequested
	}
}
