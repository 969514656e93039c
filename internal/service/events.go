package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

// BookingEvent is the outbox payload for every booking transition.
type BookingEvent struct {
	EventID     uuid.UUID           `json:"event_id"`
	EventType   string              `json:"event_type"`
	OccurredAt  time.Time           `json:"occurred_at"`
	BookingID   uuid.UUID           `json:"booking_id"`
	SlotID      uuid.UUID           `json:"slot_id"`
	RequesterID uuid.UUID           `json:"requester_id"`
	ActorID     uuid.UUID           `json:"actor_id"`
	Status      model.BookingStatus `json:"status"`
	Date        string              `json:"date"`
	Time        string              `json:"time"`
	Subject     string              `json:"subject"`
	Reason      string              `json:"reason,omitempty"`
}

// recordTransition writes the event for the booking's current status into
// the same transaction as the state change.
func recordTransition(ctx context.Context, repos repository.Repositories, b *model.Booking, actorID uuid.UUID, at time.Time) error {
	ev := BookingEvent{
		EventID:     uuid.New(),
		EventType:   model.EventTypeForStatus(b.Status),
		OccurredAt:  at.UTC(),
		BookingID:   b.ID,
		SlotID:      b.SlotID,
		RequesterID: b.RequesterID,
		ActorID:     actorID,
		Status:      b.Status,
		Date:        b.Date,
		Time:        b.Time,
		Subject:     b.Subject,
		Reason:      b.RejectionReason,
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventType, err)
	}

	return repos.Outbox.Insert(ctx, &model.OutboxEvent{
		EventID:       ev.EventID,
		AggregateType: model.AggregateBooking,
		AggregateID:   b.ID,
		EventType:     ev.EventType,
		Payload:       payload,
	})
}
