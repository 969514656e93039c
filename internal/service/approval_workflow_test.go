package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ApprovalWorkflow_Decide_Accept(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	res, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	assert.True(t, res.NotificationSent)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindConfirmed, msgs[0].Kind)
	assert.Equal(t, "asha@example.com", msgs[0].RecipientEmail)
	assert.Equal(t, "Physics demo", msgs[0].SessionTitle)
	assert.Equal(t, "+91 80000 00000", msgs[0].ContactNumber)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), msgs[0].StartsAt)
}

func Test_ApprovalWorkflow_Decide_Reject(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 1)
	b := f.mustBook(t, f.requesterA, slot.ID)

	res, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionReject, " Batch already full ")

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusRejected, res.Booking.Status)
	assert.Equal(t, "Batch already full", res.Booking.RejectionReason)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindDeclined, msgs[0].Kind)
	assert.Equal(t, "Batch already full", msgs[0].Reason)

	remaining, err := f.svc.Availability.RemainingCapacity(context.Background(), slot.ID, demoDate, demoTime)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining, "a rejected booking frees its seat")
}

func Test_ApprovalWorkflow_Decide_NotificationFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errDeliveryFailed
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	res, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	assert.False(t, res.NotificationSent)

	again, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionReject, "")
	assert.Nil(t, again)
	assert.ErrorIs(t, err, ErrInvalidState, "the confirmation was committed")
}

func Test_ApprovalWorkflow_Decide_ForbiddenRegardlessOfStatus(t *testing.T) {
	statuses := map[string]func(t *testing.T, f *fixture, b *model.Booking){
		"pending": func(*testing.T, *fixture, *model.Booking) {},
		"confirmed": func(t *testing.T, f *fixture, b *model.Booking) {
			_, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")
			require.NoError(t, err)
		},
		"cancelled": func(t *testing.T, f *fixture, b *model.Booking) {
			_, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
			require.NoError(t, err)
		},
	}

	for name, prepare := range statuses {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			slot := f.createSlot(t, 2)
			b := f.mustBook(t, f.requesterA, slot.ID)
			prepare(t, f, b)

			for _, principal := range []uuid.UUID{f.stranger, f.requesterA} {
				_, err := f.svc.Approvals.Decide(context.Background(), b.ID, principal, DecisionAccept, "")
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func Test_ApprovalWorkflow_Decide_InputErrors(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.svc.Approvals.Decide(context.Background(), b.ID, uuid.Nil, DecisionAccept, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, "maybe", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Approvals.Decide(context.Background(), uuid.New(), f.owner, DecisionAccept, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_ApprovalWorkflow_TerminalStatesAreClosed(t *testing.T) {
	terminal := map[model.BookingStatus]func(t *testing.T, f *fixture, b *model.Booking){
		model.BookingStatusRejected: func(t *testing.T, f *fixture, b *model.Booking) {
			_, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionReject, "")
			require.NoError(t, err)
		},
		model.BookingStatusCancelled: func(t *testing.T, f *fixture, b *model.Booking) {
			_, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
			require.NoError(t, err)
		},
		model.BookingStatusCompleted: func(t *testing.T, f *fixture, b *model.Booking) {
			_, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")
			require.NoError(t, err)
			f.clock.Set(time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC))
			_, err = f.svc.Approvals.Complete(context.Background(), b.ID, f.requesterA)
			require.NoError(t, err)
		},
	}

	for status, reach := range terminal {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			slot := f.createSlot(t, 2)
			b := f.mustBook(t, f.requesterA, slot.ID)
			reach(t, f, b)

			for _, d := range []Decision{DecisionAccept, DecisionReject} {
				_, err := f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, d, "")
				assert.ErrorIs(t, err, ErrInvalidState, "decide %s", d)
			}
			_, err := f.svc.Approvals.Complete(context.Background(), b.ID, f.owner)
			assert.ErrorIs(t, err, ErrInvalidState, "complete")

			if status != model.BookingStatusCancelled {
				_, err = f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
				assert.ErrorIs(t, err, ErrInvalidState, "cancel")
			}
		})
	}
}

func Test_ApprovalWorkflow_Complete(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.svc.Approvals.Complete(context.Background(), b.ID, f.owner)
	assert.ErrorIs(t, err, ErrInvalidState, "pending bookings cannot complete")

	_, err = f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")
	require.NoError(t, err)

	_, err = f.svc.Approvals.Complete(context.Background(), b.ID, f.owner)
	assert.ErrorIs(t, err, ErrInvalidState, "session has not started yet")

	f.clock.Set(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	_, err = f.svc.Approvals.Complete(context.Background(), b.ID, f.stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := f.svc.Approvals.Complete(context.Background(), b.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	withFeedback, err := f.svc.Bookings.RecordFeedback(context.Background(), b.ID, f.requesterA, "Loved it", 5)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, withFeedback.Status)
}

func Test_ApprovalWorkflow_ListPending(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 3)
	first := f.mustBook(t, f.requesterA, slot.ID)
	second := f.mustBook(t, f.requesterB, slot.ID)
	decided := f.mustBook(t, f.stranger, slot.ID)
	_, err := f.svc.Approvals.Decide(context.Background(), decided.ID, f.owner, DecisionAccept, "")
	require.NoError(t, err)

	got, err := f.svc.Approvals.ListPending(context.Background(), f.owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID, "oldest first")
	assert.Equal(t, second.ID, got[1].ID)

	none, err := f.svc.Approvals.ListPending(context.Background(), f.stranger)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func Test_OwnershipGuard(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 1)
	b := f.mustBook(t, f.requesterA, slot.ID)
	ctx := context.Background()

	ok, err := f.svc.Ownership.ControlsProfile(ctx, f.owner, f.profile.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Ownership.ControlsProfile(ctx, f.stranger, f.profile.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Ownership.ControlsProfile(ctx, f.owner, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Ownership.ControlsBooking(ctx, f.owner, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Ownership.ControlsBooking(ctx, f.requesterA, b.ID)
	require.NoError(t, err)
	assert.False(t, ok, "the requester does not control the slot")
}

func Test_AvailabilityGuard(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	f.mustBook(t, f.requesterA, slot.ID)
	ctx := context.Background()

	ok, err := f.svc.Availability.IsBookable(ctx, slot, demoDate, demoTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Availability.IsBookable(ctx, slot, "2030-01-01", demoTime)
	require.NoError(t, err)
	assert.False(t, ok, "unpublished date")

	cancelled := *slot
	cancelled.Status = model.SlotStatusCancelled
	ok, err = f.svc.Availability.IsBookable(ctx, &cancelled, demoDate, demoTime)
	require.NoError(t, err)
	assert.False(t, ok, "only scheduled slots are bookable")

	_, matrix, err := f.svc.Slots.GetWithAvailability(ctx, slot.ID)
	require.NoError(t, err)
	require.Len(t, matrix, 4)
	assert.Equal(t, PairAvailability{Date: demoDate, Time: demoTime, Remaining: 1}, matrix[0])
	assert.Equal(t, 2, matrix[3].Remaining)

	_, err = f.svc.Availability.RemainingCapacity(ctx, uuid.New(), demoDate, demoTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Kind(t *testing.T) {
	assert.Equal(t, "slot_full", Kind(ErrSlotFull))
	assert.Equal(t, "already_booked", Kind(ErrAlreadyBooked))
	assert.Equal(t, "internal", Kind(assert.AnError))
}
