package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

type DecisionResult struct {
	Booking          *model.Booking
	NotificationSent bool
}

// ApprovalWorkflow is the owner side of the booking state machine:
//
//	pending   --accept-->   confirmed
//	pending   --reject-->   rejected
//	confirmed --complete--> completed
type ApprovalWorkflow struct {
	run      *runner
	notifier *notifierPort
	logger   *zap.Logger
	now      func() time.Time
}

func newApprovalWorkflow(run *runner, notifier *notifierPort, logger *zap.Logger, now func() time.Time) *ApprovalWorkflow {
	return &ApprovalWorkflow{run: run, notifier: notifier, logger: logger, now: now}
}

// Decide accepts or rejects a pending booking on behalf of the slot's owner.
// The requester is notified after commit; a failed notification leaves the
// decision in place and is reported as NotificationSent=false.
func (w *ApprovalWorkflow) Decide(ctx context.Context, bookingID, principalID uuid.UUID, decision Decision, reason string) (*DecisionResult, error) {
	if err := requirePrincipal(principalID); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: decision must be %q or %q", ErrValidation, DecisionAccept, DecisionReject)
	}
	reason = strings.TrimSpace(reason)

	var (
		booking *model.Booking
		msg     notify.Message
	)
	err := w.run.do(ctx, "booking.decide", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		booking, err = repos.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
		}

		slot, err := repos.Slots.GetByID(ctx, booking.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return fmt.Errorf("%w: slot %s", ErrNotFound, booking.SlotID)
		}
		profile, err := repos.Profiles.GetByID(ctx, slot.ProfileID)
		if err != nil {
			return err
		}
		if !controls(principalID, profile) {
			return fmt.Errorf("%w: booking %s is on a slot controlled by another account", ErrForbidden, bookingID)
		}

		if booking.Status != model.BookingStatusPending {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, booking.Status)
		}

		kind := notify.KindConfirmed
		if decision == DecisionAccept {
			booking.Status = model.BookingStatusConfirmed
		} else {
			booking.Status = model.BookingStatusRejected
			booking.RejectionReason = reason
			kind = notify.KindDeclined
		}

		if err := repos.Bookings.Update(ctx, booking); err != nil {
			return err
		}
		if err := recordTransition(ctx, repos, booking, principalID, w.now()); err != nil {
			return err
		}

		msg, err = buildMessage(ctx, repos, kind, booking, slot, profile)
		return err
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("Booking decided",
		zap.String("booking_id", bookingID.String()),
		zap.String("owner_id", principalID.String()),
		zap.String("decision", string(decision)),
		zap.String("status", string(booking.Status)),
	)

	return &DecisionResult{
		Booking:          booking,
		NotificationSent: w.notifier.send(ctx, msg),
	}, nil
}

// Complete marks a confirmed booking as completed once its session has
// started. Either the requester or the slot's owner may do it.
func (w *ApprovalWorkflow) Complete(ctx context.Context, bookingID, principalID uuid.UUID) (*model.Booking, error) {
	if err := requirePrincipal(principalID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := w.run.do(ctx, "booking.complete", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		booking, err = repos.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
		}

		if booking.RequesterID != principalID {
			profile, err := profileOfSlot(ctx, repos, booking.SlotID)
			if err != nil {
				return err
			}
			if !controls(principalID, profile) {
				return fmt.Errorf("%w: only the requester or the slot owner may complete booking %s", ErrForbidden, bookingID)
			}
		}

		if booking.Status != model.BookingStatusConfirmed {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, booking.Status)
		}
		start, err := model.SessionStart(booking.Date, booking.Time)
		if err != nil {
			return fmt.Errorf("%w: booking has an unreadable session time: %v", ErrInvalidState, err)
		}
		if w.now().Before(start) {
			return fmt.Errorf("%w: session starts at %s", ErrInvalidState, start.Format(time.RFC3339))
		}

		booking.Status = model.BookingStatusCompleted
		if err := repos.Bookings.Update(ctx, booking); err != nil {
			return err
		}
		return recordTransition(ctx, repos, booking, principalID, w.now())
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("Booking completed",
		zap.String("booking_id", bookingID.String()),
		zap.String("by", principalID.String()),
	)
	return booking, nil
}

// ListPending returns the pending bookings on every profile the owner
// controls, oldest first.
func (w *ApprovalWorkflow) ListPending(ctx context.Context, ownerID uuid.UUID) ([]*model.BookingSummary, error) {
	if err := requirePrincipal(ownerID); err != nil {
		return nil, err
	}

	var out []*model.BookingSummary
	err := w.run.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		out, err = repos.Bookings.ListPendingByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
