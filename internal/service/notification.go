package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"go.uber.org/zap"
)

// notifierPort sends decision messages after commit and never lets a
// delivery failure escape as an operation error.
type notifierPort struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func newNotifierPort(n notify.Notifier, logger *zap.Logger) *notifierPort {
	return &notifierPort{notifier: n, logger: logger}
}

// buildMessage gathers the slot, course, profile and requester context
// inside the transaction that made the decision.
func buildMessage(ctx context.Context, repos repository.Repositories, kind notify.Kind, b *model.Booking, slot *model.Slot, profile *model.Profile) (notify.Message, error) {
	msg := notify.Message{
		Kind:           kind,
		RecipientName:  b.StudentName,
		RecipientEmail: b.StudentEmail,
		RecipientPhone: b.StudentPhone,
		BookingID:      b.ID.String(),
		SessionTitle:   slot.Title,
		Date:           b.Date,
		TimeLabel:      b.Time,
		Mode:           string(slot.Mode),
		Address:        slot.Address,
		Reason:         b.RejectionReason,
	}

	if start, err := model.SessionStart(b.Date, b.Time); err == nil {
		msg.StartsAt = start
	}

	msg.LocationOrLink = slot.Address
	if slot.Mode == model.DeliveryModeOnline {
		msg.LocationOrLink = slot.MeetingLink
	}
	if slot.Landmark != "" && slot.Mode == model.DeliveryModeInPerson {
		msg.LocationOrLink = fmt.Sprintf("%s (near %s)", slot.Address, slot.Landmark)
	}

	if profile != nil {
		msg.OrganizationName = profile.OrganizationName
		msg.ContactNumber = profile.ContactNumber
	}

	course, err := repos.Profiles.GetCourse(ctx, slot.CourseID)
	if err != nil {
		return msg, err
	}
	if course != nil {
		msg.CourseName = course.Name
	}

	requester, err := repos.Users.GetByID(ctx, b.RequesterID)
	if err != nil {
		return msg, err
	}
	if requester != nil {
		msg.RecipientTelegramID = requester.TelegramID
	}

	return msg, nil
}

// send reports whether the message was delivered. Failures are logged at
// Warn as ErrNotificationFailure.
func (p *notifierPort) send(ctx context.Context, msg notify.Message) bool {
	if err := p.notifier.Send(ctx, msg); err != nil {
		p.logger.Warn("Notification not delivered",
			zap.String("booking_id", msg.BookingID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(fmt.Errorf("%w: %w", ErrNotificationFailure, err)),
		)
		return false
	}
	return true
}
