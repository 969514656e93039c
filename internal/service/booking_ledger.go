package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Contact is the requester's contact snapshot stored on the booking.
type Contact struct {
	Name  string
	Phone string
	Email string
}

type CreateBookingRequest struct {
	SlotID         uuid.UUID
	Date           string
	Time           string
	Subject        string
	Contact        Contact
	SpecialRequest string
}

// CreateBookingResult is the new booking. NotificationSent is only
// meaningful for slots that confirm automatically.
type CreateBookingResult struct {
	Booking          *model.Booking
	NotificationSent bool
}

type BookingLedger struct {
	run          *runner
	availability *AvailabilityGuard
	notifier     *notifierPort
	logger       *zap.Logger
	now          func() time.Time
}

func newBookingLedger(run *runner, availability *AvailabilityGuard, notifier *notifierPort, logger *zap.Logger, now func() time.Time) *BookingLedger {
	return &BookingLedger{run: run, availability: availability, notifier: notifier, logger: logger, now: now}
}

// Create books one (date, time, subject) of a slot for requesterID. The slot
// row is locked for the whole duplicate check, capacity check and insert, so
// concurrent requests on one slot are decided one at a time.
func (l *BookingLedger) Create(ctx context.Context, requesterID uuid.UUID, req CreateBookingRequest) (*CreateBookingResult, error) {
	if err := requirePrincipal(requesterID); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		msg     notify.Message
	)
	err := l.run.do(ctx, "booking.create", func(ctx context.Context, repos repository.Repositories) error {
		slot, err := repos.Slots.GetByIDForUpdate(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return fmt.Errorf("%w: slot %s", ErrNotFound, req.SlotID)
		}
		if !slot.IsScheduled() {
			return fmt.Errorf("%w: slot is %s", ErrInvalidState, slot.Status)
		}

		existing, err := repos.Bookings.GetActiveByRequesterAndSlot(ctx, requesterID, slot.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: booking %s is %s", ErrAlreadyBooked, existing.ID, existing.Status)
		}

		if !slot.OffersSubject(req.Subject) {
			return fmt.Errorf("%w: subject %q is not offered by this slot", ErrValidation, req.Subject)
		}

		ok, err := l.availability.bookable(ctx, repos.Bookings, slot, req.Date, req.Time)
		if err != nil {
			return err
		}
		if !ok {
			if !slot.Offers(req.Date, req.Time) {
				return fmt.Errorf("%w: %s %s is not offered by this slot", ErrSlotFull, req.Date, req.Time)
			}
			return fmt.Errorf("%w: no seats left on %s %s", ErrSlotFull, req.Date, req.Time)
		}

		contact, err := l.contactWithFallback(ctx, repos, requesterID, req.Contact)
		if err != nil {
			return err
		}

		booking = &model.Booking{
			ID:             uuid.New(),
			RequesterID:    requesterID,
			SlotID:         slot.ID,
			Date:           req.Date,
			Time:           req.Time,
			Subject:        req.Subject,
			StudentName:    contact.Name,
			StudentPhone:   contact.Phone,
			StudentEmail:   contact.Email,
			SpecialRequest: req.SpecialRequest,
			Status:         model.BookingStatusPending,
		}
		if slot.AutoConfirm {
			booking.Status = model.BookingStatusConfirmed
		}

		if err := repos.Bookings.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicateActiveBooking) {
				return fmt.Errorf("%w: requester already holds an active booking on this slot", ErrAlreadyBooked)
			}
			return err
		}
		if err := recordTransition(ctx, repos, booking, requesterID, l.now()); err != nil {
			return err
		}

		if booking.Status == model.BookingStatusConfirmed {
			profile, err := repos.Profiles.GetByID(ctx, slot.ProfileID)
			if err != nil {
				return err
			}
			msg, err = buildMessage(ctx, repos, notify.KindConfirmed, booking, slot, profile)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("requester_id", requesterID.String()),
		zap.String("slot_id", req.SlotID.String()),
		zap.String("date", req.Date),
		zap.String("time", req.Time),
		zap.String("status", string(booking.Status)),
	)

	res := &CreateBookingResult{Booking: booking}
	if booking.Status == model.BookingStatusConfirmed {
		res.NotificationSent = l.notifier.send(ctx, msg)
	}
	return res, nil
}

// ListForRequester yields the requester's bookings with slot and profile
// context, newest first.
func (l *BookingLedger) ListForRequester(ctx context.Context, requesterID uuid.UUID) iter.Seq2[*model.BookingSummary, error] {
	if err := requirePrincipal(requesterID); err != nil {
		return func(yield func(*model.BookingSummary, error) bool) { yield(nil, err) }
	}
	return paginate(ctx, l.run.tx,
		func(ctx context.Context, repos repository.Repositories, page repository.Page) ([]*model.BookingSummary, error) {
			return repos.Bookings.ListByRequester(ctx, requesterID, page)
		},
		func(s *model.BookingSummary) repository.Cursor {
			return repository.Cursor{CreatedAt: s.BookedAt, ID: s.ID}
		},
	)
}

// Cancel withdraws the requester's booking. Cancelling a cancelled booking
// succeeds without change; rejected and completed bookings cannot be cancelled.
func (l *BookingLedger) Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (*model.Booking, error) {
	if err := requirePrincipal(requesterID); err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		changed bool
	)
	err := l.run.do(ctx, "booking.cancel", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		booking, err = lockOwnBooking(ctx, repos, bookingID, requesterID)
		if err != nil {
			return err
		}

		if booking.Status == model.BookingStatusCancelled {
			return nil
		}
		if booking.Status.IsTerminal() {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, booking.Status)
		}

		booking.Status = model.BookingStatusCancelled
		if err := repos.Bookings.Update(ctx, booking); err != nil {
			return err
		}
		changed = true
		return recordTransition(ctx, repos, booking, requesterID, l.now())
	})
	if err != nil {
		return nil, err
	}

	if changed {
		l.logger.Info("Booking cancelled",
			zap.String("booking_id", bookingID.String()),
			zap.String("requester_id", requesterID.String()),
		)
	}
	return booking, nil
}

// RecordFeedback stores the requester's feedback on a confirmed or completed
// booking. The status is left unchanged.
func (l *BookingLedger) RecordFeedback(ctx context.Context, bookingID, requesterID uuid.UUID, feedback string, rating int) (*model.Booking, error) {
	if err := requirePrincipal(requesterID); err != nil {
		return nil, err
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, model.MinRating, model.MaxRating)
	}
	feedback = strings.TrimSpace(feedback)

	var booking *model.Booking
	err := l.run.do(ctx, "booking.feedback", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		booking, err = lockOwnBooking(ctx, repos, bookingID, requesterID)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingStatusConfirmed && booking.Status != model.BookingStatusCompleted {
			return fmt.Errorf("%w: feedback needs a confirmed or completed booking, this one is %s", ErrInvalidState, booking.Status)
		}

		r := rating
		booking.Feedback = feedback
		booking.Rating = &r
		return repos.Bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Booking feedback recorded",
		zap.String("booking_id", bookingID.String()),
		zap.Int("rating", rating),
	)
	return booking, nil
}

// Summary returns the booking joined with its slot and profile for responses.
func (l *BookingLedger) Summary(ctx context.Context, b *model.Booking) (*model.BookingSummary, error) {
	out := &model.BookingSummary{Booking: *b}
	err := l.run.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		slot, err := repos.Slots.GetByID(ctx, b.SlotID)
		if err != nil || slot == nil {
			return err
		}
		out.SlotTitle = slot.Title
		profile, err := repos.Profiles.GetByID(ctx, slot.ProfileID)
		if err != nil || profile == nil {
			return err
		}
		out.ProfileName = profile.Name
		out.OrganizationName = profile.OrganizationName
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// contactWithFallback fills blank contact fields from the requester's account.
func (l *BookingLedger) contactWithFallback(ctx context.Context, repos repository.Repositories, requesterID uuid.UUID, c Contact) (Contact, error) {
	if c.Name != "" && c.Email != "" && c.Phone != "" {
		return c, nil
	}
	user, err := repos.Users.GetByID(ctx, requesterID)
	if err != nil {
		return c, fmt.Errorf("get requester: %w", err)
	}
	if user == nil {
		return c, nil
	}
	if c.Name == "" {
		c.Name = user.Name
	}
	if c.Email == "" {
		c.Email = user.Email
	}
	if c.Phone == "" {
		c.Phone = user.Phone
	}
	return c, nil
}

func (r *CreateBookingRequest) validate() error {
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Subject = strings.TrimSpace(r.Subject)
	r.SpecialRequest = strings.TrimSpace(r.SpecialRequest)
	r.Contact.Name = strings.TrimSpace(r.Contact.Name)
	r.Contact.Phone = strings.TrimSpace(r.Contact.Phone)
	r.Contact.Email = strings.TrimSpace(r.Contact.Email)

	var problems []string
	if r.SlotID == uuid.Nil {
		problems = append(problems, "slot is required")
	}
	if _, err := model.SessionStart(r.Date, r.Time); err != nil {
		problems = append(problems, err.Error())
	} else if label, err := model.NormalizeTimeLabel(r.Time); err == nil {
		r.Time = label
	}
	if r.Subject == "" {
		problems = append(problems, "subject is required")
	}
	for _, f := range []struct{ name, value string }{
		{"subject", r.Subject},
		{"contact name", r.Contact.Name},
		{"contact phone", r.Contact.Phone},
		{"contact email", r.Contact.Email},
	} {
		if strings.ContainsFunc(f.value, unicode.IsControl) {
			problems = append(problems, f.name+" must not contain control characters")
		}
	}
	if r.Contact.Email != "" && !validEmail(r.Contact.Email) {
		problems = append(problems, fmt.Sprintf("email %q is not valid", r.Contact.Email))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// validEmail accepts a bare addr-spec only, no display name or angle brackets.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Name == "" && addr.Address == email
}

// lockOwnBooking loads the booking for update and fails NotFound or Forbidden
// unless requesterID made it.
func lockOwnBooking(ctx context.Context, repos repository.Repositories, bookingID, requesterID uuid.UUID) (*model.Booking, error) {
	booking, err := repos.Bookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	if booking.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: booking %s belongs to another requester", ErrForbidden, bookingID)
	}
	return booking, nil
}
