package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BookingLedger_Create(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)

	res, err := f.svc.Bookings.Create(context.Background(), f.requesterA, CreateBookingRequest{
		SlotID:         slot.ID,
		Date:           demoDate,
		Time:           demoTime,
		Subject:        "Physics",
		Contact:        Contact{Name: "Asha K", Phone: "+91 99999 99999"},
		SpecialRequest: "Wheelchair access",
	})

	require.NoError(t, err)
	b := res.Booking
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, "Asha K", b.StudentName, "given contact wins")
	assert.Equal(t, "+91 99999 99999", b.StudentPhone)
	assert.Equal(t, "asha@example.com", b.StudentEmail, "blank contact falls back to the account")
	assert.Equal(t, "Wheelchair access", b.SpecialRequest)
	assert.False(t, b.BookedAt.IsZero())
	assert.Empty(t, f.notifier.messages(), "pending bookings notify nobody")

	remaining, err := f.svc.Availability.RemainingCapacity(context.Background(), slot.ID, demoDate, demoTime)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func Test_BookingLedger_Create_Errors(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 1)

	_, err := f.book(uuid.Nil, slot.ID, demoDate, demoTime)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.book(f.requesterA, uuid.New(), demoDate, demoTime)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.book(f.requesterA, slot.ID, "tomorrow", demoTime)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.book(f.requesterA, slot.ID, demoDate, "10am")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.book(f.requesterA, slot.ID, "2024-02-09", demoTime)
	assert.ErrorIs(t, err, ErrSlotFull, "a pair the slot does not publish is never bookable")

	_, err = f.svc.Bookings.Create(context.Background(), f.requesterA, CreateBookingRequest{
		SlotID: slot.ID, Date: demoDate, Time: demoTime, Subject: "Chemistry",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

// Capacity 1: A books, B is turned away, owner accepts A, A cancels, B succeeds.
func Test_BookingLedger_Create_RejectsControlCharacters(t *testing.T) {
	cases := map[string]Contact{
		"header injection in email": {Email: "asha@example.com\r\nBcc: all@example.com"},
		"newline in name":           {Name: "Asha\nK"},
		"tab in phone":              {Phone: "+91\t99999"},
		"display name email":        {Email: "Asha <asha@example.com>"},
		"no at sign":                {Email: "asha.example.com"},
	}

	for name, contact := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			slot := f.createSlot(t, 1)

			_, err := f.svc.Bookings.Create(context.Background(), f.requesterA, CreateBookingRequest{
				SlotID:  slot.ID,
				Date:    demoDate,
				Time:    demoTime,
				Subject: "Physics",
				Contact: contact,
			})

			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func Test_BookingLedger_TimeLabelVariantsShareCapacity(t *testing.T) {
	f := newFixture(t)
	in := f.slotInput(1)
	in.TimeSlots = []string{"10:00-11:00", "10:00 - 11:00", "9:00-10:00"}
	slot, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, in)
	require.NoError(t, err)

	res, err := f.book(f.requesterA, slot.ID, demoDate, "10:00-11:00")
	require.NoError(t, err)
	assert.Equal(t, "10:00-11:00", res.Booking.Time)

	_, err = f.book(f.requesterB, slot.ID, demoDate, "10:00 - 11:00")
	assert.ErrorIs(t, err, ErrSlotFull, "spacing does not open a second pair")

	res, err = f.book(f.requesterB, slot.ID, demoDate, "09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00-10:00", res.Booking.Time)

	remaining, err := f.svc.Availability.RemainingCapacity(context.Background(), slot.ID, demoDate, "9:00 - 10:00")
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func Test_BookingLedger_CapacityIsRestoredByCancel(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 1)

	a := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.book(f.requesterB, slot.ID, demoDate, demoTime)
	require.ErrorIs(t, err, ErrSlotFull)

	decided, err := f.svc.Approvals.Decide(context.Background(), a.ID, f.owner, DecisionAccept, "")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, decided.Booking.Status)
	assert.True(t, decided.NotificationSent)

	cancelled, err := f.svc.Bookings.Cancel(context.Background(), a.ID, f.requesterA)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	res, err := f.book(f.requesterB, slot.ID, demoDate, demoTime)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, res.Booking.Status)
}

// The duplicate rule is per slot, not per (date, time).
func Test_BookingLedger_AlreadyBookedAcrossPairs(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 5)
	f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.book(f.requesterA, slot.ID, "2024-02-02", "11:00-12:00")

	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func Test_BookingLedger_RebookAfterInactive(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 5)

	first := f.mustBook(t, f.requesterA, slot.ID)
	_, err := f.svc.Approvals.Decide(context.Background(), first.ID, f.owner, DecisionReject, "full batch")
	require.NoError(t, err)
	second := f.mustBook(t, f.requesterA, slot.ID)
	_, err = f.svc.Bookings.Cancel(context.Background(), second.ID, f.requesterA)
	require.NoError(t, err)

	third, err := f.book(f.requesterA, slot.ID, demoDate, demoTime)

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, third.Booking.Status)
}

func Test_BookingLedger_ConcurrentCreateNeverOversells(t *testing.T) {
	// arrange
	const (
		capacity  = 3
		attempts  = 40
		otherPair = "11:00-12:00"
	)
	f := newFixture(t)
	slot := f.createSlot(t, capacity)
	other := f.mustBook(t, f.requesterA, slot.ID)
	_, err := f.svc.Bookings.Cancel(context.Background(), other.ID, f.requesterA)
	require.NoError(t, err)

	var (
		wg                    sync.WaitGroup
		mu                    sync.Mutex
		succeeded, full, rest int
	)
	start := make(chan struct{})

	// act
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.book(uuid.New(), slot.ID, demoDate, demoTime)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case IsErrSlotFull(err):
				full++
			default:
				rest++
			}
		}()
	}
	close(start)
	wg.Wait()

	// assert
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, attempts-capacity, full)
	assert.Zero(t, rest)

	remaining, err := f.svc.Availability.RemainingCapacity(context.Background(), slot.ID, demoDate, demoTime)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	untouched, err := f.svc.Availability.RemainingCapacity(context.Background(), slot.ID, demoDate, otherPair)
	require.NoError(t, err)
	assert.Equal(t, capacity, untouched, "capacity is per (date, time) pair")
}

func Test_BookingLedger_ConcurrentDuplicateIsRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 10)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, dup int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(f.requesterA, slot.ID, demoDate, demoTime)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if IsErrAlreadyBooked(err) {
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)
}

func Test_BookingLedger_AutoConfirm(t *testing.T) {
	f := newFixture(t)
	in := f.slotInput(1)
	in.AutoConfirm = true
	slot, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, in)
	require.NoError(t, err)

	res, err := f.book(f.requesterA, slot.ID, demoDate, demoTime)

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	assert.True(t, res.NotificationSent)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "JEE Physics", msgs[0].CourseName)
	assert.Equal(t, "Acme Coaching", msgs[0].OrganizationName)
	require.NotNil(t, msgs[0].RecipientTelegramID)
	assert.Equal(t, int64(1001), *msgs[0].RecipientTelegramID)
}

func Test_BookingLedger_Cancel(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterB)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Bookings.Cancel(context.Background(), uuid.New(), f.requesterA)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
	require.NoError(t, err)
	second, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
	require.NoError(t, err, "cancel is idempotent")
	assert.Equal(t, model.BookingStatusCancelled, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "a repeated cancel writes nothing")
}

func Test_BookingLedger_RecordFeedback(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.svc.Bookings.RecordFeedback(context.Background(), b.ID, f.requesterA, "great", 5)
	assert.ErrorIs(t, err, ErrInvalidState, "pending bookings take no feedback")

	_, err = f.svc.Approvals.Decide(context.Background(), b.ID, f.owner, DecisionAccept, "")
	require.NoError(t, err)

	for _, rating := range []int{0, 6, -1} {
		_, err = f.svc.Bookings.RecordFeedback(context.Background(), b.ID, f.requesterA, "x", rating)
		assert.ErrorIs(t, err, ErrValidation, "rating %d", rating)
	}

	_, err = f.svc.Bookings.RecordFeedback(context.Background(), b.ID, f.requesterB, "x", 3)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.Bookings.RecordFeedback(context.Background(), b.ID, f.requesterA, "  Clear explanations ", 4)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status, "feedback does not move the status")
	assert.Equal(t, "Clear explanations", got.Feedback)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)
}

func Test_BookingLedger_ListForRequester(t *testing.T) {
	f := newFixture(t)
	older := f.createSlot(t, 2)
	newer := f.createSlot(t, 2)
	first := f.mustBook(t, f.requesterA, older.ID)
	second := f.mustBook(t, f.requesterA, newer.ID)
	f.mustBook(t, f.requesterB, newer.ID)

	got, err := Collect(f.svc.Bookings.ListForRequester(context.Background(), f.requesterA))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, "Physics demo", got[0].SlotTitle)
	assert.Equal(t, "Main branch", got[0].ProfileName)
	assert.Equal(t, "Acme Coaching", got[0].OrganizationName)

	_, err = Collect(f.svc.Bookings.ListForRequester(context.Background(), uuid.Nil))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func Test_BookingLedger_WritesOutboxEvents(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	b := f.mustBook(t, f.requesterA, slot.ID)
	_, err := f.svc.Bookings.Cancel(context.Background(), b.ID, f.requesterA)
	require.NoError(t, err)

	events := f.store.Outbox()

	require.Len(t, events, 2)
	assert.Equal(t, model.EventBookingRequested, events[0].EventType)
	assert.Equal(t, model.EventBookingCancelled, events[1].EventType)
	assert.Equal(t, b.ID, events[1].AggregateID)

	var ev BookingEvent
	require.NoError(t, json.Unmarshal(events[1].Payload, &ev))
	assert.Equal(t, model.BookingStatusCancelled, ev.Status)
	assert.Equal(t, f.requesterA, ev.ActorID)
}
