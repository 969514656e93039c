package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	demoDate = "2024-02-01"
	demoTime = "10:00-11:00"
)

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *memory.Store
	svc      *Services
	notifier *recordingNotifier
	clock    *clock

	owner      uuid.UUID
	stranger   uuid.UUID
	requesterA uuid.UUID
	requesterB uuid.UUID
	profile    model.Profile
	course     model.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:      memory.NewStore(),
		notifier:   &recordingNotifier{},
		clock:      &clock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)},
		owner:      uuid.New(),
		stranger:   uuid.New(),
		requesterA: uuid.New(),
		requesterB: uuid.New(),
	}

	chatID := int64(1001)
	f.store.SeedUser(model.User{ID: f.owner, Name: "Owner"})
	f.store.SeedUser(model.User{ID: f.stranger, Name: "Stranger"})
	f.store.SeedUser(model.User{ID: f.requesterA, Name: "Asha", Email: "asha@example.com", Phone: "+91 90000 00001", TelegramID: &chatID})
	f.store.SeedUser(model.User{ID: f.requesterB, Name: "Bala", Email: "bala@example.com"})

	f.profile = model.Profile{
		ID:               uuid.New(),
		CoachingID:       uuid.New(),
		OwnerID:          f.owner,
		Name:             "Main branch",
		OrganizationName: "Acme Coaching",
		ContactNumber:    "+91 80000 00000",
	}
	f.store.SeedProfile(f.profile)
	f.course = model.Course{ID: uuid.New(), ProfileID: f.profile.ID, Name: "JEE Physics"}
	f.store.SeedCourse(f.course)

	f.svc = New(Deps{
		Tx:       f.store,
		Notifier: f.notifier,
		Logger:   zap.NewNop(),
		Now:      f.clock.Now,
	})
	return f
}

func (f *fixture) slotInput(capacity int) SlotInput {
	return SlotInput{
		CourseID:   f.course.ID,
		Title:      "Physics demo",
		Instructor: "R. Iyer",
		Subjects:   []string{"Physics", "Maths"},
		Mode:       model.DeliveryModeInPerson,
		Address:    "12 MG Road",
		Dates:      []string{demoDate, "2024-02-02"},
		TimeSlots:  []string{demoTime, "11:00-12:00"},
		Capacity:   capacity,
		IsFree:     true,
	}
}

func (f *fixture) createSlot(t *testing.T, capacity int) *model.Slot {
	t.Helper()
	slot, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, f.slotInput(capacity))
	require.NoError(t, err)
	return slot
}

func (f *fixture) book(requester uuid.UUID, slotID uuid.UUID, date, timeLabel string) (*CreateBookingResult, error) {
	return f.svc.Bookings.Create(context.Background(), requester, CreateBookingRequest{
		SlotID:  slotID,
		Date:    date,
		Time:    timeLabel,
		Subject: "Physics",
	})
}

func (f *fixture) mustBook(t *testing.T, requester uuid.UUID, slotID uuid.UUID) *model.Booking {
	t.Helper()
	res, err := f.book(requester, slotID, demoDate, demoTime)
	require.NoError(t, err)
	return res.Booking
}

var errDeliveryFailed = errors.New("smtp: connection refused")
