// Package memory is an in-process implementation of the repository contracts.
// Every transaction holds one writer lock and works on a copy of the state,
// which replaces the live state only when the transaction function succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
)

type state struct {
	users    map[uuid.UUID]model.User
	profiles map[uuid.UUID]model.Profile
	courses  map[uuid.UUID]model.Course
	slots    map[uuid.UUID]model.Slot
	bookings map[uuid.UUID]model.Booking
	outbox   []model.OutboxEvent
	outboxID int64
}

func newState() *state {
	return &state{
		users:    make(map[uuid.UUID]model.User),
		profiles: make(map[uuid.UUID]model.Profile),
		courses:  make(map[uuid.UUID]model.Course),
		slots:    make(map[uuid.UUID]model.Slot),
		bookings: make(map[uuid.UUID]model.Booking),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[uuid.UUID]model.User, len(s.users)),
		profiles: make(map[uuid.UUID]model.Profile, len(s.profiles)),
		courses:  make(map[uuid.UUID]model.Course, len(s.courses)),
		slots:    make(map[uuid.UUID]model.Slot, len(s.slots)),
		bookings: make(map[uuid.UUID]model.Booking, len(s.bookings)),
		outbox:   make([]model.OutboxEvent, len(s.outbox)),
		outboxID: s.outboxID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	copy(c.outbox, s.outbox)
	return c
}

// Store implements repository.TxManager.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
	last  time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stamp returns a strictly increasing timestamp so newest-first ordering is stable.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	tx := &tx{store: s, st: work}
	if err := fn(ctx, tx.repositories()); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// SeedUser, SeedProfile and SeedCourse load reference data that the booking
// core reads but never writes.
func (s *Store) SeedUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.stamp()
	}
	s.state.users[u.ID] = u
}

func (s *Store) SeedProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.profiles[p.ID] = p
}

func (s *Store) SeedCourse(c model.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.courses[c.ID] = c
}

// Outbox returns a copy of every stored outbox event.
func (s *Store) Outbox() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, len(s.state.outbox))
	copy(out, s.state.outbox)
	return out
}

type tx struct {
	store *Store
	st    *state
}

func (t *tx) repositories() repository.Repositories {
	return repository.Repositories{
		Slots:    &slotRepo{tx: t},
		Bookings: &bookingRepo{tx: t},
		Profiles: &profileRepo{tx: t},
		Users:    &userRepo{tx: t},
		Outbox:   &outboxRepo{tx: t},
	}
}

var _ repository.TxManager = (*Store)(nil)
