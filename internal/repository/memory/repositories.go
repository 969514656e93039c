package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
)

func cloneSlot(s model.Slot) *model.Slot {
	s.Subjects = slices.Clone(s.Subjects)
	s.Topics = slices.Clone(s.Topics)
	s.Dates = slices.Clone(s.Dates)
	s.TimeSlots = slices.Clone(s.TimeSlots)
	return &s
}

func cloneBooking(b model.Booking) *model.Booking {
	if b.Rating != nil {
		r := *b.Rating
		b.Rating = &r
	}
	return &b
}

func compareUUID(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}

// newestFirst orders by (ts DESC, id DESC), the order the SQL keyset uses.
func newestFirst(ta time.Time, ida uuid.UUID, tb time.Time, idb uuid.UUID) int {
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	return compareUUID(idb, ida)
}

// before reports whether (ts, id) sorts strictly after the cursor in newest-first order.
func before(ts time.Time, id uuid.UUID, c *repository.Cursor) bool {
	return newestFirst(c.CreatedAt, c.ID, ts, id) < 0
}

type slotRepo struct{ tx *tx }

func (r *slotRepo) Create(_ context.Context, slot *model.Slot) error {
	if _, ok := r.tx.st.slots[slot.ID]; ok {
		return fmt.Errorf("create slot: id %s already exists", slot.ID)
	}
	for _, s := range r.tx.st.slots {
		if s.Code == slot.Code {
			return fmt.Errorf("create slot: code %s already exists", slot.Code)
		}
	}
	now := r.tx.store.stamp()
	slot.CreatedAt, slot.UpdatedAt = now, now
	r.tx.st.slots[slot.ID] = *cloneSlot(*slot)
	return nil
}

func (r *slotRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	s, ok := r.tx.st.slots[id]
	if !ok {
		return nil, nil
	}
	return cloneSlot(s), nil
}

// GetByIDForUpdate needs no row lock: the store lock already serialises transactions.
func (r *slotRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r *slotRepo) Update(_ context.Context, slot *model.Slot) error {
	cur, ok := r.tx.st.slots[slot.ID]
	if !ok {
		return fmt.Errorf("update slot %s: not found", slot.ID)
	}
	slot.UpdatedAt = r.tx.store.stamp()
	next := cloneSlot(*slot)
	next.Code, next.ProfileID, next.CourseID, next.CreatedAt = cur.Code, cur.ProfileID, cur.CourseID, cur.CreatedAt
	r.tx.st.slots[slot.ID] = *next
	return nil
}

// Delete mirrors the ON DELETE CASCADE on demo_bookings.slot_id.
func (r *slotRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.tx.st.slots, id)
	for bid, b := range r.tx.st.bookings {
		if b.SlotID == id {
			delete(r.tx.st.bookings, bid)
		}
	}
	return nil
}

func (r *slotRepo) ListByProfile(_ context.Context, profileID uuid.UUID, status *model.SlotStatus, page repository.Page) ([]*model.Slot, error) {
	var out []*model.Slot
	for _, s := range r.tx.st.slots {
		if s.ProfileID != profileID {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		if page.After != nil && !before(s.CreatedAt, s.ID, page.After) {
			continue
		}
		out = append(out, cloneSlot(s))
	}
	slices.SortFunc(out, func(a, b *model.Slot) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	if len(out) > page.Size() {
		out = out[:page.Size()]
	}
	return out, nil
}

type bookingRepo struct{ tx *tx }

func (r *bookingRepo) Create(_ context.Context, booking *model.Booking) error {
	if _, ok := r.tx.st.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking: id %s already exists", booking.ID)
	}
	if !booking.Status.Valid() {
		return fmt.Errorf("create booking: unknown status %q", booking.Status)
	}
	if booking.Status.IsActive() && r.activeFor(booking.RequesterID, booking.SlotID, uuid.Nil) != nil {
		return repository.ErrDuplicateActiveBooking
	}
	now := r.tx.store.stamp()
	booking.BookedAt, booking.UpdatedAt = now, now
	r.tx.st.bookings[booking.ID] = *cloneBooking(*booking)
	return nil
}

func (r *bookingRepo) activeFor(requesterID, slotID, except uuid.UUID) *model.Booking {
	for _, b := range r.tx.st.bookings {
		if b.ID != except && b.RequesterID == requesterID && b.SlotID == slotID && b.Status.IsActive() {
			return cloneBooking(b)
		}
	}
	return nil
}

func (r *bookingRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	b, ok := r.tx.st.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) GetActiveByRequesterAndSlot(_ context.Context, requesterID, slotID uuid.UUID) (*model.Booking, error) {
	return r.activeFor(requesterID, slotID, uuid.Nil), nil
}

func (r *bookingRepo) CountActive(_ context.Context, slotID uuid.UUID, date, timeLabel string) (int, error) {
	n := 0
	for _, b := range r.tx.st.bookings {
		if b.SlotID == slotID && b.Date == date && b.Time == timeLabel && b.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *bookingRepo) Update(_ context.Context, booking *model.Booking) error {
	cur, ok := r.tx.st.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("update booking %s: not found", booking.ID)
	}
	if !booking.Status.Valid() {
		return fmt.Errorf("update booking %s: unknown status %q", booking.ID, booking.Status)
	}
	if booking.Status.IsActive() && r.activeFor(cur.RequesterID, cur.SlotID, cur.ID) != nil {
		return repository.ErrDuplicateActiveBooking
	}
	booking.UpdatedAt = r.tx.store.stamp()
	cur.Status = booking.Status
	cur.RejectionReason = booking.RejectionReason
	cur.Feedback = booking.Feedback
	cur.Rating = booking.Rating
	cur.UpdatedAt = booking.UpdatedAt
	r.tx.st.bookings[cur.ID] = *cloneBooking(cur)
	return nil
}

func (r *bookingRepo) DeleteBySlot(_ context.Context, slotID uuid.UUID) (int64, error) {
	var n int64
	for id, b := range r.tx.st.bookings {
		if b.SlotID == slotID {
			delete(r.tx.st.bookings, id)
			n++
		}
	}
	return n, nil
}

// summary joins a booking with its slot, profile and coaching the way the SQL
// does; bookings whose slot or profile is missing are dropped like an inner join.
func (r *bookingRepo) summary(b model.Booking) (*model.BookingSummary, uuid.UUID, bool) {
	slot, ok := r.tx.st.slots[b.SlotID]
	if !ok {
		return nil, uuid.Nil, false
	}
	profile, ok := r.tx.st.profiles[slot.ProfileID]
	if !ok {
		return nil, uuid.Nil, false
	}
	return &model.BookingSummary{
		Booking:          *cloneBooking(b),
		SlotTitle:        slot.Title,
		ProfileName:      profile.Name,
		OrganizationName: profile.OrganizationName,
	}, profile.OwnerID, true
}

func (r *bookingRepo) ListByRequester(_ context.Context, requesterID uuid.UUID, page repository.Page) ([]*model.BookingSummary, error) {
	var out []*model.BookingSummary
	for _, b := range r.tx.st.bookings {
		if b.RequesterID != requesterID {
			continue
		}
		if page.After != nil && !before(b.BookedAt, b.ID, page.After) {
			continue
		}
		if s, _, ok := r.summary(b); ok {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *model.BookingSummary) int {
		return newestFirst(a.BookedAt, a.ID, b.BookedAt, b.ID)
	})
	if len(out) > page.Size() {
		out = out[:page.Size()]
	}
	return out, nil
}

func (r *bookingRepo) ListPendingByOwner(_ context.Context, ownerID uuid.UUID) ([]*model.BookingSummary, error) {
	var out []*model.BookingSummary
	for _, b := range r.tx.st.bookings {
		if b.Status != model.BookingStatusPending {
			continue
		}
		if s, owner, ok := r.summary(b); ok && owner == ownerID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *model.BookingSummary) int {
		return -newestFirst(a.BookedAt, a.ID, b.BookedAt, b.ID)
	})
	return out, nil
}

type profileRepo struct{ tx *tx }

func (r *profileRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	p, ok := r.tx.st.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) GetCourse(_ context.Context, id uuid.UUID) (*model.Course, error) {
	c, ok := r.tx.st.courses[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type userRepo struct{ tx *tx }

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.tx.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	for _, u := range r.tx.st.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, nil
}

type outboxRepo struct{ tx *tx }

func (r *outboxRepo) Insert(_ context.Context, event *model.OutboxEvent) error {
	r.tx.st.outboxID++
	event.ID = r.tx.st.outboxID
	event.CreatedAt = r.tx.store.stamp()
	e := *event
	e.Payload = slices.Clone(event.Payload)
	r.tx.st.outbox = append(r.tx.st.outbox, e)
	return nil
}

func (r *outboxRepo) FetchUnpublished(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent
	for _, e := range r.tx.st.outbox {
		if len(out) == limit {
			break
		}
		if e.PublishedAt == nil {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(_ context.Context, ids []int64) error {
	now := r.tx.store.stamp()
	for i := range r.tx.st.outbox {
		if slices.Contains(ids, r.tx.st.outbox[i].ID) {
			r.tx.st.outbox[i].PublishedAt = &now
		}
	}
	return nil
}
