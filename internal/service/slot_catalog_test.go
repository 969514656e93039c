package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SlotCatalog_Create(t *testing.T) {
	f := newFixture(t)

	slot := f.createSlot(t, 2)

	assert.Equal(t, model.SlotStatusScheduled, slot.Status)
	assert.True(t, strings.HasPrefix(slot.Code, model.SlotCodePrefix))
	assert.Len(t, slot.Code, len(model.SlotCodePrefix)+6)
	assert.Equal(t, f.profile.ID, slot.ProfileID)
	assert.False(t, slot.CreatedAt.IsZero())
}

func Test_SlotCatalog_Create_Validation(t *testing.T) {
	cases := map[string]func(in *SlotInput){
		"blank title":          func(in *SlotInput) { in.Title = "  " },
		"blank instructor":     func(in *SlotInput) { in.Instructor = "" },
		"no subjects":          func(in *SlotInput) { in.Subjects = []string{" "} },
		"no dates":             func(in *SlotInput) { in.Dates = nil },
		"bad date":             func(in *SlotInput) { in.Dates = []string{"01/02/2024"} },
		"no times":             func(in *SlotInput) { in.TimeSlots = nil },
		"inverted time":        func(in *SlotInput) { in.TimeSlots = []string{"11:00-10:00"} },
		"only bad times":       func(in *SlotInput) { in.TimeSlots = []string{"morning", "25:00-26:00"} },
		"zero capacity":        func(in *SlotInput) { in.Capacity = 0 },
		"in person no address": func(in *SlotInput) { in.Address = "" },
		"online no link":       func(in *SlotInput) { in.Mode = model.DeliveryModeOnline },
		"unknown mode":         func(in *SlotInput) { in.Mode = "hybrid" },
		"negative price":       func(in *SlotInput) { in.IsFree = false; in.Price = -1 },
		"no course":            func(in *SlotInput) { in.CourseID = uuid.Nil },
		"foreign course":       func(in *SlotInput) { in.CourseID = uuid.New() },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			in := f.slotInput(1)
			mutate(&in)

			_, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, in)

			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func Test_SlotCatalog_Create_Authorization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Slots.Create(context.Background(), uuid.Nil, f.profile.ID, f.slotInput(1))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Slots.Create(context.Background(), f.stranger, f.profile.ID, f.slotInput(1))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Slots.Create(context.Background(), f.owner, uuid.New(), f.slotInput(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_SlotCatalog_Create_NormalizesLists(t *testing.T) {
	f := newFixture(t)
	in := f.slotInput(1)
	in.Subjects = []string{" Physics ", "Physics", "", "Maths"}
	in.IsFree = true
	in.Price = 500

	slot, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, in)

	require.NoError(t, err)
	assert.Equal(t, []string{"Physics", "Maths"}, slot.Subjects)
	assert.Zero(t, slot.Price, "free slots carry no price")
}

func Test_SlotCatalog_Create_CanonicalTimeLabels(t *testing.T) {
	f := newFixture(t)
	in := f.slotInput(1)
	in.TimeSlots = []string{"10:00-11:00", "10:00 - 11:00", " 9:00-10:00", "9:30 -10:15"}

	slot, err := f.svc.Slots.Create(context.Background(), f.owner, f.profile.ID, in)

	require.NoError(t, err)
	assert.Equal(t, []string{"10:00-11:00", "09:00-10:00", "09:30-10:15"}, slot.TimeSlots)
}

func Test_SlotCatalog_Update(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	title := "Physics crash course demo"
	auto := true

	updated, err := f.svc.Slots.Update(context.Background(), f.owner, slot.ID, SlotPatch{
		Title:       &title,
		Dates:       []string{"2024-03-01"},
		AutoConfirm: &auto,
	})

	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, []string{"2024-03-01"}, updated.Dates)
	assert.True(t, updated.AutoConfirm)
	assert.Equal(t, slot.Code, updated.Code)
	assert.Equal(t, "R. Iyer", updated.Instructor, "untouched fields survive")
}

func Test_SlotCatalog_Update_Errors(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	empty := ""

	_, err := f.svc.Slots.Update(context.Background(), f.owner, uuid.New(), SlotPatch{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Slots.Update(context.Background(), f.stranger, slot.ID, SlotPatch{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Slots.Update(context.Background(), f.owner, slot.ID, SlotPatch{Title: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

func Test_SlotCatalog_Update_CapacityBelowActiveBookings(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	f.mustBook(t, f.requesterA, slot.ID)
	f.mustBook(t, f.requesterB, slot.ID)
	one := 1

	_, err := f.svc.Slots.Update(context.Background(), f.owner, slot.ID, SlotPatch{Capacity: &one})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func Test_SlotCatalog_Delete_CascadesToBookings(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	booking := f.mustBook(t, f.requesterA, slot.ID)

	_, err := f.svc.Slots.Delete(context.Background(), f.stranger, slot.ID)
	require.ErrorIs(t, err, ErrForbidden)

	removed, err := f.svc.Slots.Delete(context.Background(), f.owner, slot.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	_, err = f.svc.Slots.Get(context.Background(), slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Bookings.Cancel(context.Background(), booking.ID, f.requesterA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_SlotCatalog_SetStatus(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, 2)
	booking := f.mustBook(t, f.requesterA, slot.ID)

	cancelled, err := f.svc.Slots.SetStatus(context.Background(), f.owner, slot.ID, model.SlotStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCancelled, cancelled.Status)

	_, err = f.svc.Slots.SetStatus(context.Background(), f.owner, slot.ID, model.SlotStatusCancelled)
	assert.NoError(t, err, "repeating the current status is a no-op")

	_, err = f.svc.Slots.SetStatus(context.Background(), f.owner, slot.ID, model.SlotStatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.Slots.SetStatus(context.Background(), f.owner, slot.ID, "archived")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.book(f.requesterB, slot.ID, demoDate, demoTime)
	assert.ErrorIs(t, err, ErrInvalidState, "only scheduled slots accept bookings")

	mine, err := Collect(f.svc.Bookings.ListForRequester(context.Background(), f.requesterA))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, booking.ID, mine[0].ID)
	assert.Equal(t, model.BookingStatusPending, mine[0].Status, "cancelling a slot leaves bookings untouched")
}

func Test_SlotCatalog_List(t *testing.T) {
	// arrange
	f := newFixture(t)
	var ids []uuid.UUID
	for i := 0; i < 53; i++ {
		ids = append(ids, f.createSlot(t, 1).ID)
	}
	_, err := f.svc.Slots.SetStatus(context.Background(), f.owner, ids[0], model.SlotStatusCompleted)
	require.NoError(t, err)

	// act
	seq := f.svc.Slots.List(context.Background(), f.profile.ID, nil)
	all, err := Collect(seq)
	require.NoError(t, err)
	again, err := Collect(seq)
	require.NoError(t, err)

	completed := model.SlotStatusCompleted
	onlyCompleted, err := Collect(f.svc.Slots.List(context.Background(), f.profile.ID, &completed))
	require.NoError(t, err)

	// assert
	require.Len(t, all, 53, "crosses a page boundary")
	assert.Equal(t, ids[52], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[52].ID)
	assert.Len(t, again, 53, "the sequence restarts on every range")
	require.Len(t, onlyCompleted, 1)
	assert.Equal(t, ids[0], onlyCompleted[0].ID)
}

func Test_SlotCatalog_List_StopsEarly(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createSlot(t, 1)
	}

	n := 0
	for _, err := range f.svc.Slots.List(context.Background(), f.profile.ID, nil) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}

	assert.Equal(t, 2, n)
}
