package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotInput is the full set of owner-supplied fields of a new slot.
type SlotInput struct {
	CourseID    uuid.UUID
	Title       string
	Description string
	Instructor  string
	Subjects    []string
	Topics      []string
	Mode        model.DeliveryMode
	Address     string
	Landmark    string
	MeetingLink string
	Dates       []string
	TimeSlots   []string
	Capacity    int
	IsFree      bool
	Price       int64
	AutoConfirm bool
}

// SlotPatch holds the editable fields; nil leaves a field unchanged.
type SlotPatch struct {
	Title       *string
	Description *string
	Instructor  *string
	Subjects    []string
	Topics      []string
	Mode        *model.DeliveryMode
	Address     *string
	Landmark    *string
	MeetingLink *string
	Dates       []string
	TimeSlots   []string
	Capacity    *int
	IsFree      *bool
	Price       *int64
	AutoConfirm *bool
}

type SlotCatalog struct {
	run          *runner
	availability *AvailabilityGuard
	logger       *zap.Logger
}

func newSlotCatalog(run *runner, availability *AvailabilityGuard, logger *zap.Logger) *SlotCatalog {
	return &SlotCatalog{run: run, availability: availability, logger: logger}
}

// Create publishes a new Scheduled slot under profileID.
func (c *SlotCatalog) Create(ctx context.Context, principalID, profileID uuid.UUID, in SlotInput) (*model.Slot, error) {
	if err := requirePrincipal(principalID); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		ID:          uuid.New(),
		Code:        model.NewSlotCode(),
		ProfileID:   profileID,
		CourseID:    in.CourseID,
		Title:       in.Title,
		Description: in.Description,
		Instructor:  in.Instructor,
		Subjects:    in.Subjects,
		Topics:      in.Topics,
		Mode:        in.Mode,
		Address:     in.Address,
		Landmark:    in.Landmark,
		MeetingLink: in.MeetingLink,
		Dates:       in.Dates,
		TimeSlots:   in.TimeSlots,
		Capacity:    in.Capacity,
		Status:      model.SlotStatusScheduled,
		IsFree:      in.IsFree,
		Price:       in.Price,
		AutoConfirm: in.AutoConfirm,
	}

	err := c.run.do(ctx, "slot.create", func(ctx context.Context, repos repository.Repositories) error {
		if _, err := requireProfileOwner(ctx, repos, principalID, profileID); err != nil {
			return err
		}
		if err := normalizeSlot(slot); err != nil {
			return err
		}

		course, err := repos.Profiles.GetCourse(ctx, slot.CourseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if course == nil || course.ProfileID != profileID {
			return fmt.Errorf("%w: course %s does not belong to profile %s", ErrValidation, slot.CourseID, profileID)
		}

		return repos.Slots.Create(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("code", slot.Code),
		zap.String("profile_id", profileID.String()),
		zap.Int("capacity", slot.Capacity),
	)

	return slot, nil
}

// Update merges patch into the slot and re-validates it. Capacity may not
// drop below the active bookings already held on any pair.
func (c *SlotCatalog) Update(ctx context.Context, principalID, slotID uuid.UUID, patch SlotPatch) (*model.Slot, error) {
	if err := requirePrincipal(principalID); err != nil {
		return nil, err
	}

	var slot *model.Slot
	err := c.run.do(ctx, "slot.update", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		slot, err = c.lockOwned(ctx, repos, principalID, slotID)
		if err != nil {
			return err
		}

		patch.apply(slot)
		if err := normalizeSlot(slot); err != nil {
			return err
		}

		if patch.Capacity != nil {
			for _, date := range slot.Dates {
				for _, label := range slot.TimeSlots {
					active, err := repos.Bookings.CountActive(ctx, slot.ID, date, label)
					if err != nil {
						return fmt.Errorf("count active bookings: %w", err)
					}
					if active > slot.Capacity {
						return fmt.Errorf("%w: %d active bookings on %s %s exceed capacity %d",
							ErrInvalidState, active, date, label, slot.Capacity)
					}
				}
			}
		}

		return repos.Slots.Update(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Slot updated", zap.String("slot_id", slotID.String()))
	return slot, nil
}

// Delete removes the slot and every booking referencing it. It returns the
// number of bookings removed.
func (c *SlotCatalog) Delete(ctx context.Context, principalID, slotID uuid.UUID) (int64, error) {
	if err := requirePrincipal(principalID); err != nil {
		return 0, err
	}

	var removed int64
	err := c.run.do(ctx, "slot.delete", func(ctx context.Context, repos repository.Repositories) error {
		if _, err := c.lockOwned(ctx, repos, principalID, slotID); err != nil {
			return err
		}

		var err error
		removed, err = repos.Bookings.DeleteBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		return repos.Slots.Delete(ctx, slotID)
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("Slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.Int64("bookings_removed", removed),
	)
	return removed, nil
}

// SetStatus moves a Scheduled slot to Completed or Cancelled. Bookings are
// left as they are. Setting the current status again is a no-op.
func (c *SlotCatalog) SetStatus(ctx context.Context, principalID, slotID uuid.UUID, status model.SlotStatus) (*model.Slot, error) {
	if err := requirePrincipal(principalID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown slot status %q", ErrValidation, status)
	}

	var slot *model.Slot
	changed := false
	err := c.run.do(ctx, "slot.set_status", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		slot, err = c.lockOwned(ctx, repos, principalID, slotID)
		if err != nil {
			return err
		}
		if slot.Status == status {
			return nil
		}
		if !slot.IsScheduled() {
			return fmt.Errorf("%w: slot is %s", ErrInvalidState, slot.Status)
		}
		slot.Status = status
		changed = true
		return repos.Slots.Update(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.logger.Info("Slot status changed",
			zap.String("slot_id", slotID.String()),
			zap.String("status", string(status)),
		)
	}
	return slot, nil
}

func (c *SlotCatalog) Get(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	var slot *model.Slot
	err := c.run.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		slot, err = repos.Slots.GetByID(ctx, slotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	return slot, nil
}

// GetWithAvailability returns the slot with the remaining capacity of every pair.
func (c *SlotCatalog) GetWithAvailability(ctx context.Context, slotID uuid.UUID) (*model.Slot, []PairAvailability, error) {
	slot, err := c.Get(ctx, slotID)
	if err != nil {
		return nil, nil, err
	}
	matrix, err := c.availability.Matrix(ctx, slot)
	if err != nil {
		return nil, nil, err
	}
	return slot, matrix, nil
}

// List yields the profile's slots newest first, optionally filtered by status.
func (c *SlotCatalog) List(ctx context.Context, profileID uuid.UUID, status *model.SlotStatus) iter.Seq2[*model.Slot, error] {
	return paginate(ctx, c.run.tx,
		func(ctx context.Context, repos repository.Repositories, page repository.Page) ([]*model.Slot, error) {
			return repos.Slots.ListByProfile(ctx, profileID, status, page)
		},
		func(s *model.Slot) repository.Cursor {
			return repository.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
		},
	)
}

func (c *SlotCatalog) lockOwned(ctx context.Context, repos repository.Repositories, principalID, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := repos.Slots.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	profile, err := repos.Profiles.GetByID(ctx, slot.ProfileID)
	if err != nil {
		return nil, err
	}
	if !controls(principalID, profile) {
		return nil, fmt.Errorf("%w: slot %s belongs to another account", ErrForbidden, slotID)
	}
	return slot, nil
}

func (p SlotPatch) apply(s *model.Slot) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&s.Title, p.Title)
	setString(&s.Description, p.Description)
	setString(&s.Instructor, p.Instructor)
	setString(&s.Address, p.Address)
	setString(&s.Landmark, p.Landmark)
	setString(&s.MeetingLink, p.MeetingLink)

	if p.Subjects != nil {
		s.Subjects = p.Subjects
	}
	if p.Topics != nil {
		s.Topics = p.Topics
	}
	if p.Dates != nil {
		s.Dates = p.Dates
	}
	if p.TimeSlots != nil {
		s.TimeSlots = p.TimeSlots
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.Capacity != nil {
		s.Capacity = *p.Capacity
	}
	if p.IsFree != nil {
		s.IsFree = *p.IsFree
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.AutoConfirm != nil {
		s.AutoConfirm = *p.AutoConfirm
	}
}

// normalizeSlot trims and de-duplicates the slot's fields in place and
// enforces the publishing invariants.
func normalizeSlot(s *model.Slot) error {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.Instructor = strings.TrimSpace(s.Instructor)
	s.Address = strings.TrimSpace(s.Address)
	s.Landmark = strings.TrimSpace(s.Landmark)
	s.MeetingLink = strings.TrimSpace(s.MeetingLink)
	s.Subjects = cleanList(s.Subjects)
	s.Topics = cleanList(s.Topics)
	s.Dates = cleanList(s.Dates)
	if s.Mode == "" {
		s.Mode = model.DeliveryModeInPerson
	}

	var problems []string
	labels := make([]string, 0, len(s.TimeSlots))
	badLabels := 0
	for _, label := range s.TimeSlots {
		if strings.TrimSpace(label) == "" {
			continue
		}
		canonical, err := model.NormalizeTimeLabel(label)
		if err != nil {
			problems = append(problems, err.Error())
			badLabels++
			continue
		}
		labels = append(labels, canonical)
	}
	s.TimeSlots = cleanList(labels)

	if s.CourseID == uuid.Nil {
		problems = append(problems, "course is required")
	}
	if s.Title == "" {
		problems = append(problems, "title is required")
	}
	if s.Instructor == "" {
		problems = append(problems, "instructor is required")
	}
	if len(s.Subjects) == 0 {
		problems = append(problems, "at least one subject is required")
	}
	switch {
	case !s.Mode.Valid():
		problems = append(problems, fmt.Sprintf("unknown mode %q", s.Mode))
	case s.Mode == model.DeliveryModeInPerson && s.Address == "":
		problems = append(problems, "address is required for in-person sessions")
	case s.Mode == model.DeliveryModeOnline && s.MeetingLink == "":
		problems = append(problems, "meeting link is required for online sessions")
	}
	if len(s.Dates) == 0 {
		problems = append(problems, "at least one date is required")
	}
	for _, d := range s.Dates {
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			problems = append(problems, fmt.Sprintf("date %q must look like 2024-02-01", d))
		}
	}
	if len(s.TimeSlots) == 0 && badLabels == 0 {
		problems = append(problems, "at least one time slot is required")
	}
	if s.Capacity < 1 {
		problems = append(problems, "capacity must be at least 1")
	}
	if s.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if s.IsFree {
		s.Price = 0
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// cleanList trims entries and drops blanks and repeats, keeping first-seen order.
func cleanList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
