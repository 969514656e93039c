package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusScheduled SlotStatus = "scheduled"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusCancelled SlotStatus = "cancelled"
)

func (s SlotStatus) Valid() bool {
	return s == SlotStatusScheduled || s == SlotStatusCompleted || s == SlotStatusCancelled
}

type DeliveryMode string

const (
	DeliveryModeInPerson DeliveryMode = "in_person"
	DeliveryModeOnline   DeliveryMode = "online"
)

func (m DeliveryMode) Valid() bool {
	return m == DeliveryModeInPerson || m == DeliveryModeOnline
}

const (
	DateLayout       = "2006-01-02"
	ClockLayout      = "15:04"
	TimeLabelSep     = "-"
	SlotCodePrefix   = "DEMO-"
	slotCodeLength   = 6
	slotCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Slot is one demo-session offering published by a coaching profile.
type Slot struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	ProfileID uuid.UUID `json:"profile_id"`
	CourseID  uuid.UUID `json:"course_id"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Instructor  string   `json:"instructor"`
	Subjects    []string `json:"subjects"`
	Topics      []string `json:"topics"`

	Mode        DeliveryMode `json:"mode"`
	Address     string       `json:"address"`
	Landmark    string       `json:"landmark,omitempty"`
	MeetingLink string       `json:"meeting_link,omitempty"`

	Dates     []string `json:"dates"`
	TimeSlots []string `json:"time_slots"`
	Capacity  int      `json:"capacity"` // per (date, time) pair

	Status      SlotStatus `json:"status"`
	IsFree      bool       `json:"is_free"`
	Price       int64      `json:"price"` // minor units
	AutoConfirm bool       `json:"auto_confirm"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Offers reports whether (date, timeLabel) is one of the published candidates.
func (s *Slot) Offers(date, timeLabel string) bool {
	return slices.Contains(s.Dates, date) && slices.Contains(s.TimeSlots, timeLabel)
}

// OffersSubject reports whether subject is one of the published subjects.
func (s *Slot) OffersSubject(subject string) bool {
	return slices.Contains(s.Subjects, subject)
}

func (s *Slot) IsScheduled() bool {
	return s.Status == SlotStatusScheduled
}

// ParseTimeLabel splits "10:00-11:00" into its start and end clock times.
func ParseTimeLabel(label string) (start, end time.Time, err error) {
	from, to, ok := strings.Cut(label, TimeLabelSep)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("time label %q must look like 10:00-11:00", label)
	}
	start, err = time.Parse(ClockLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("time label %q: bad start", label)
	}
	end, err = time.Parse(ClockLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("time label %q: bad end", label)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("time label %q: end must be after start", label)
	}
	return start, end, nil
}

// NormalizeTimeLabel rewrites a parseable label to the canonical
// "HH:MM-HH:MM" form, so "9:00 - 10:00" and "09:00-10:00" compare equal.
func NormalizeTimeLabel(label string) (string, error) {
	start, end, err := ParseTimeLabel(strings.TrimSpace(label))
	if err != nil {
		return "", err
	}
	return start.Format(ClockLayout) + TimeLabelSep + end.Format(ClockLayout), nil
}

// SessionStart returns the UTC instant a (date, time label) pair begins.
func SessionStart(date, label string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must look like 2024-02-01", date)
	}
	start, _, err := ParseTimeLabel(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, time.UTC), nil
}

// NewSlotCode derives a human-facing short code from a fresh uuid.
func NewSlotCode() string {
	id := uuid.New()
	var b strings.Builder
	b.WriteString(SlotCodePrefix)
	for i := 0; i < slotCodeLength; i++ {
		b.WriteByte(slotCodeAlphabet[int(id[i])%len(slotCodeAlphabet)])
	}
	return b.String()
}
