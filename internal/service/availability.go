package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
)

// AvailabilityGuard is the only place that decides whether one more booking
// fits a (date, time) pair. It never writes.
type AvailabilityGuard struct {
	tx repository.TxManager
}

func NewAvailabilityGuard(tx repository.TxManager) *AvailabilityGuard {
	return &AvailabilityGuard{tx: tx}
}

// PairAvailability is the remaining capacity of one published (date, time) pair.
type PairAvailability struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Remaining int    `json:"remaining"`
}

// RemainingCapacity reads the slot and its active bookings in one transaction.
func (g *AvailabilityGuard) RemainingCapacity(ctx context.Context, slotID uuid.UUID, date, timeLabel string) (int, error) {
	if label, err := model.NormalizeTimeLabel(timeLabel); err == nil {
		timeLabel = label
	}
	var remaining int
	err := g.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		slot, err := repos.Slots.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
		}
		remaining, err = g.remaining(ctx, repos.Bookings, slot, date, timeLabel)
		return err
	})
	return remaining, err
}

func (g *AvailabilityGuard) IsBookable(ctx context.Context, slot *model.Slot, date, timeLabel string) (bool, error) {
	var ok bool
	err := g.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ok, err = g.bookable(ctx, repos.Bookings, slot, date, timeLabel)
		return err
	})
	return ok, err
}

// Matrix returns the remaining capacity of every published pair, dates outer.
func (g *AvailabilityGuard) Matrix(ctx context.Context, slot *model.Slot) ([]PairAvailability, error) {
	var out []PairAvailability
	err := g.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		out = make([]PairAvailability, 0, len(slot.Dates)*len(slot.TimeSlots))
		for _, date := range slot.Dates {
			for _, label := range slot.TimeSlots {
				n, err := g.remaining(ctx, repos.Bookings, slot, date, label)
				if err != nil {
					return err
				}
				out = append(out, PairAvailability{Date: date, Time: label, Remaining: n})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// remaining is capacity minus active bookings on the pair. A negative result
// means capacity was already oversold and is reported as zero.
func (g *AvailabilityGuard) remaining(ctx context.Context, bookings repository.BookingRepository, slot *model.Slot, date, timeLabel string) (int, error) {
	active, err := bookings.CountActive(ctx, slot.ID, date, timeLabel)
	if err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return max(slot.Capacity-active, 0), nil
}

// bookable must run inside the transaction that holds the slot lock when its
// answer is used to insert.
func (g *AvailabilityGuard) bookable(ctx context.Context, bookings repository.BookingRepository, slot *model.Slot, date, timeLabel string) (bool, error) {
	if !slot.IsScheduled() || !slot.Offers(date, timeLabel) {
		return false, nil
	}
	n, err := g.remaining(ctx, bookings, slot, date, timeLabel)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
