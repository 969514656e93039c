package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
)

// OwnershipGuard answers whether a principal controls a profile, resolved
// through profile -> coaching -> owner, or a booking, through its slot.
type OwnershipGuard struct {
	tx repository.TxManager
}

func NewOwnershipGuard(tx repository.TxManager) *OwnershipGuard {
	return &OwnershipGuard{tx: tx}
}

// ControlsProfile reports false for unknown profiles.
func (g *OwnershipGuard) ControlsProfile(ctx context.Context, principalID, profileID uuid.UUID) (bool, error) {
	var ok bool
	err := g.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		profile, err := repos.Profiles.GetByID(ctx, profileID)
		if err != nil {
			return err
		}
		ok = controls(principalID, profile)
		return nil
	})
	return ok, err
}

// ControlsBooking reports false for unknown bookings.
func (g *OwnershipGuard) ControlsBooking(ctx context.Context, principalID, bookingID uuid.UUID) (bool, error) {
	var ok bool
	err := g.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil || booking == nil {
			return err
		}
		profile, err := profileOfSlot(ctx, repos, booking.SlotID)
		if err != nil {
			return err
		}
		ok = controls(principalID, profile)
		return nil
	})
	return ok, err
}

func controls(principalID uuid.UUID, profile *model.Profile) bool {
	return profile != nil && principalID != uuid.Nil && profile.OwnerID == principalID
}

// profileOfSlot returns nil when the slot or its profile is gone.
func profileOfSlot(ctx context.Context, repos repository.Repositories, slotID uuid.UUID) (*model.Profile, error) {
	slot, err := repos.Slots.GetByID(ctx, slotID)
	if err != nil || slot == nil {
		return nil, err
	}
	return repos.Profiles.GetByID(ctx, slot.ProfileID)
}

// requireProfileOwner loads the profile and fails NotFound or Forbidden.
func requireProfileOwner(ctx context.Context, repos repository.Repositories, principalID, profileID uuid.UUID) (*model.Profile, error) {
	profile, err := repos.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
	}
	if !controls(principalID, profile) {
		return nil, fmt.Errorf("%w: profile %s is controlled by another account", ErrForbidden, profileID)
	}
	return profile, nil
}
