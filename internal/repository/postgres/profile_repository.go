package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
	"github.com/google/uuid"
)

type ProfileRepository struct {
	*base.Repository
}

func NewProfileRepository(db base.Querier) *ProfileRepository {
	return &ProfileRepository{Repository: base.NewRepository(db)}
}

// GetByID resolves the profile together with the owner of its coaching entity.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `
		SELECT p.id, p.coaching_id, c.owner_id, p.name, c.name, p.contact_number
		FROM profiles p
		JOIN coachings c ON c.id = p.coaching_id
		WHERE p.id = $1
	`

	var p model.Profile
	err := r.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.CoachingID,
		&p.OwnerID,
		&p.Name,
		&p.OrganizationName,
		&p.ContactNumber,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile by id: %w", err)
	}

	return &p, nil
}

func (r *ProfileRepository) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	var c model.Course
	err := r.QueryRow(ctx, `SELECT id, profile_id, name FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.ProfileID, &c.Name)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return &c, nil
}
