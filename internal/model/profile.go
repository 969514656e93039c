package model

import "github.com/google/uuid"

// Profile is a coaching profile. Ownership is resolved through the coaching
// entity: profile -> coaching -> owner.
type Profile struct {
	ID               uuid.UUID `json:"id"`
	CoachingID       uuid.UUID `json:"coaching_id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	Name             string    `json:"name"`
	OrganizationName string    `json:"organization_name"`
	ContactNumber    string    `json:"contact_number"`
}

type Course struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Name      string    `json:"name"`
}
