package model

import (
	"time"

	"github.com/google/uuid"
)

// User is any principal: a requester, or the owner of a coaching entity.
type User struct {
	ID         uuid.UUID `json:"id"`
	TelegramID *int64    `json:"telegram_id"` // nil until the user links a chat
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
}
