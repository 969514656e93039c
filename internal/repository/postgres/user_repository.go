package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
	"github.com/google/uuid"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(db base.Querier) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(db)}
}

const userSelect = `
	SELECT id, telegram_id, name, email, phone, created_at
	FROM users
`

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := scanUser(r.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetByTelegramID получает пользователя по привязанному Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := scanUser(r.QueryRow(ctx, userSelect+` WHERE telegram_id = $1`, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}
