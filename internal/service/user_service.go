package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/google/uuid"
)

// UserService resolves principals for the chat console, which only knows
// the caller's Telegram ID.
type UserService struct {
	tx repository.TxManager
}

func NewUserService(tx repository.TxManager) *UserService {
	return &UserService{tx: tx}
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user *model.User
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByTelegramID(ctx, telegramID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no account linked to telegram id %d", ErrNotFound, telegramID)
	}
	return user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user *model.User
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, nil
}
