package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/google/uuid"
)

// Lookups return (nil, nil) when the row does not exist.

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// GetByIDForUpdate locks the slot row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID, status *model.SlotStatus, page Page) ([]*model.Slot, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetActiveByRequesterAndSlot(ctx context.Context, requesterID, slotID uuid.UUID) (*model.Booking, error)
	CountActive(ctx context.Context, slotID uuid.UUID, date, timeLabel string) (int, error)
	Update(ctx context.Context, booking *model.Booking) error
	DeleteBySlot(ctx context.Context, slotID uuid.UUID) (int64, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, page Page) ([]*model.BookingSummary, error)
	ListPendingByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.BookingSummary, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, event *model.OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Repositories is the set of repositories bound to one transaction.
type Repositories struct {
	Slots    SlotRepository
	Bookings BookingRepository
	Profiles ProfileRepository
	Users    UserRepository
	Outbox   OutboxRepository
}

// TxManager runs fn inside a single transaction. fn's error rolls it back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}

// Cursor points at the last row of the previous page in (created_at DESC, id DESC) order.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type Page struct {
	After *Cursor
	Limit int
}

const DefaultPageSize = 50

func (p Page) Size() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}
	return p.Limit
}
