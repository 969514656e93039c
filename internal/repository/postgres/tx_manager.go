package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func newRepositories(db base.Querier) repository.Repositories {
	return repository.Repositories{
		Slots:    NewSlotRepository(db),
		Bookings: NewBookingRepository(db),
		Profiles: NewProfileRepository(db),
		Users:    NewUserRepository(db),
		Outbox:   NewOutboxRepository(db),
	}
}

// WithTx runs fn in a read-committed transaction. Serialization failures and
// deadlocks are reported wrapped in repository.ErrTxConflict.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
		if isRetryable(err) {
			err = fmt.Errorf("%w: %w", repository.ErrTxConflict, err)
		}
	}()

	if err = fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}
