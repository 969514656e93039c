package service

import (
	"context"
	"iter"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/Freeeeeet/demo_booking/internal/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by every component.
type Deps struct {
	Tx       repository.TxManager
	Notifier notify.Notifier
	Logger   *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// MaxAttempts bounds retries of a transaction that lost a race. Defaults to 5.
	MaxAttempts int
}

// Services wires the booking core together.
type Services struct {
	Ownership    *OwnershipGuard
	Availability *AvailabilityGuard
	Slots        *SlotCatalog
	Bookings     *BookingLedger
	Approvals    *ApprovalWorkflow
	Users        *UserService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 5
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLogNotifier(d.Logger)
	}

	rn := &runner{tx: d.Tx, logger: d.Logger, maxAttempts: d.MaxAttempts}
	ownership := NewOwnershipGuard(d.Tx)
	availability := NewAvailabilityGuard(d.Tx)
	notifier := newNotifierPort(d.Notifier, d.Logger)

	return &Services{
		Ownership:    ownership,
		Availability: availability,
		Slots:        newSlotCatalog(rn, availability, d.Logger),
		Bookings:     newBookingLedger(rn, availability, notifier, d.Logger, d.Now),
		Approvals:    newApprovalWorkflow(rn, notifier, d.Logger, d.Now),
		Users:        NewUserService(d.Tx),
	}
}

// runner executes one logical operation as a single transaction, re-running
// it from the start when the store reports a conflict with a concurrent one.
type runner struct {
	tx          repository.TxManager
	logger      *zap.Logger
	maxAttempts int
}

func (r *runner) do(ctx context.Context, op string, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		return r.tx.WithTx(ctx, fn)
	},
		retry.WithMaxAttempts(r.maxAttempts),
		retry.WithRetryIf(repository.IsTxConflict),
		retry.WithLogger(r.logger, op),
	)
}

// paginate turns a page fetcher into a lazy sequence. Each page is read in
// its own short transaction, and every range over the result starts again
// from the first page.
func paginate[T any](
	ctx context.Context,
	tx repository.TxManager,
	fetch func(ctx context.Context, repos repository.Repositories, page repository.Page) ([]T, error),
	cursor func(T) repository.Cursor,
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		page := repository.Page{Limit: repository.DefaultPageSize}
		for {
			var batch []T
			err := tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
				var err error
				batch, err = fetch(ctx, repos, page)
				return err
			})
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range batch {
				if !yield(item, nil) {
					return
				}
			}
			if len(batch) < page.Size() {
				return
			}
			c := cursor(batch[len(batch)-1])
			page.After = &c
		}
	}
}

// Collect drains a sequence, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func requirePrincipal(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}
