// Package retry re-runs an operation that lost a race with a concurrent one.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

type Func func(ctx context.Context) error

type config struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryIf      func(error) bool
	logger       *zap.Logger
	operation    string
}

type Option func(*config) error

// Do runs fn until it succeeds, returns an error retryIf rejects, or
// maxAttempts is reached. Delays grow as baseDelay * 2^(attempt-1) plus jitter.
// Without WithRetryIf nothing is retried.
func Do(ctx context.Context, fn Func, options ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		retryIf:      func(error) bool { return false },
		logger:       zap.NewNop(),
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter only
			backoff := delay + time.Duration(jitter)

			cfg.logger.Debug("Retrying after conflict",
				zap.String("operation", cfg.operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.retryIf(lastErr) {
			return lastErr
		}
	}

	cfg.logger.Warn("Retries exhausted",
		zap.String("operation", cfg.operation),
		zap.Int("attempts", cfg.maxAttempts),
		zap.Error(lastErr),
	)

	return lastErr
}

func WithMaxAttempts(attempts int) Option {
	return func(c *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the first backoff. Later ones double: d, 2d, 4d, ...
func WithBaseDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = delay
		return nil
	}
}

func WithJitterFactor(factor float64) Option {
	return func(c *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = factor
		return nil
	}
}

// WithRetryIf selects which errors are worth another attempt.
func WithRetryIf(pred func(error) bool) Option {
	return func(c *config) error {
		if pred != nil {
			c.retryIf = pred
		}
		return nil
	}
}

func WithLogger(logger *zap.Logger, operation string) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		c.operation = operation
		return nil
	}
}
