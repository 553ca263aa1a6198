package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetryPolicy bounds retries around remote port calls.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // wait after the first failure
	MaxDelay    time.Duration // upper bound for any single wait
	Multiplier  float64       // growth factor between waits
}

// DefaultRetryPolicy returns 3 attempts, 200ms doubling, capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait before attempt n+1, after n failures.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 1; i < n; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Retrier re-runs transient failures with exponential backoff.
// A nil *Retrier runs the operation exactly once.
type Retrier struct {
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier. MaxAttempts below 1 is treated as 1.
func NewRetrier(policy RetryPolicy, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &Retrier{policy: policy, logger: logger, sleep: sleepContext}
}

// Policy returns the retry policy.
func (r *Retrier) Policy() RetryPolicy {
	if r == nil {
		return RetryPolicy{MaxAttempts: 1}
	}
	return r.policy
}

// Do runs fn until it succeeds, fails permanently, attempts run out, or ctx
// is done. The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r == nil {
		return fn(ctx)
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= r.policy.MaxAttempts || !retryable(err) {
			return err
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("retrying after transient failure",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

// Retry is Do for operations that return a value.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// retryable reports whether err may succeed on another attempt.
// Caller cancellation and input or configuration faults are permanent.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConfiguration, domain.KindNotInitialized:
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
