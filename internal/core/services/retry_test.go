package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(3))
	assert.Equal(t, 1600*time.Millisecond, p.Delay(4))
	assert.Equal(t, 2*time.Second, p.Delay(5))
	assert.Equal(t, 2*time.Second, p.Delay(12))
}

func recordingRetrier(policy RetryPolicy) (*Retrier, *[]time.Duration) {
	r := NewRetrier(policy, nil)
	var delays []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return r, &delays
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r, delays := recordingRetrier(DefaultRetryPolicy())
	attempts := 0

	err := r.Do(context.Background(), "embed", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, *delays)
}

func TestRetrier_GivesUpAfterMaxAttempts(t *testing.T) {
	r, delays := recordingRetrier(DefaultRetryPolicy())
	attempts := 0
	boom := errors.New("connection reset")

	err := r.Do(context.Background(), "generate", func(context.Context) error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Len(t, *delays, 2)
}

func TestRetrier_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", domain.NewError(domain.KindValidation, "bad input")},
		{"configuration", domain.NewError(domain.KindConfiguration, "bad config")},
		{"not initialized", domain.NewError(domain.KindNotInitialized, "missing port")},
		{"canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := recordingRetrier(DefaultRetryPolicy())
			attempts := 0
			err := r.Do(context.Background(), "op", func(context.Context) error {
				attempts++
				return tt.err
			})
			assert.Error(t, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetrier_StopsWhenContextDone(t *testing.T) {
	r, _ := recordingRetrier(DefaultRetryPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := r.Do(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errors.New("timeout")
	})

	assert.EqualError(t, err, "timeout")
	assert.Equal(t, 1, attempts)
}

func TestRetrier_NilRunsOnce(t *testing.T) {
	var r *Retrier
	attempts := 0

	err := r.Do(context.Background(), "op", func(context.Context) error {
		attempts++
		return errors.New("fail")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, r.Policy().MaxAttempts)
}

func TestRetry_ReturnsValue(t *testing.T) {
	r, _ := recordingRetrier(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})
	calls := 0

	v, err := Retry(context.Background(), r, "op", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
