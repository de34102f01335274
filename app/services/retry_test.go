package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestRetryPolicyAttempts(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		backoffs    []time.Duration
		expected    int
	}{
		{"bounded by backoffs", 5, DefaultBackoffs, 3},
		{"bounded by max attempts", 2, DefaultBackoffs, 2},
		{"zero max attempts still runs once", 0, DefaultBackoffs, 1},
		{"negative max attempts still runs once", -3, DefaultBackoffs, 1},
		{"empty backoffs still runs once", 4, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &RetryPolicy{MaxAttempts: tt.maxAttempts, Backoffs: tt.backoffs}
			assert.Equal(t, tt.expected, p.Attempts())
		})
	}
}

func TestRetryPolicyDo(t *testing.T) {
	errTransient := errors.New("connection reset")
	errFatal := errors.New("bad request")

	newPolicy := func(rec *sleepRecorder) *RetryPolicy {
		p := NewRetryPolicy(3, DefaultBackoffs, func(err error) bool {
			return !errors.Is(err, errFatal)
		}, nil)
		p.Sleep = rec.sleep
		return p
	}

	t.Run("succeeds after two failures", func(t *testing.T) {
		rec := &sleepRecorder{}
		calls := 0
		err := newPolicy(rec).Do(context.Background(), "test", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		rec := &sleepRecorder{}
		calls := 0
		err := newPolicy(rec).Do(context.Background(), "test", func(ctx context.Context) error {
			calls++
			return errTransient
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, errTransient)
		var exhausted *RetriesExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.Equal(t, 3, calls)
		assert.Len(t, rec.delays, 2, "no sleep after the final attempt")
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		rec := &sleepRecorder{}
		calls := 0
		err := newPolicy(rec).Do(context.Background(), "test", func(ctx context.Context) error {
			calls++
			return errFatal
		})

		assert.Same(t, errFatal, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewRetryPolicy(3, []time.Duration{time.Hour, time.Hour, time.Hour}, nil, nil)
		calls := 0
		err := p.Do(ctx, "test", func(ctx context.Context) error {
			calls++
			cancel()
			return errTransient
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
