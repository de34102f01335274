package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy runs an operation on a fixed backoff schedule.
// The number of attempts is max(1, min(MaxAttempts, len(Backoffs))) and Backoffs[i] is the
// pause after failed attempt i. Errors rejected by Retryable end the loop immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoffs    []time.Duration
	Retryable   func(error) bool
	Sleep       SleepFunc
	Logger      *zap.Logger
}

// DefaultBackoffs is the 2s/4s/8s schedule used against the upstream API
var DefaultBackoffs = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// NewRetryPolicy creates a policy with a context-aware sleep
func NewRetryPolicy(maxAttempts int, backoffs []time.Duration, retryable func(error) bool, logger *zap.Logger) *RetryPolicy {
	if len(backoffs) == 0 {
		backoffs = DefaultBackoffs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoffs:    backoffs,
		Retryable:   retryable,
		Sleep:       sleepContext,
		Logger:      logger,
	}
}

// Attempts returns the bounded attempt count
func (p *RetryPolicy) Attempts() int {
	attempts := p.MaxAttempts
	if len(p.Backoffs) < attempts {
		attempts = len(p.Backoffs)
	}
	if attempts < 1 {
		attempts = 1
	}
	return attempts
}

// Do calls fn until it succeeds, returns a non-retryable error, or the attempts run out.
// When the attempts run out the last error is returned wrapped with the attempt count.
func (p *RetryPolicy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts()
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 0 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt+1))
			}
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts-1 {
			break
		}

		delay := p.Backoffs[attempt]
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr))

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return &RetriesExhaustedError{Operation: operation, Attempts: attempts, Err: lastErr}
}

// RetriesExhaustedError reports the last failure of an operation that used its whole budget
type RetriesExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
