package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

// Retrier wraps a transport with bounded exponential backoff. Attempts are
// strictly sequential.
type Retrier struct {
	transport ports.Transport
	settings  domain.RetrySettings
	logger    ports.Logger
	sleeper   func(time.Duration)
}

// RetryOption customizes the retrier.
type RetryOption func(*Retrier)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
// Cancellation is still checked before and after each sleep.
func WithSleeper(sleeper func(time.Duration)) RetryOption {
	return func(r *Retrier) {
		r.sleeper = sleeper
	}
}

// NewRetrier wraps transport using settings.
func NewRetrier(transport ports.Transport, settings domain.RetrySettings, logger ports.Logger, opts ...RetryOption) *Retrier {
	retrier := &Retrier{
		transport: transport,
		settings:  settings,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(retrier)
	}
	return retrier
}

// Send implements ports.Transport so a Retrier can stand in for a transport.
func (r *Retrier) Send(ctx context.Context, prompt string) (domain.RawResponse, error) {
	return r.SendWithRetry(ctx, prompt)
}

// SendWithRetry makes up to settings.Attempts() calls. Between attempts it
// waits min(base*2^(attempt-1), max). On exhaustion the last failure is
// returned unchanged.
func (r *Retrier) SendWithRetry(ctx context.Context, prompt string) (domain.RawResponse, error) {
	attempts := r.settings.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := r.transport.Send(ctx, prompt)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("upstream request succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return resp, nil
		}
		lastErr = err

		if !r.shouldRetry(ctx, err, attempt, attempts) {
			return domain.RawResponse{}, err
		}

		delay := r.backoffDelay(attempt)
		r.logger.Warn("upstream attempt failed", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": attempts,
			"kind":         string(domain.KindOf(err)),
			"retry_in":     delay.String(),
			"error":        err.Error(),
		})
		if err := r.sleep(ctx, delay); err != nil {
			return domain.RawResponse{}, fmt.Errorf("retry wait: %w", err)
		}
	}

	return domain.RawResponse{}, lastErr
}

func (r *Retrier) shouldRetry(ctx context.Context, err error, attempt, maxAttempts int) bool {
	if attempt >= maxAttempts {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.ErrValidation, domain.ErrConfig, domain.ErrParse:
		return false
	case domain.ErrAuth:
		return !r.settings.SkipOnAuth
	default:
		return true
	}
}

// backoffDelay returns the wait after the given 1-based attempt:
// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, capped at max.
func (r *Retrier) backoffDelay(attempt int) time.Duration {
	base := r.settings.BaseDelay()
	maxDelay := r.settings.MaxDelay()
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (r *Retrier) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.sleeper != nil {
		r.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ports.Transport = (*Retrier)(nil)
