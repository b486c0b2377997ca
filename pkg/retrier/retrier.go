// Package retrier provides exponential backoff with jitter for calls against
// flaky network collaborators.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultBaseInterval = 2 * time.Second
	defaultMaxInterval  = 1 * time.Minute
	defaultAttempts     = 4
	defaultJitter       = 0.2
)

// Retrier re-runs a failing function with exponentially growing pauses.
type Retrier struct {
	baseInterval time.Duration
	maxInterval  time.Duration
	attempts     int
	jitter       float64
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithBaseInterval sets the pause before the first retry.
func WithBaseInterval(d time.Duration) Option {
	return func(r *Retrier) { r.baseInterval = d }
}

// WithMaxInterval caps the pause between retries.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) { r.maxInterval = d }
}

// WithAttempts sets the total number of attempts, including the first one.
func WithAttempts(n int) Option {
	return func(r *Retrier) { r.attempts = n }
}

// New returns a Retrier with sane defaults and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		baseInterval: defaultBaseInterval,
		maxInterval:  defaultMaxInterval,
		attempts:     defaultAttempts,
		jitter:       defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.baseInterval

	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			pause := time.Duration(float64(interval) * (1 + (rand.Float64()*2-1)*r.jitter))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
			if interval *= 2; interval > r.maxInterval {
				interval = r.maxInterval
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

// DoWithData runs fn with retries and returns its value.
func DoWithData[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
