// Package resilience provides retry with exponential backoff and
// per-operation circuit breaking for calls to remote APIs.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Classification tells the retrier how to treat a failed attempt.
type Classification struct {
	Retryable     bool
	RecordFailure bool
}

// Classifier maps an error to a Classification.
type Classifier func(err error) Classification

// Notify receives a human-readable notice before each retry.
type Notify func(msg string)

// Retrier runs operations with retries and an optional circuit breaker.
type Retrier struct {
	cfg        Config
	classifier Classifier
	onRetry    func(operation string)
	wait       func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithRetryObserver registers a hook called on every retry, e.g. for metrics.
func WithRetryObserver(fn func(operation string)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// New creates a Retrier. A nil classifier treats every error as permanent.
func New(cfg Config, classifier Classifier, opts ...Option) *Retrier {
	if classifier == nil {
		classifier = permanent
	}
	r := &Retrier{
		cfg:        cfg.normalize(),
		classifier: classifier,
		wait:       sleep,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
// notify, when non-nil, is called before every retry.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(context.Context) error, notify Notify) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}

	if !r.cfg.BreakerEnabled {
		return r.retry(ctx, op, fn, notify)
	}

	_, err := r.breaker(op).Execute(func() (any, error) {
		return nil, r.retry(ctx, op, fn, notify)
	})
	return err
}

func (r *Retrier) retry(ctx context.Context, op string, fn func(context.Context) error, notify Notify) error {
	backoff := r.cfg.InitialBackoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return &interruptedError{last: err, cause: cerr}
		}
		if !r.classifier(err).Retryable || attempt >= r.cfg.MaxAttempts {
			return err
		}

		slog.Warn("retry_attempt",
			"operation", op,
			"attempt", attempt,
			"max_attempts", r.cfg.MaxAttempts,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		if notify != nil {
			notify(fmt.Sprintf("Temporary error, will retry. (%v)", err))
		}
		if r.onRetry != nil {
			r.onRetry(op)
		}

		if werr := r.wait(ctx, backoff); werr != nil {
			return &interruptedError{last: err, cause: werr}
		}
		backoff = time.Duration(float64(backoff) * r.cfg.Multiplier)
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

func (r *Retrier) breaker(op string) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[op]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        op,
		MaxRequests: r.cfg.BreakerHalfOpenMax,
		Timeout:     r.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < r.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= r.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			var interrupted *interruptedError
			if errors.As(err, &interrupted) {
				return true
			}
			return err == nil || !r.classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	b := gobreaker.NewCircuitBreaker[any](settings)
	r.breakers[op] = b
	return b
}

// interruptedError is returned when the caller's context ends between attempts.
// It matches both the last attempt's error and the context error, and is not
// counted as a breaker failure.
type interruptedError struct {
	last  error
	cause error
}

func (e *interruptedError) Error() string {
	return fmt.Sprintf("%v (retry interrupted: %v)", e.last, e.cause)
}

func (e *interruptedError) Unwrap() []error { return []error{e.cause, e.last} }

// IsCircuitOpen reports whether err was produced by an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func permanent(error) Classification {
	return Classification{Retryable: false, RecordFailure: true}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
