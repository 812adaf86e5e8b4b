// Package resilience guards the durable store with a circuit breaker. Domain
// outcomes such as NotFound or Conflict count as successes; only storage
// failures move the breaker towards open.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	pkgerrors "kaku/pkg/errors"
)

// Settings configures the breaker
type Settings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultSettings returns the settings used for the store
func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      10,
	}
}

// Recorder observes store calls
type Recorder interface {
	ObserveStore(operation string, d time.Duration, err error)
}

// Breaker runs store calls through a gobreaker circuit breaker
type Breaker struct {
	cb       *gobreaker.CircuitBreaker
	recorder Recorder
	logger   *zap.Logger
}

// NewBreaker creates a breaker. recorder may be nil.
func NewBreaker(s Settings, recorder Recorder, logger *zap.Logger) *Breaker {
	b := &Breaker{recorder: recorder, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	})
	return b
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// isSuccessful treats domain errors as healthy responses from the store
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	app := pkgerrors.GetAppError(err)
	if app == nil {
		return false
	}
	switch app.Type {
	case pkgerrors.ErrorTypeNotFound, pkgerrors.ErrorTypeConflict,
		pkgerrors.ErrorTypeValidation, pkgerrors.ErrorTypeInvalidState:
		return true
	}
	return false
}

func execute[T any](b *Breaker, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if b.recorder != nil {
		b.recorder.ObserveStore(op, time.Since(start), err)
	}

	var zero T
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, pkgerrors.NewUnavailableError("store").WithCause(err)
	}
	if err != nil {
		// fn's own error passes through untouched.
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

func run(b *Breaker, op string, fn func() error) error {
	_, err := execute(b, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
