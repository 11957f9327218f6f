package errs

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in errors and logs.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker.
	// Zero defaults to 5.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before probing again.
	// Zero uses gobreaker's default (60s).
	Timeout time.Duration

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration
}

// Breaker wraps sony/gobreaker with the package's error taxonomy: calls
// rejected by an open breaker surface as ErrUnavailable so callers and
// Retry treat them as transient.
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// NewBreaker constructs a circuit breaker for results of type T.
func NewBreaker[T any](cfg BreakerConfig) *Breaker[T] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:     cfg.Name,
		Timeout:  cfg.Timeout,
		Interval: cfg.Interval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}

	return &Breaker[T]{
		name: cfg.Name,
		cb:   gobreaker.NewCircuitBreaker[T](settings),
	}
}

// Do executes fn through the breaker. While the breaker is open, or when
// too many probes are in flight half-open, the call is rejected with an
// ErrUnavailable-kind error without invoking fn.
func (b *Breaker[T]) Do(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		var zero T
		return zero, Wrap(ErrUnavailable, "breaker."+b.name, err)
	}
	return result, err
}

// State reports the breaker's current state.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}
