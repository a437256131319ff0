package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/usechat/pkg/logger"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerSettings configures NewCircuitBreaker. Zero values select defaults.
type BreakerSettings struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
	// Interval clears failure counts while the circuit is closed.
	Interval time.Duration
}

// CircuitBreaker is a Transport that stops calling its inner transport after
// repeated failures and fails fast until the breaker timeout has passed.
type CircuitBreaker struct {
	inner   Transport
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(inner Transport, settings BreakerSettings) *CircuitBreaker {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := settings.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := settings.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}
	name := settings.Name
	if name == "" {
		name = "transport"
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is not a failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreaker{inner: inner, breaker: cb}
}

func (b *CircuitBreaker) Stream(ctx context.Context, req Request, emit func(Event)) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Stream(ctx, req, emit)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s circuit open: %w", b.breaker.Name(), err)
	}
	return err
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.breaker.State()
}

var _ Transport = (*CircuitBreaker)(nil)
