package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

// ErrCircuitOpen is returned without calling the dependency while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

type Settings struct {
	Name             string
	Interval         time.Duration // window for counting failures while closed
	Timeout          time.Duration // time spent open before a trial request
	FailureThreshold uint32        // consecutive failures that open the breaker
}

func (s Settings) withDefaults() Settings {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	return s
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(s Settings, l logger.Logger) *Breaker {
	s = s.withDefaults()
	metrics.RecordBreakerState(s.Name, 0)

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		// отмена вызывающим не считается сбоем зависимости
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(name, stateValue(to))
			l.Warn(context.Background(), "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	}
	return 0
}

// Do runs fn through the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrCircuitOpen
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
