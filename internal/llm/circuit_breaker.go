package llm

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
var ErrCircuitOpen = errors.New("llm: circuit breaker open")

// NewBreaker wraps github.com/sony/gobreaker with the same thresholds the
// teacher's hand-rolled CircuitBreaker used (5 consecutive failures trips
// it, 30s reset timeout, 1 half-open probe), replacing the hand-rolled
// implementation per DESIGN.md.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// callWithBreaker runs fn through breaker. Any failure counts toward the
// breaker's trip threshold (teacher's internal/ai/client.go callWithBreaker
// shape, simplified: gobreaker has no hook to record an error without also
// returning it to the caller).
func callWithBreaker(breaker *gobreaker.CircuitBreaker, fn func() (*LLMResponse, error)) (*LLMResponse, error) {
	result, err := breaker.Execute(func() (interface{}, error) {
		resp, ferr := fn()
		if ferr != nil {
			return nil, ferr
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	resp, _ := result.(*LLMResponse)
	return resp, nil
}
