package llms

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vitrinhq/vitrin/pkg/models"
)

const (
	breakerInterval    = 30 * time.Second
	breakerOpenTimeout = 60 * time.Second
	breakerMinRequests = 5
)

// NewServiceBreaker returns a circuit breaker that opens once at least half of
// recent requests to a service failed. Invalid input and caller cancellation
// do not count against the service.
func NewServiceBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("circuit breaker %s changed from %s to %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var upstreamErr *models.UpstreamServiceError
			if errors.As(err, &upstreamErr) {
				return upstreamErr.Kind == models.UpstreamInvalidInput ||
					upstreamErr.Kind == models.UpstreamContentFiltered
			}
			return false
		},
	})
}
