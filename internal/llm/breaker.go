package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/telemetry"
)

// ErrCircuitOpen is returned while the provider is considered unhealthy.
var ErrCircuitOpen = errors.New("LLM provider temporarily unavailable")

// BreakerSettings tunes the breaker around a provider.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// FailureRatio trips the breaker once MinRequests calls have been seen
	// in the current Interval. Zero disables the ratio check.
	FailureRatio float64
	MinRequests  uint32
	// Interval clears the closed-state counts; zero keeps them forever.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// BreakerClient fails fast once the wrapped provider keeps failing.
// It never retries.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker[Response]
}

// WithBreaker wraps next with a circuit breaker.
func WithBreaker(next Client, s BreakerSettings) *BreakerClient {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	name := s.Name
	if name == "" {
		name = "llm"
	}
	minRequests := s.MinRequests
	if minRequests == 0 {
		minRequests = 10
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= threshold {
				return true
			}
			if s.FailureRatio <= 0 || counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		// Cancelled requests say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("llm.breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}
	return &BreakerClient{next: next, cb: gobreaker.NewCircuitBreaker[Response](settings)}
}

// Feedback calls the wrapped client unless the breaker is open.
func (b *BreakerClient) Feedback(ctx context.Context, req FeedbackRequest) (Response, error) {
	resp, err := b.cb.Execute(func() (Response, error) {
		return b.next.Feedback(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.IncLLMRequest(b.cb.Name(), "breaker_open")
		return Response{}, ErrCircuitOpen
	}
	return resp, err
}

// State reports the breaker state for health checks.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}
