package mlpredictor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
)

// BreakerSettings tunes the circuit breaker around a model.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings trips after 5 straight failures and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerPredictor stops calling a failing model for a while so requests fall back
// to the formula without paying the model's timeout.
type BreakerPredictor struct {
	next providers.HealthPredictor
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPredictor wraps next with a circuit breaker.
func NewBreakerPredictor(next providers.HealthPredictor, settings BreakerSettings) *BreakerPredictor {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}

	threshold := settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("predictor", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("ML predictor circuit breaker state changed")
		},
	})

	return &BreakerPredictor{next: next, cb: cb}
}

// Name implements providers.HealthPredictor.
func (b *BreakerPredictor) Name() string {
	return b.next.Name()
}

// State exposes the breaker state for health reporting.
func (b *BreakerPredictor) State() string {
	return b.cb.State().String()
}

// Predict implements providers.HealthPredictor.
func (b *BreakerPredictor) Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Predict(ctx, input)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.next.Name(), err)
	}
	return out.(*entities.PredictionResult), nil
}
