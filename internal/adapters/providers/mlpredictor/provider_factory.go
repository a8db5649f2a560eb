package mlpredictor

import (
	"fmt"

	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/pkg/config"
)

// NewHealthPredictor builds the configured external model behind a circuit breaker.
// It returns nil when the mode is "none"; callers then answer from the formula alone.
func NewHealthPredictor(cfg *config.MLPredictorConfig) (providers.HealthPredictor, error) {
	var model providers.HealthPredictor
	switch cfg.Mode {
	case config.PredictorModeNone, "":
		return nil, nil
	case config.PredictorModeProcess:
		if cfg.Command == "" {
			return nil, fmt.Errorf("ml predictor: command is required in process mode")
		}
		model = NewProcessPredictor(cfg.Command, cfg.Args, cfg.Timeout)
	case config.PredictorModeHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("ml predictor: url is required in http mode")
		}
		model = NewHTTPPredictor(cfg.URL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("ml predictor: unknown mode %q", cfg.Mode)
	}

	return NewBreakerPredictor(model, DefaultBreakerSettings()), nil
}
