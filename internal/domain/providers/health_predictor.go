package providers

import (
	"context"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// HealthPredictor produces a bone-loss prediction for a validated input.
// Implementations may be external (a model process or service) and may fail;
// callers fall back to the research formula.
type HealthPredictor interface {
	Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error)

	// Name identifies the predictor in logs and metrics
	Name() string
}
