package mlpredictor

import (
	"encoding/json"
	"fmt"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// siteNames are the sites every model answer must cover.
var siteNames = []string{
	entities.SiteFemoralNeck,
	entities.SiteTrochanter,
	entities.SitePelvis,
	entities.SiteLumbarSpine,
	entities.SiteTibiaTotal,
}

// modelRequest is the payload sent to a model, process or HTTP.
type modelRequest struct {
	Age             int     `json:"age"`
	MissionDuration int     `json:"mission_duration"`
	Gender          string  `json:"gender"`
	HeightCm        float64 `json:"height_cm"`
	WeightKg        float64 `json:"weight_kg"`
}

func newModelRequest(in entities.PredictionInput) modelRequest {
	gender := entities.GenderMale
	if in.IsFemale() {
		gender = entities.GenderFemale
	}
	return modelRequest{
		Age:             in.Age,
		MissionDuration: in.MissionDurationDays,
		Gender:          string(gender),
		HeightCm:        in.HeightCm,
		WeightKg:        in.WeightKg,
	}
}

// modelError is what a model returns when it refuses to answer.
type modelError struct {
	Error string `json:"error"`
}

// decodeResult parses and sanity-checks a model answer.
func decodeResult(data []byte) (*entities.PredictionResult, error) {
	var failure modelError
	if err := json.Unmarshal(data, &failure); err == nil && failure.Error != "" {
		return nil, fmt.Errorf("model reported error: %s", failure.Error)
	}

	var result entities.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	if !result.IsComplete(siteNames) {
		return nil, fmt.Errorf("model output incomplete: %d sites, %d recommendations",
			len(result.Predictions), len(result.OverallAssessment.Recommendations))
	}
	if result.OverallAssessment.RiskLevel == "" {
		return nil, fmt.Errorf("model output missing risk level")
	}

	result.Source = entities.SourceMLModel
	return &result, nil
}
