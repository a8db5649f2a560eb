package entities

import "strings"

// Gender of the astronaut profile. Anything other than female is treated as male.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender normalizes free-form input.
func ParseGender(value string) Gender {
	if strings.EqualFold(strings.TrimSpace(value), "female") {
		return GenderFemale
	}
	return GenderMale
}

// Default body measurements used when a request omits them.
const (
	DefaultHeightCm = 175.0
	DefaultWeightKg = 77.0
)

// PredictionInput describes a hypothetical astronaut and mission.
type PredictionInput struct {
	Age                 int     `json:"age"`
	MissionDurationDays int     `json:"mission_duration"`
	Gender              Gender  `json:"gender"`
	HeightCm            float64 `json:"height_cm"`
	WeightKg            float64 `json:"weight_kg"`
}

// IsFemale reports whether the female multiplier applies.
func (in PredictionInput) IsFemale() bool {
	return strings.EqualFold(string(in.Gender), string(GenderFemale))
}

// Skeletal sites tracked for bone mineral density loss.
const (
	SiteFemoralNeck = "femoral_neck"
	SiteTrochanter  = "trochanter"
	SitePelvis      = "pelvis"
	SiteLumbarSpine = "lumbar_spine"
	SiteTibiaTotal  = "tibia_total"
)

// Severity buckets a single site's loss.
type Severity string

const (
	SeverityMinimal     Severity = "Minimal"
	SeverityModerate    Severity = "Moderate"
	SeveritySignificant Severity = "Significant"
	SeveritySevere      Severity = "Severe"
)

// RiskLevel buckets the average loss across sites.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low Risk"
	RiskModerate RiskLevel = "Moderate Risk"
	RiskHigh     RiskLevel = "High Risk"
	RiskVeryHigh RiskLevel = "Very High Risk"
)

// PredictionSource identifies which predictor produced a result.
type PredictionSource string

const (
	SourceResearchFormula PredictionSource = "research_formula"
	SourceMLModel         PredictionSource = "ml_model"
)

// SitePrediction is the estimate for one skeletal site.
type SitePrediction struct {
	BoneLossPercent float64  `json:"bone_loss_percent"`
	Severity        Severity `json:"severity"`
	SiteDescription string   `json:"site_description"`
}

// OverallAssessment aggregates the per-site estimates.
type OverallAssessment struct {
	AverageBoneLossPercent float64   `json:"average_bone_loss_percent"`
	RiskLevel              RiskLevel `json:"risk_level"`
	Recommendations        []string  `json:"recommendations"`
}

// PredictionResult is the full answer returned to dashboards.
type PredictionResult struct {
	Predictions          map[string]SitePrediction `json:"predictions"`
	OverallAssessment    OverallAssessment         `json:"overall_assessment"`
	DataSources          []string                  `json:"data_sources"`
	ModelQuality         string                    `json:"model_quality"`
	PredictionConfidence string                    `json:"prediction_confidence"`
	Source               PredictionSource          `json:"source,omitempty"`
	BMI                  float64                   `json:"bmi,omitempty"`
	MissionMonths        float64                   `json:"mission_months,omitempty"`
}

// IsComplete reports whether a result has the shape every consumer relies on:
// the given sites and at least two recommendations.
func (r *PredictionResult) IsComplete(sites []string) bool {
	if r == nil || len(r.Predictions) != len(sites) {
		return false
	}
	for _, site := range sites {
		if _, ok := r.Predictions[site]; !ok {
			return false
		}
	}
	return len(r.OverallAssessment.Recommendations) >= 2
}
