package evaluation

import (
	"time"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// Category groups golden cases by mission profile.
type Category string

const (
	CategoryShort Category = "short" // up to a standard six-month increment
	CategoryLong  Category = "long"  // beyond six months, exploration-class
	CategoryEdge  Category = "edge"  // zero-duration and boundary inputs
)

// ValidCategories returns all valid category values.
func ValidCategories() []Category {
	return []Category{CategoryShort, CategoryLong, CategoryEdge}
}

// IsValid checks if the category value is one of the defined constants.
func (c Category) IsValid() bool {
	switch c {
	case CategoryShort, CategoryLong, CategoryEdge:
		return true
	}
	return false
}

// GoldenCase is a labeled astronaut profile with the expected prediction.
type GoldenCase struct {
	ID                      string                   `json:"id"`
	Description             string                   `json:"description,omitempty"`
	Category                Category                 `json:"category"`
	Input                   entities.PredictionInput `json:"input"`
	ExpectedSites           map[string]float64       `json:"expected_sites"`
	ExpectedAverage         float64                  `json:"expected_average"`
	ExpectedRiskLevel       entities.RiskLevel       `json:"expected_risk_level"`
	ExpectedRecommendations int                      `json:"expected_recommendations"`
}

// CaseResult holds the evaluation outcome for a single case.
type CaseResult struct {
	CaseID              string             `json:"case_id"`
	Category            Category           `json:"category"`
	SiteErrors          map[string]float64 `json:"site_errors,omitempty"`
	MAE                 float64            `json:"mae"`
	MaxAbsError         float64            `json:"max_abs_error"`
	AverageError        float64            `json:"average_error"`
	RiskMatch           bool               `json:"risk_match"`
	RecommendationMatch bool               `json:"recommendation_match"`
	Source              string             `json:"source,omitempty"`
	Error               string             `json:"error,omitempty"`
	Latency             time.Duration      `json:"latency_ns"`
}

// Failed reports whether the predictor could not answer the case.
func (r CaseResult) Failed() bool {
	return r.Error != ""
}

// Summary holds aggregate metrics across all golden cases.
type Summary struct {
	Predictor               string                        `json:"predictor"`
	TotalCases              int                           `json:"total_cases"`
	FailedCases             int                           `json:"failed_cases"`
	MAE                     float64                       `json:"mae"`
	MaxAbsError             float64                       `json:"max_abs_error"`
	SiteMAE                 map[string]float64            `json:"site_mae"`
	RiskAgreement           float64                       `json:"risk_agreement"`
	RecommendationAgreement float64                       `json:"recommendation_agreement"`
	AvgLatency              time.Duration                 `json:"avg_latency_ns"`
	ByCategory              map[Category]*CategorySummary `json:"by_category"`
	Cases                   []CaseResult                  `json:"cases,omitempty"`
}

// CategorySummary holds metrics grouped by category.
type CategorySummary struct {
	Count         int     `json:"count"`
	MAE           float64 `json:"mae"`
	RiskAgreement float64 `json:"risk_agreement"`
}
