package services

import (
	"context"
	"fmt"
	"math"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

const (
	daysPerMonth = 30.44

	// Time constant (months) of the saturating term: loss is fastest early in flight.
	saturationMonths = 3.0

	femaleFactor  = 1.2
	olderAgeCut   = 45
	olderFactor   = 1.1
	lowBMICut     = 22.0
	lowBMIFactor  = 1.15
	highBMICut    = 28.0
	highBMIFactor = 0.9
)

// siteRate is a literature base monthly loss rate (percent per month, negative).
type siteRate struct {
	site        string
	monthlyRate float64
	description string
}

// Site order is fixed; it drives evaluation output and CSV reports.
var boneSites = [...]siteRate{
	{entities.SiteFemoralNeck, -1.1, "Femoral neck (hip) - primary fracture risk site"},
	{entities.SiteTrochanter, -1.5, "Trochanter (hip) - highest loss rate in long-duration flight"},
	{entities.SitePelvis, -0.9, "Pelvis - weight-bearing trabecular bone"},
	{entities.SiteLumbarSpine, -0.8, "Lumbar spine - vertebral trabecular bone"},
	{entities.SiteTibiaTotal, -1.0, "Tibia (total) - lower-limb cortical and trabecular bone"},
}

// BoneSites returns the tracked sites in report order.
func BoneSites() []string {
	sites := make([]string, len(boneSites))
	for i, s := range boneSites {
		sites[i] = s.site
	}
	return sites
}

// Recommendation strings, appended in this order.
const (
	RecommendEnhancedExercise = "Enhanced resistance exercise protocol (ARED) recommended to counter projected bone loss"
	RecommendLongMission      = "Long-duration mission: consider bisphosphonate countermeasures and structured post-flight rehabilitation"
	RecommendCloseMonitoring  = "Very high projected loss: close medical monitoring and pre-flight bone health optimization advised"
	RecommendDXAScans         = "Regular DXA scans recommended before flight and during post-flight recovery"
	RecommendCitation         = "Estimates based on published ISS bone density research (LeBlanc et al. 2000; Lang et al. 2004; Sibonga et al. 2007)"
)

var formulaDataSources = []string{
	"LeBlanc A et al. (2000) Bone mineral and lean tissue loss after long duration space flight. J Musculoskelet Neuronal Interact 1(2):157-160",
	"Lang T et al. (2004) Cortical and trabecular bone mineral loss from the spine and hip in long-duration spaceflight. J Bone Miner Res 19(6):1006-1012",
	"Sibonga JD et al. (2007) Recovery of spaceflight-induced bone loss: bone mineral density after long-duration missions as fitted with an exponential function. Bone 41(6):973-978",
}

const (
	formulaModelQuality         = "Research-based formula using literature-derived coefficients"
	formulaPredictionConfidence = "Moderate - population-level estimates from published ISS cohorts"
)

// ValidatePredictionInput rejects inputs the formula cannot meaningfully evaluate.
func ValidatePredictionInput(in entities.PredictionInput) error {
	if in.Age <= 0 {
		return apperrors.NewInvalidInputError("age", "must be a positive number of years")
	}
	if in.MissionDurationDays < 0 {
		return apperrors.NewInvalidInputError("mission_duration", "must not be negative")
	}
	if math.IsNaN(in.HeightCm) || math.IsInf(in.HeightCm, 0) {
		return apperrors.NewInvalidInputError("height_cm", "must be a finite number")
	}
	if math.IsNaN(in.WeightKg) || math.IsInf(in.WeightKg, 0) {
		return apperrors.NewInvalidInputError("weight_kg", "must be a finite number")
	}
	if in.HeightCm <= 0 {
		return apperrors.NewInvalidInputError("height_cm", "must be greater than zero")
	}
	if in.WeightKg <= 0 {
		return apperrors.NewInvalidInputError("weight_kg", "must be greater than zero")
	}
	return nil
}

// CalculateBMI expects height in centimeters and weight in kilograms.
func CalculateBMI(heightCm, weightKg float64) float64 {
	h := heightCm / 100.0
	return weightKg / (h * h)
}

// riskFactor combines the gender, age and BMI multipliers.
func riskFactor(in entities.PredictionInput, bmi float64) float64 {
	gender := 1.0
	if in.IsFemale() {
		gender = femaleFactor
	}

	age := 1.0
	if in.Age > olderAgeCut {
		age = olderFactor
	}

	body := 1.0
	switch {
	case bmi < lowBMICut:
		body = lowBMIFactor
	case bmi > highBMICut:
		body = highBMIFactor
	}

	return gender * age * body
}

// PredictBoneLoss evaluates the research formula. It is pure and does not validate;
// callers run ValidatePredictionInput first.
func PredictBoneLoss(in entities.PredictionInput) *entities.PredictionResult {
	bmi := CalculateBMI(in.HeightCm, in.WeightKg)
	months := float64(in.MissionDurationDays) / daysPerMonth
	factor := riskFactor(in, bmi)
	shape := months * (1 - math.Exp(-months/saturationMonths))

	predictions := make(map[string]entities.SitePrediction, len(boneSites))
	var total float64
	for _, s := range boneSites {
		loss := round2(s.monthlyRate * factor * shape)
		total += loss
		predictions[s.site] = entities.SitePrediction{
			BoneLossPercent: loss,
			Severity:        classifySeverity(loss),
			SiteDescription: s.description,
		}
	}

	average := round2(total / float64(len(boneSites)))

	return &entities.PredictionResult{
		Predictions: predictions,
		OverallAssessment: entities.OverallAssessment{
			AverageBoneLossPercent: average,
			RiskLevel:              classifyRisk(average),
			Recommendations:        recommendations(average, in.MissionDurationDays),
		},
		DataSources:          append([]string(nil), formulaDataSources...),
		ModelQuality:         formulaModelQuality,
		PredictionConfidence: formulaPredictionConfidence,
		Source:               entities.SourceResearchFormula,
		BMI:                  round2(bmi),
		MissionMonths:        round2(months),
	}
}

func classifySeverity(loss float64) entities.Severity {
	switch {
	case loss >= -2.0:
		return entities.SeverityMinimal
	case loss >= -4.0:
		return entities.SeverityModerate
	case loss >= -6.0:
		return entities.SeveritySignificant
	default:
		return entities.SeveritySevere
	}
}

func classifyRisk(average float64) entities.RiskLevel {
	switch {
	case average >= -3.0:
		return entities.RiskLow
	case average >= -5.0:
		return entities.RiskModerate
	case average >= -7.0:
		return entities.RiskHigh
	default:
		return entities.RiskVeryHigh
	}
}

func recommendations(average float64, missionDays int) []string {
	recs := make([]string, 0, 5)
	if average < -5.0 {
		recs = append(recs, RecommendEnhancedExercise)
	}
	if missionDays > 180 {
		recs = append(recs, RecommendLongMission)
	}
	if average < -7.0 {
		recs = append(recs, RecommendCloseMonitoring)
	}
	return append(recs, RecommendDXAScans, RecommendCitation)
}

// round2 rounds to two decimals and folds negative zero into zero.
func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// ResearchFormulaPredictor exposes the formula as a HealthPredictor.
type ResearchFormulaPredictor struct{}

// NewResearchFormulaPredictor creates the formula predictor.
func NewResearchFormulaPredictor() *ResearchFormulaPredictor {
	return &ResearchFormulaPredictor{}
}

// Predict validates the input and evaluates the formula.
func (p *ResearchFormulaPredictor) Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error) {
	if err := ValidatePredictionInput(input); err != nil {
		return nil, fmt.Errorf("research formula: %w", err)
	}
	return PredictBoneLoss(input), nil
}

// Name implements providers.HealthPredictor.
func (p *ResearchFormulaPredictor) Name() string {
	return string(entities.SourceResearchFormula)
}
