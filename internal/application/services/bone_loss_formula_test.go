package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

func referenceInput() entities.PredictionInput {
	return entities.PredictionInput{
		Age:                 35,
		MissionDurationDays: 180,
		Gender:              entities.GenderMale,
		HeightCm:            175,
		WeightKg:            77,
	}
}

func TestPredictBoneLoss_SixMonthMaleReference(t *testing.T) {
	result := PredictBoneLoss(referenceInput())

	assert.InDelta(t, 25.14, result.BMI, 0.001)
	assert.InDelta(t, 5.91, result.MissionMonths, 0.001)

	expected := map[string]struct {
		loss     float64
		severity entities.Severity
	}{
		entities.SiteFemoralNeck: {-5.60, entities.SeveritySignificant},
		entities.SiteTrochanter:  {-7.63, entities.SeveritySevere},
		entities.SitePelvis:      {-4.58, entities.SeveritySignificant},
		entities.SiteLumbarSpine: {-4.07, entities.SeveritySignificant},
		entities.SiteTibiaTotal:  {-5.09, entities.SeveritySignificant},
	}
	require.Len(t, result.Predictions, 5)
	for site, want := range expected {
		got, ok := result.Predictions[site]
		require.True(t, ok, "missing site %s", site)
		assert.InDelta(t, want.loss, got.BoneLossPercent, 0.001, site)
		assert.Equal(t, want.severity, got.Severity, site)
		assert.NotEmpty(t, got.SiteDescription)
	}

	overall := result.OverallAssessment
	assert.InDelta(t, -5.39, overall.AverageBoneLossPercent, 0.001)
	assert.Equal(t, entities.RiskHigh, overall.RiskLevel)
	assert.Equal(t, []string{RecommendEnhancedExercise, RecommendDXAScans, RecommendCitation}, overall.Recommendations)
	assert.Equal(t, entities.SourceResearchFormula, result.Source)
	assert.Len(t, result.DataSources, 3)
}

func TestPredictBoneLoss_YearLongOlderFemaleLowBMI(t *testing.T) {
	result := PredictBoneLoss(entities.PredictionInput{
		Age:                 50,
		MissionDurationDays: 365,
		Gender:              "female",
		HeightCm:            165,
		WeightKg:            55,
	})

	assert.InDelta(t, -26.80, result.Predictions[entities.SiteTrochanter].BoneLossPercent, 0.001)
	assert.InDelta(t, -14.29, result.Predictions[entities.SiteLumbarSpine].BoneLossPercent, 0.001)
	assert.InDelta(t, -18.94, result.OverallAssessment.AverageBoneLossPercent, 0.001)
	assert.Equal(t, entities.RiskVeryHigh, result.OverallAssessment.RiskLevel)
	assert.Equal(t, []string{
		RecommendEnhancedExercise,
		RecommendLongMission,
		RecommendCloseMonitoring,
		RecommendDXAScans,
		RecommendCitation,
	}, result.OverallAssessment.Recommendations)
}

func TestPredictBoneLoss_HighBMIShortMission(t *testing.T) {
	result := PredictBoneLoss(entities.PredictionInput{
		Age:                 30,
		MissionDurationDays: 90,
		Gender:              entities.GenderMale,
		HeightCm:            180,
		WeightKg:            95,
	})

	assert.InDelta(t, -1.83, result.Predictions[entities.SiteFemoralNeck].BoneLossPercent, 0.001)
	assert.Equal(t, entities.SeverityMinimal, result.Predictions[entities.SiteFemoralNeck].Severity)
	assert.InDelta(t, -2.50, result.Predictions[entities.SiteTrochanter].BoneLossPercent, 0.001)
	assert.Equal(t, entities.SeverityModerate, result.Predictions[entities.SiteTrochanter].Severity)
	assert.Equal(t, entities.RiskLow, result.OverallAssessment.RiskLevel)
	assert.Len(t, result.OverallAssessment.Recommendations, 2)
}

func TestPredictBoneLoss_ZeroDuration(t *testing.T) {
	in := referenceInput()
	in.MissionDurationDays = 0

	result := PredictBoneLoss(in)

	for _, site := range BoneSites() {
		p := result.Predictions[site]
		assert.Equal(t, 0.0, p.BoneLossPercent, site)
		assert.False(t, math.Signbit(p.BoneLossPercent), "negative zero at %s", site)
		assert.Equal(t, entities.SeverityMinimal, p.Severity, site)
	}
	assert.Equal(t, 0.0, result.OverallAssessment.AverageBoneLossPercent)
	assert.Equal(t, entities.RiskLow, result.OverallAssessment.RiskLevel)
	assert.Equal(t, []string{RecommendDXAScans, RecommendCitation}, result.OverallAssessment.Recommendations)
}

func TestPredictBoneLoss_AlwaysFiveSites(t *testing.T) {
	want := []string{"femoral_neck", "trochanter", "pelvis", "lumbar_spine", "tibia_total"}
	assert.Equal(t, want, BoneSites())

	for _, days := range []int{0, 1, 30, 180, 181, 520, 900} {
		result := PredictBoneLoss(entities.PredictionInput{Age: 40, MissionDurationDays: days, Gender: "Male", HeightCm: 170, WeightKg: 70})
		assert.True(t, result.IsComplete(want), "days=%d", days)
		assert.GreaterOrEqual(t, len(result.OverallAssessment.Recommendations), 2)
	}
}

func TestPredictBoneLoss_Deterministic(t *testing.T) {
	first, err := json.Marshal(PredictBoneLoss(referenceInput()))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := json.Marshal(PredictBoneLoss(referenceInput()))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestPredictBoneLoss_MonotonicInDuration(t *testing.T) {
	in := referenceInput()
	in.MissionDurationDays = 0
	previous := PredictBoneLoss(in)

	for days := 1; days <= 900; days++ {
		in.MissionDurationDays = days
		current := PredictBoneLoss(in)
		for _, site := range BoneSites() {
			prev := previous.Predictions[site].BoneLossPercent
			cur := current.Predictions[site].BoneLossPercent
			if cur > prev {
				t.Fatalf("loss magnitude decreased at %s between %d and %d days: %.2f -> %.2f", site, days-1, days, prev, cur)
			}
		}
		previous = current
	}
}

func TestPredictBoneLoss_FemaleAtLeastMale(t *testing.T) {
	for _, days := range []int{30, 180, 365, 900} {
		male := referenceInput()
		male.MissionDurationDays = days
		female := male
		female.Gender = "FEMALE"

		m := PredictBoneLoss(male)
		f := PredictBoneLoss(female)
		for _, site := range BoneSites() {
			assert.LessOrEqual(t, f.Predictions[site].BoneLossPercent, m.Predictions[site].BoneLossPercent, "%s at %d days", site, days)
		}
	}
}

func TestRiskFactor(t *testing.T) {
	tests := []struct {
		name   string
		input  entities.PredictionInput
		bmi    float64
		factor float64
	}{
		{"baseline male", entities.PredictionInput{Age: 35, Gender: "Male"}, 25, 1.0},
		{"female", entities.PredictionInput{Age: 35, Gender: "female"}, 25, 1.2},
		{"age 45 is not older", entities.PredictionInput{Age: 45, Gender: "Male"}, 25, 1.0},
		{"age 46 is older", entities.PredictionInput{Age: 46, Gender: "Male"}, 25, 1.1},
		{"low bmi", entities.PredictionInput{Age: 35, Gender: "Male"}, 21.9, 1.15},
		{"bmi 22 is normal", entities.PredictionInput{Age: 35, Gender: "Male"}, 22, 1.0},
		{"bmi 28 is normal", entities.PredictionInput{Age: 35, Gender: "Male"}, 28, 1.0},
		{"high bmi", entities.PredictionInput{Age: 35, Gender: "Male"}, 28.1, 0.9},
		{"unknown gender counts as male", entities.PredictionInput{Age: 35, Gender: "other"}, 25, 1.0},
		{"everything combined", entities.PredictionInput{Age: 60, Gender: "Female"}, 20, 1.2 * 1.1 * 1.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.factor, riskFactor(tt.input, tt.bmi), 1e-9)
		})
	}
}

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, entities.SeverityMinimal, classifySeverity(-2.0))
	assert.Equal(t, entities.SeverityModerate, classifySeverity(-2.01))
	assert.Equal(t, entities.SeverityModerate, classifySeverity(-4.0))
	assert.Equal(t, entities.SeveritySignificant, classifySeverity(-4.01))
	assert.Equal(t, entities.SeveritySignificant, classifySeverity(-6.0))
	assert.Equal(t, entities.SeveritySevere, classifySeverity(-6.01))

	assert.Equal(t, entities.RiskLow, classifyRisk(-3.0))
	assert.Equal(t, entities.RiskModerate, classifyRisk(-3.01))
	assert.Equal(t, entities.RiskModerate, classifyRisk(-5.0))
	assert.Equal(t, entities.RiskHigh, classifyRisk(-5.01))
	assert.Equal(t, entities.RiskHigh, classifyRisk(-7.0))
	assert.Equal(t, entities.RiskVeryHigh, classifyRisk(-7.01))
}

func TestRecommendations_OneExtraPerBreach(t *testing.T) {
	assert.Len(t, recommendations(-3.0, 180), 2)
	assert.Len(t, recommendations(-2.0, 181), 3)
	assert.Equal(t, RecommendLongMission, recommendations(-2.0, 181)[0])
	assert.Len(t, recommendations(-5.5, 180), 3)
	assert.Len(t, recommendations(-7.5, 180), 4)
	assert.Len(t, recommendations(-7.5, 400), 5)
}

func TestValidatePredictionInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entities.PredictionInput)
		field  string
	}{
		{"valid", func(in *entities.PredictionInput) {}, ""},
		{"zero duration is valid", func(in *entities.PredictionInput) { in.MissionDurationDays = 0 }, ""},
		{"zero age", func(in *entities.PredictionInput) { in.Age = 0 }, "age"},
		{"negative age", func(in *entities.PredictionInput) { in.Age = -3 }, "age"},
		{"negative duration", func(in *entities.PredictionInput) { in.MissionDurationDays = -1 }, "mission_duration"},
		{"zero height", func(in *entities.PredictionInput) { in.HeightCm = 0 }, "height_cm"},
		{"negative weight", func(in *entities.PredictionInput) { in.WeightKg = -70 }, "weight_kg"},
		{"NaN height", func(in *entities.PredictionInput) { in.HeightCm = math.NaN() }, "height_cm"},
		{"infinite weight", func(in *entities.PredictionInput) { in.WeightKg = math.Inf(1) }, "weight_kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceInput()
			tt.mutate(&in)

			err := ValidatePredictionInput(in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestResearchFormulaPredictor(t *testing.T) {
	p := NewResearchFormulaPredictor()
	assert.Equal(t, "research_formula", p.Name())

	result, err := p.Predict(context.Background(), referenceInput())
	require.NoError(t, err)
	assert.Equal(t, PredictBoneLoss(referenceInput()), result)

	bad := referenceInput()
	bad.Age = 0
	_, err = p.Predict(context.Background(), bad)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))
}
