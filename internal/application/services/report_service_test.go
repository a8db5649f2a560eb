package services_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

func sampleRecord() *entities.PredictionRecord {
	input := referenceInput()
	return &entities.PredictionRecord{
		ID:        "7d6f3c1e-8a53-4a5b-9a43-5d0f5c2b9e10",
		Input:     input,
		Result:    *services.PredictBoneLoss(input),
		Source:    entities.SourceResearchFormula,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportReport_CSV(t *testing.T) {
	report, err := services.ExportReport(sampleRecord(), "CSV")
	require.NoError(t, err)

	assert.Equal(t, "text/csv", report.ContentType)
	assert.Equal(t, "bone-loss-prediction-7d6f3c1e-8a53-4a5b-9a43-5d0f5c2b9e10.csv", report.Filename)

	rows, err := csv.NewReader(strings.NewReader(string(report.Body))).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"site", "bone_loss_percent", "severity", "description"}, rows[0])
	assert.Equal(t, "femoral_neck", rows[1][0])
	assert.Equal(t, "-5.60", rows[1][1])
	assert.Equal(t, "Significant", rows[1][2])
	assert.Equal(t, "trochanter", rows[2][0])
	assert.Equal(t, "-7.63", rows[2][1])
	assert.Equal(t, "tibia_total", rows[5][0])

	assert.Equal(t, []string{"average", "-5.39", "", ""}, rows[6])
	assert.Equal(t, []string{"risk_level", "", "High Risk", ""}, rows[7])

	var recs int
	for _, row := range rows {
		if row[0] == "recommendation" {
			recs++
		}
	}
	assert.Equal(t, 3, recs)
	assert.Equal(t, []string{"source", "", "research_formula", ""}, rows[len(rows)-1])
}

func TestExportReport_JSON(t *testing.T) {
	for _, format := range []string{"", "json"} {
		report, err := services.ExportReport(sampleRecord(), format)
		require.NoError(t, err)
		assert.Equal(t, "application/json", report.ContentType)
		assert.True(t, strings.HasSuffix(report.Filename, ".json"))

		var decoded entities.PredictionRecord
		require.NoError(t, json.Unmarshal(report.Body, &decoded))
		assert.Equal(t, sampleRecord().ID, decoded.ID)
		assert.Equal(t, -5.39, decoded.Result.OverallAssessment.AverageBoneLossPercent)
	}
}

func TestExportReport_Errors(t *testing.T) {
	_, err := services.ExportReport(sampleRecord(), "xlsx")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))

	_, err = services.ExportReport(nil, "json")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

type MockDatasetRepository struct {
	mock.Mock
}

func (m *MockDatasetRepository) List(ctx context.Context) ([]entities.DatasetInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DatasetInfo), args.Error(1)
}

func (m *MockDatasetRepository) Get(ctx context.Context, name string) (*entities.Dataset, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Dataset), args.Error(1)
}

func TestDatasetService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unsafe names", func(t *testing.T) {
		repo := new(MockDatasetRepository)
		svc := services.NewDatasetService(repo)

		for _, name := range []string{"../secrets", "Bone", "a.json", "", "a b"} {
			_, err := svc.Get(ctx, name)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput), name)
		}
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("delegates valid names", func(t *testing.T) {
		ds := &entities.Dataset{DatasetInfo: entities.DatasetInfo{Name: "crew_summary"}, Content: json.RawMessage(`{}`)}
		repo := new(MockDatasetRepository)
		repo.On("Get", mock.Anything, "crew_summary").Return(ds, nil)
		repo.On("List", mock.Anything).Return([]entities.DatasetInfo{ds.DatasetInfo}, nil)
		svc := services.NewDatasetService(repo)

		got, err := svc.Get(ctx, "crew_summary")
		require.NoError(t, err)
		assert.Equal(t, ds, got)

		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
