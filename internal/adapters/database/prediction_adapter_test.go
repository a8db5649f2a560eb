package database

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

func setupMockAdapter(t *testing.T) (*PredictionAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPredictionAdapter(postgres.NewClientFromDB(db), nil), mock
}

func sampleRecord() *entities.PredictionRecord {
	return &entities.PredictionRecord{
		ID: "2b7e7c2e-4f1a-4c55-8d7e-0b1f3f9d6a11",
		Input: entities.PredictionInput{
			Age:                 35,
			MissionDurationDays: 180,
			Gender:              entities.GenderMale,
			HeightCm:            175,
			WeightKg:            77,
		},
		Result: entities.PredictionResult{
			Predictions: map[string]entities.SitePrediction{
				entities.SiteTrochanter: {BoneLossPercent: -7.63, Severity: entities.SeveritySevere, SiteDescription: "Greater trochanter"},
			},
			OverallAssessment: entities.OverallAssessment{
				AverageBoneLossPercent: -5.39,
				RiskLevel:              entities.RiskHigh,
				Recommendations:        []string{"a", "b", "c"},
			},
			Source: entities.SourceResearchFormula,
		},
		Source:    entities.SourceResearchFormula,
		CreatedAt: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
	}
}

func rowsFor(t *testing.T, records ...*entities.PredictionRecord) *sqlmock.Rows {
	t.Helper()
	rows := sqlmock.NewRows([]string{"id", "source", "input", "result", "created_at"})
	for _, r := range records {
		input, err := json.Marshal(r.Input)
		require.NoError(t, err)
		result, err := json.Marshal(r.Result)
		require.NoError(t, err)
		rows.AddRow(r.ID, string(r.Source), input, result, r.CreatedAt)
	}
	return rows
}

func TestPredictionAdapter_Create(t *testing.T) {
	adapter, mock := setupMockAdapter(t)
	record := sampleRecord()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "bone_loss_predictions"`)).
		WithArgs(-5.39, sqlmock.AnyArg(), record.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), "High Risk", "research_formula").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Create(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionAdapter_CreateFailure(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "bone_loss_predictions"`)).
		WillReturnError(errors.New("connection reset"))

	err := adapter.Create(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestPredictionAdapter_GetByID(t *testing.T) {
	adapter, mock := setupMockAdapter(t)
	record := sampleRecord()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "bone_loss_predictions" WHERE ("id" = $1)`)).
		WithArgs(record.ID).
		WillReturnRows(rowsFor(t, record))

	got, err := adapter.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Input, got.Input)
	assert.Equal(t, -7.63, got.Result.Predictions[entities.SiteTrochanter].BoneLossPercent)
	assert.Equal(t, entities.RiskHigh, got.Result.OverallAssessment.RiskLevel)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionAdapter_GetByIDNotFound(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "bone_loss_predictions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source", "input", "result", "created_at"}))

	_, err := adapter.GetByID(context.Background(), "2b7e7c2e-4f1a-4c55-8d7e-0b1f3f9d6a12")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestPredictionAdapter_ListRecent(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	newer := sampleRecord()
	older := sampleRecord()
	older.ID = "9c1d2e3f-0000-4000-8000-000000000001"
	older.CreatedAt = newer.CreatedAt.Add(-time.Hour)

	rows := rowsFor(t, newer, older).
		AddRow("broken", "ml_model", []byte(`{`), []byte(`{}`), older.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "created_at" DESC LIMIT $1`)).
		WillReturnRows(rows)

	got, err := adapter.ListRecent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionAdapter_EnsureSchema(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	files := fstest.MapFS{
		"002_index.sql": {Data: []byte("CREATE INDEX IF NOT EXISTS idx ON t (c)")},
		"001_table.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS t (c INT)")},
		"README.md":     {Data: []byte("ignored")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS t (c INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx ON t (c)")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.EnsureSchema(context.Background(), files))
	assert.NoError(t, mock.ExpectationsWereMet())
}
