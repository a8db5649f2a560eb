package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io/fs"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/repositories"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

const predictionsTable = "bone_loss_predictions"

var _ repositories.PredictionRepository = (*PredictionAdapter)(nil)

var predictionColumns = []interface{}{"id", "source", "input", "result", "created_at"}

// predictionRow is the stored shape of a PredictionRecord.
type predictionRow struct {
	ID        string    `db:"id"`
	Source    string    `db:"source"`
	Input     []byte    `db:"input"`
	Result    []byte    `db:"result"`
	CreatedAt time.Time `db:"created_at"`
}

// PredictionAdapter implements PredictionRepository
type PredictionAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewPredictionAdapter creates a new prediction adapter
func NewPredictionAdapter(client *postgres.Client, metrics *observability.Metrics) *PredictionAdapter {
	return &PredictionAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Create stores a prediction
func (a *PredictionAdapter) Create(ctx context.Context, record *entities.PredictionRecord) error {
	defer a.observe(ctx, "insert", time.Now())

	input, err := json.Marshal(record.Input)
	if err != nil {
		return apperrors.NewInternalError("failed to encode prediction input", err)
	}
	result, err := json.Marshal(record.Result)
	if err != nil {
		return apperrors.NewInternalError("failed to encode prediction result", err)
	}

	row := goqu.Record{
		"id":                        record.ID,
		"source":                    string(record.Source),
		"risk_level":                string(record.Result.OverallAssessment.RiskLevel),
		"average_bone_loss_percent": record.Result.OverallAssessment.AverageBoneLossPercent,
		"input":                     input,
		"result":                    result,
		"created_at":                record.CreatedAt,
	}

	query, args, err := a.db.Insert(predictionsTable).Prepared(true).Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create prediction", err)
	}
	return nil
}

// GetByID retrieves a prediction by ID
func (a *PredictionAdapter) GetByID(ctx context.Context, id string) (*entities.PredictionRecord, error) {
	defer a.observe(ctx, "select", time.Now())

	query, args, err := a.db.Select(predictionColumns...).
		From(predictionsTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row predictionRow
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("prediction not found")
		}
		return nil, apperrors.NewInternalError("failed to get prediction", err)
	}

	return row.toEntity()
}

// ListRecent returns the newest predictions first
func (a *PredictionAdapter) ListRecent(ctx context.Context, limit int) ([]*entities.PredictionRecord, error) {
	defer a.observe(ctx, "select", time.Now())

	query, args, err := a.db.Select(predictionColumns...).
		From(predictionsTable).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []predictionRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list predictions", err)
	}

	records := make([]*entities.PredictionRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toEntity()
		if err != nil {
			log.Warn().Err(err).Str("prediction_id", rows[i].ID).Msg("Skipping unreadable prediction row")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// EnsureSchema applies the embedded migrations in file name order. Every statement is idempotent.
func (a *PredictionAdapter) EnsureSchema(ctx context.Context, migrations fs.FS) error {
	names, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return apperrors.NewInternalError("failed to list migrations", err)
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := fs.ReadFile(migrations, name)
		if err != nil {
			return apperrors.NewInternalError("failed to read migration "+name, err)
		}
		if _, err := a.client.DB().ExecContext(ctx, string(stmt)); err != nil {
			return apperrors.NewInternalError("failed to apply migration "+name, err)
		}
		log.Info().Str("migration", name).Msg("Applied migration")
	}
	return nil
}

func (a *PredictionAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

func (r *predictionRow) toEntity() (*entities.PredictionRecord, error) {
	record := &entities.PredictionRecord{
		ID:        r.ID,
		Source:    entities.PredictionSource(r.Source),
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.Input, &record.Input); err != nil {
		return nil, apperrors.NewInternalError("failed to decode prediction input", err)
	}
	if err := json.Unmarshal(r.Result, &record.Result); err != nil {
		return nil, apperrors.NewInternalError("failed to decode prediction result", err)
	}
	return record, nil
}
