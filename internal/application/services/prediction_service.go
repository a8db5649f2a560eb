package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/internal/domain/repositories"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	predictionCachePrefix = "prediction:"
	predictionCacheScope  = "prediction"
	defaultPredictionTTL  = time.Hour
)

// PredictionServiceOptions wires the optional collaborators. Every field may be left zero:
// without ML the formula answers, without a cache every request is computed, and without
// a repository nothing is persisted.
type PredictionServiceOptions struct {
	ML       providers.HealthPredictor
	Cache    providers.CacheProvider
	Repo     repositories.PredictionRepository
	Events   providers.EventBus
	Metrics  *observability.Metrics
	CacheTTL time.Duration
	// Mode is mixed into cache keys so switching predictors does not serve stale answers.
	Mode string
}

// PredictionService answers bone loss predictions, preferring the ML model and
// falling back to the research formula.
type PredictionService struct {
	formula  *ResearchFormulaPredictor
	ml       providers.HealthPredictor
	cache    providers.CacheProvider
	repo     repositories.PredictionRepository
	events   providers.EventBus
	metrics  *observability.Metrics
	cacheTTL time.Duration
	mode     string
	now      func() time.Time
}

// PredictionOutcome is what Predict hands back to callers.
type PredictionOutcome struct {
	Result *entities.PredictionResult
	// RecordID is empty when the result was not persisted.
	RecordID string
	Cached   bool
}

// NewPredictionService creates a new prediction service
func NewPredictionService(opts PredictionServiceOptions) *PredictionService {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultPredictionTTL
	}
	mode := opts.Mode
	if mode == "" {
		mode = "none"
	}
	return &PredictionService{
		formula:  NewResearchFormulaPredictor(),
		ml:       opts.ML,
		cache:    opts.Cache,
		repo:     opts.Repo,
		events:   opts.Events,
		metrics:  opts.Metrics,
		cacheTTL: ttl,
		mode:     mode,
		now:      time.Now,
	}
}

// Predict validates the input and returns a prediction
func (s *PredictionService) Predict(ctx context.Context, input entities.PredictionInput) (*PredictionOutcome, error) {
	ctx, span := observability.StartSpan(ctx, "PredictionService.Predict")
	defer span.End()

	input.Gender = entities.ParseGender(string(input.Gender))
	if err := ValidatePredictionInput(input); err != nil {
		return nil, err
	}

	key := s.cacheKey(input)
	if result, ok := s.fromCache(ctx, key); ok {
		observability.RecordPrediction(ctx, s.metrics, string(result.Source))
		return &PredictionOutcome{Result: result, Cached: true}, nil
	}

	result := s.predictWithFallback(ctx, input)
	observability.RecordPrediction(ctx, s.metrics, string(result.Source))

	s.toCache(ctx, key, result)

	outcome := &PredictionOutcome{Result: result}
	if id, ok := s.persist(ctx, input, result); ok {
		outcome.RecordID = id
	}
	s.publish(ctx, outcome.RecordID, input, result)
	return outcome, nil
}

func (s *PredictionService) predictWithFallback(ctx context.Context, input entities.PredictionInput) *entities.PredictionResult {
	logger := observability.LoggerFromContext(ctx)

	if s.ml != nil {
		start := time.Now()
		result, err := s.ml.Predict(ctx, input)
		ok := err == nil && result.IsComplete(BoneSites())
		observability.RecordPredictorDuration(ctx, s.metrics, s.ml.Name(), ok, time.Since(start))

		if ok {
			result.Source = entities.SourceMLModel
			return result
		}

		reason := "invalid_result"
		if err != nil {
			reason = "error"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
		}
		logger.Warn().
			Err(err).
			Str("predictor", s.ml.Name()).
			Str("reason", reason).
			Msg("ML predictor unavailable, falling back to research formula")
		observability.RecordFallback(ctx, s.metrics, s.ml.Name(), reason)
	}

	return PredictBoneLoss(input)
}

func (s *PredictionService) cacheKey(input entities.PredictionInput) string {
	payload, _ := json.Marshal(struct {
		Mode  string                   `json:"mode"`
		Input entities.PredictionInput `json:"input"`
	}{s.mode, input})
	sum := sha256.Sum256(payload)
	return predictionCachePrefix + hex.EncodeToString(sum[:])
}

func (s *PredictionService) fromCache(ctx context.Context, key string) (*entities.PredictionResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		if err != nil && !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Prediction cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, predictionCacheScope)
		return nil, false
	}

	var result entities.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil || !result.IsComplete(BoneSites()) {
		log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached prediction")
		observability.RecordCacheMiss(ctx, s.metrics, predictionCacheScope)
		return nil, false
	}

	observability.RecordCacheHit(ctx, s.metrics, predictionCacheScope)
	return &result, true
}

func (s *PredictionService) toCache(ctx context.Context, key string, result *entities.PredictionResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode prediction for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache prediction")
	}
}

// persist stores the prediction. Failures are logged and never fail the request.
func (s *PredictionService) persist(ctx context.Context, input entities.PredictionInput, result *entities.PredictionResult) (string, bool) {
	if s.repo == nil {
		return "", false
	}

	record := &entities.PredictionRecord{
		ID:        uuid.NewString(),
		Input:     input,
		Result:    *result,
		Source:    result.Source,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("prediction_id", record.ID).
			Msg("Failed to persist prediction")
		return "", false
	}
	return record.ID, true
}

// publish announces a freshly computed prediction to live dashboards. Failures are logged.
func (s *PredictionService) publish(ctx context.Context, recordID string, input entities.PredictionInput, result *entities.PredictionResult) {
	if s.events == nil {
		return
	}

	eventType := entities.PredictionEventCreated
	if s.ml != nil && result.Source == entities.SourceResearchFormula {
		eventType = entities.PredictionEventFallback
	}

	event := entities.NewPredictionEvent(eventType, recordID, input, result)
	if err := s.events.Publish(ctx, providers.EventChannelPredictions, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to publish prediction event")
	}
}

// History returns the most recent predictions
func (s *PredictionService) History(ctx context.Context, limit int) ([]*entities.PredictionRecord, error) {
	if s.repo == nil {
		return nil, apperrors.NewUnavailableError("prediction history is not configured")
	}
	return s.repo.ListRecent(ctx, NormalizeHistoryLimit(limit))
}

// GetPrediction returns one stored prediction
func (s *PredictionService) GetPrediction(ctx context.Context, id string) (*entities.PredictionRecord, error) {
	if s.repo == nil {
		return nil, apperrors.NewUnavailableError("prediction history is not configured")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidInputError("id", "must be a valid UUID")
	}
	return s.repo.GetByID(ctx, id)
}

// NormalizeHistoryLimit clamps a requested page size.
func NormalizeHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
