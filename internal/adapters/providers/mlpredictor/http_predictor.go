package mlpredictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/pkg/retry"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

// HTTPPredictor calls a model service at <baseURL>/predict.
type HTTPPredictor struct {
	baseURL  string
	client   *http.Client
	retryCfg retry.Config
}

// NewHTTPPredictor creates a predictor for a model service.
func NewHTTPPredictor(baseURL string, timeout time.Duration) providers.HealthPredictor {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return NewHTTPPredictorWithOptions(baseURL, &http.Client{Timeout: timeout}, retry.RequestConfig())
}

// NewHTTPPredictorWithOptions allows overriding the HTTP client and retry policy (used for tests).
func NewHTTPPredictorWithOptions(baseURL string, client *http.Client, retryCfg retry.Config) *HTTPPredictor {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	retryCfg.Retryable = isTransient
	retryCfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("ML service call failed, retrying")
	}
	return &HTTPPredictor{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		retryCfg: retryCfg,
	}
}

// Name implements providers.HealthPredictor.
func (p *HTTPPredictor) Name() string {
	return "ml_http"
}

// statusError is a non-200 answer from the model service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ML service returned status %d: %s", e.code, e.body)
}

// isTransient retries network failures and 5xx/429 answers only.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, errMalformed)
}

var errMalformed = errors.New("malformed model response")

// Predict implements providers.HealthPredictor.
func (p *HTTPPredictor) Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error) {
	body, err := json.Marshal(newModelRequest(input))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	var result *entities.PredictionResult
	err = retry.Do(ctx, p.retryCfg, "ml-service", func(ctx context.Context) error {
		res, err := p.call(ctx, body)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *HTTPPredictor) call(ctx context.Context, body []byte) (*entities.PredictionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create ML request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read ML response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(data), maxStderrInError)}
	}

	result, err := decodeResult(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return result, nil
}
