package mlpredictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/pkg/config"
	"github.com/zatekoja/isscrewhealth/pkg/retry"
)

const validModelOutput = `{
  "predictions": {
    "femoral_neck": {"bone_loss_percent": -5.1, "severity": "Significant", "site_description": "Hip"},
    "trochanter":   {"bone_loss_percent": -7.0, "severity": "Severe", "site_description": "Hip"},
    "pelvis":       {"bone_loss_percent": -4.2, "severity": "Significant", "site_description": "Pelvis"},
    "lumbar_spine": {"bone_loss_percent": -3.9, "severity": "Moderate", "site_description": "Spine"},
    "tibia_total":  {"bone_loss_percent": -4.8, "severity": "Significant", "site_description": "Leg"}
  },
  "overall_assessment": {
    "average_bone_loss_percent": -5.0,
    "risk_level": "High Risk",
    "recommendations": ["exercise", "monitor"]
  },
  "data_sources": ["model"],
  "model_quality": "trained",
  "prediction_confidence": "High"
}`

func sampleInput() entities.PredictionInput {
	return entities.PredictionInput{
		Age:                 35,
		MissionDurationDays: 180,
		Gender:              entities.GenderMale,
		HeightCm:            175,
		WeightKg:            77,
	}
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
}

func TestDecodeResult(t *testing.T) {
	t.Run("valid output is stamped as ml_model", func(t *testing.T) {
		result, err := decodeResult([]byte(validModelOutput))
		require.NoError(t, err)
		assert.Equal(t, entities.SourceMLModel, result.Source)
		assert.Len(t, result.Predictions, 5)
		assert.Equal(t, entities.RiskHigh, result.OverallAssessment.RiskLevel)
	})

	t.Run("error object", func(t *testing.T) {
		_, err := decodeResult([]byte(`{"error":"model not trained"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not trained")
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeResult([]byte("Traceback (most recent call last)"))
		require.Error(t, err)
	})

	t.Run("missing site", func(t *testing.T) {
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(validModelOutput), &raw))
		delete(raw["predictions"].(map[string]interface{}), "pelvis")
		data, _ := json.Marshal(raw)

		_, err := decodeResult(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incomplete")
	})

	t.Run("single recommendation", func(t *testing.T) {
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(validModelOutput), &raw))
		raw["overall_assessment"].(map[string]interface{})["recommendations"] = []string{"only one"}
		data, _ := json.Marshal(raw)

		_, err := decodeResult(data)
		require.Error(t, err)
	})
}

// TestHelperProcess is not a real test. It stands in for the model script when
// ProcessPredictor re-executes the test binary.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("MLPREDICTOR_HELPER_MODE")
	if mode == "" {
		return
	}
	defer os.Exit(0)

	input, _ := io.ReadAll(os.Stdin)
	switch mode {
	case "ok":
		var req modelRequest
		if err := json.Unmarshal(input, &req); err != nil || req.MissionDuration != 180 || req.Gender != "Male" {
			fmt.Fprintf(os.Stderr, "unexpected input: %s", input)
			os.Exit(3)
		}
		fmt.Fprint(os.Stdout, validModelOutput)
	case "fail":
		fmt.Fprint(os.Stderr, "model file missing")
		os.Exit(2)
	case "garbage":
		fmt.Fprint(os.Stdout, "not json")
	case "sleep":
		time.Sleep(5 * time.Second)
	}
}

func helperPredictor(mode string, timeout time.Duration) *ProcessPredictor {
	return NewProcessPredictorWithEnv(
		os.Args[0],
		[]string{"-test.run=TestHelperProcess"},
		timeout,
		[]string{"MLPREDICTOR_HELPER_MODE=" + mode},
	)
}

func TestProcessPredictor(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		result, err := helperPredictor("ok", 5*time.Second).Predict(ctx, sampleInput())
		require.NoError(t, err)
		assert.Equal(t, entities.SourceMLModel, result.Source)
		assert.Equal(t, -7.0, result.Predictions[entities.SiteTrochanter].BoneLossPercent)
	})

	t.Run("non-zero exit includes stderr", func(t *testing.T) {
		_, err := helperPredictor("fail", 5*time.Second).Predict(ctx, sampleInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model file missing")
	})

	t.Run("malformed stdout", func(t *testing.T) {
		_, err := helperPredictor("garbage", 5*time.Second).Predict(ctx, sampleInput())
		require.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := helperPredictor("sleep", 200*time.Millisecond).Predict(ctx, sampleInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("missing executable", func(t *testing.T) {
		p := NewProcessPredictor("/nonexistent/model-binary", nil, time.Second)
		_, err := p.Predict(ctx, sampleInput())
		require.Error(t, err)
	})
}

func TestHTTPPredictor(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/predict", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req modelRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 35, req.Age)
			assert.Equal(t, 180, req.MissionDuration)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(validModelOutput))
		}))
		defer server.Close()

		p := NewHTTPPredictorWithOptions(server.URL+"/", server.Client(), fastRetry())
		result, err := p.Predict(ctx, sampleInput())
		require.NoError(t, err)
		assert.Equal(t, entities.SourceMLModel, result.Source)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(validModelOutput))
		}))
		defer server.Close()

		p := NewHTTPPredictorWithOptions(server.URL, server.Client(), fastRetry())
		_, err := p.Predict(ctx, sampleInput())
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "bad input", http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		p := NewHTTPPredictorWithOptions(server.URL, server.Client(), fastRetry())
		_, err := p.Predict(ctx, sampleInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry malformed responses", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`{"predictions":{}}`))
		}))
		defer server.Close()

		p := NewHTTPPredictorWithOptions(server.URL, server.Client(), fastRetry())
		_, err := p.Predict(ctx, sampleInput())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errMalformed))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

type stubPredictor struct {
	calls  int
	err    error
	result *entities.PredictionResult
}

func (s *stubPredictor) Name() string { return "stub" }

func (s *stubPredictor) Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error) {
	s.calls++
	return s.result, s.err
}

func TestBreakerPredictor(t *testing.T) {
	ctx := context.Background()

	t.Run("passes results through", func(t *testing.T) {
		stub := &stubPredictor{result: &entities.PredictionResult{Source: entities.SourceMLModel}}
		b := NewBreakerPredictor(stub, DefaultBreakerSettings())

		result, err := b.Predict(ctx, sampleInput())
		require.NoError(t, err)
		assert.Equal(t, entities.SourceMLModel, result.Source)
		assert.Equal(t, "stub", b.Name())
		assert.Equal(t, "closed", b.State())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		stub := &stubPredictor{err: errors.New("boom")}
		b := NewBreakerPredictor(stub, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

		for i := 0; i < 2; i++ {
			_, err := b.Predict(ctx, sampleInput())
			require.Error(t, err)
		}
		assert.Equal(t, "open", b.State())

		_, err := b.Predict(ctx, sampleInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circuit breaker is open")
		assert.Equal(t, 2, stub.calls)
	})
}

func TestNewHealthPredictor(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		p, err := NewHealthPredictor(&config.MLPredictorConfig{Mode: config.PredictorModeNone})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("process", func(t *testing.T) {
		p, err := NewHealthPredictor(&config.MLPredictorConfig{
			Mode: config.PredictorModeProcess, Command: "python3", Args: []string{"scripts/predict.py"}, Timeout: time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "ml_process", p.Name())
		_, ok := p.(*BreakerPredictor)
		assert.True(t, ok)
	})

	t.Run("http", func(t *testing.T) {
		p, err := NewHealthPredictor(&config.MLPredictorConfig{Mode: config.PredictorModeHTTP, URL: "http://ml:8000", Timeout: time.Second})
		require.NoError(t, err)
		assert.Equal(t, "ml_http", p.Name())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewHealthPredictor(&config.MLPredictorConfig{Mode: config.PredictorModeHTTP})
		assert.Error(t, err)
		_, err = NewHealthPredictor(&config.MLPredictorConfig{Mode: "grpc"})
		assert.Error(t, err)
	})
}
