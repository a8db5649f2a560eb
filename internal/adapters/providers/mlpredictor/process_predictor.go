package mlpredictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
)

const (
	defaultProcessTimeout = 10 * time.Second
	maxStderrInError      = 512
)

// ProcessPredictor runs a model as a child process: the input JSON goes to stdin
// and a PredictionResult JSON is read from stdout.
type ProcessPredictor struct {
	command string
	args    []string
	env     []string
	timeout time.Duration
}

// NewProcessPredictor creates a predictor for the given command line.
func NewProcessPredictor(command string, args []string, timeout time.Duration) providers.HealthPredictor {
	return NewProcessPredictorWithEnv(command, args, timeout, nil)
}

// NewProcessPredictorWithEnv additionally sets extra environment variables for the child.
func NewProcessPredictorWithEnv(command string, args []string, timeout time.Duration, env []string) *ProcessPredictor {
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	return &ProcessPredictor{
		command: command,
		args:    append([]string(nil), args...),
		env:     append([]string(nil), env...),
		timeout: timeout,
	}
}

// Name implements providers.HealthPredictor.
func (p *ProcessPredictor) Name() string {
	return "ml_process"
}

// Predict implements providers.HealthPredictor.
func (p *ProcessPredictor) Predict(ctx context.Context, input entities.PredictionInput) (*entities.PredictionResult, error) {
	payload, err := json.Marshal(newModelRequest(input))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	if len(p.env) > 0 {
		cmd.Env = append(cmd.Environ(), p.env...)
	}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("model process timed out after %s", p.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("model process failed: %w: %s", err, truncate(stderr.String(), maxStderrInError))
	}

	log.Debug().
		Str("command", p.command).
		Dur("elapsed", elapsed).
		Int("stdout_bytes", stdout.Len()).
		Msg("ML process prediction finished")

	return decodeResult(stdout.Bytes())
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
