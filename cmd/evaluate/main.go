package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zatekoja/isscrewhealth/internal/adapters/providers/mlpredictor"
	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/internal/evaluation"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
	"github.com/zatekoja/isscrewhealth/pkg/config"
)

type evaluateOptions struct {
	goldenPath       string
	useModel         bool
	maxMAE           float64
	maxAbsError      float64
	minRiskAgreement float64
	verbose          bool
	timeout          time.Duration
}

func main() {
	if err := newEvaluateCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Replay golden bone-loss cases against a predictor",
		Long: `Evaluate the research formula, or the configured ML predictor with --model,
against labeled golden cases and print error metrics as JSON. Exits non-zero when a
guardrail threshold is breached.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.goldenPath, "golden", "g", "config/golden_predictions.json", "Path to the golden cases file")
	cmd.Flags().BoolVar(&opts.useModel, "model", false, "Evaluate the ML predictor from ML_PREDICTOR_* instead of the formula")
	cmd.Flags().Float64Var(&opts.maxMAE, "max-mae", 0.5, "Maximum mean absolute error (percentage points)")
	cmd.Flags().Float64Var(&opts.maxAbsError, "max-abs-error", 0, "Maximum single-site absolute error, 0 to disable")
	cmd.Flags().Float64Var(&opts.minRiskAgreement, "min-risk-agreement", 0.9, "Minimum fraction of cases with the expected risk level")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Include per-case results in the output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall evaluation timeout")
	return cmd
}

func runEvaluate(ctx context.Context, opts *evaluateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-evaluate", cfg.Log.Environment, cfg.Log.Level)

	cases, err := evaluation.LoadGoldenCases(opts.goldenPath)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateGoldenCases(cases); err != nil {
		return fmt.Errorf("invalid golden cases: %w", err)
	}

	var predictor providers.HealthPredictor = services.NewResearchFormulaPredictor()
	if opts.useModel {
		model, err := mlpredictor.NewHealthPredictor(&cfg.MLPredictor)
		if err != nil {
			return err
		}
		if model == nil {
			return fmt.Errorf("--model requires ML_PREDICTOR_MODE to be process or http")
		}
		predictor = model
	}

	log.Info().Str("predictor", predictor.Name()).Int("cases", len(cases)).Msg("Running evaluation")

	summary, err := evaluation.NewRunner(predictor).Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if !opts.verbose {
		summary.Cases = nil
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MaxMAE:           opts.maxMAE,
		MaxAbsError:      opts.maxAbsError,
		MinRiskAgreement: opts.minRiskAgreement,
	})
	if violations := guardrails.Violations(summary); len(violations) > 0 {
		for _, v := range violations {
			log.Error().Str("predictor", predictor.Name()).Msg(v)
		}
		return fmt.Errorf("%d guardrail violation(s)", len(violations))
	}
	return nil
}
