package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

type predictOptions struct {
	age      int
	duration int
	gender   string
	height   float64
	weight   float64
	jsonOut  bool
	pretty   bool
}

func newRootCmd() *cobra.Command {
	opts := &predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate spaceflight bone density loss for one astronaut profile",
		Long: `Run the research formula locally and print per-site bone mineral density loss,
the overall risk level and recommendations. No server or database is needed.`,
		Example:      "  predict --age 35 --duration 180 --gender male --height 175 --weight 77",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.age, "age", 0, "Age in years (required)")
	cmd.Flags().IntVarP(&opts.duration, "duration", "d", 0, "Mission duration in days (required)")
	cmd.Flags().StringVarP(&opts.gender, "gender", "g", "", "Male or Female (required)")
	cmd.Flags().Float64Var(&opts.height, "height", entities.DefaultHeightCm, "Height in centimeters")
	cmd.Flags().Float64Var(&opts.weight, "weight", entities.DefaultWeightKg, "Weight in kilograms")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the raw prediction as JSON")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent JSON output (implies --json)")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("duration")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}

func runPredict(out io.Writer, opts *predictOptions) error {
	input := entities.PredictionInput{
		Age:                 opts.age,
		MissionDurationDays: opts.duration,
		Gender:              entities.ParseGender(opts.gender),
		HeightCm:            opts.height,
		WeightKg:            opts.weight,
	}
	if err := services.ValidatePredictionInput(input); err != nil {
		return err
	}

	result := services.PredictBoneLoss(input)

	if opts.jsonOut || opts.pretty {
		enc := json.NewEncoder(out)
		if opts.pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(result)
	}
	renderText(out, input, result)
	return nil
}

func renderText(out io.Writer, input entities.PredictionInput, result *entities.PredictionResult) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(out, "%s\n", bold("Bone density loss projection"))
	fmt.Fprintf(out, "  %s, age %d, %d days (%.2f months), BMI %.2f\n\n",
		input.Gender, input.Age, input.MissionDurationDays, result.MissionMonths, result.BMI)

	for _, site := range services.BoneSites() {
		p := result.Predictions[site]
		fmt.Fprintf(out, "  %-14s %7.2f%%  %s\n", site, p.BoneLossPercent, severityColor(p.Severity).Sprint(p.Severity))
	}

	overall := result.OverallAssessment
	fmt.Fprintf(out, "\n  %-14s %7.2f%%  %s\n\n", "average", overall.AverageBoneLossPercent,
		riskColor(overall.RiskLevel).Sprint(overall.RiskLevel))

	fmt.Fprintf(out, "%s\n", bold("Recommendations"))
	for _, rec := range overall.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
	fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(result.PredictionConfidence))
}

func severityColor(s entities.Severity) *color.Color {
	switch s {
	case entities.SeverityMinimal:
		return color.New(color.FgGreen)
	case entities.SeverityModerate:
		return color.New(color.FgYellow)
	case entities.SeveritySignificant:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func riskColor(r entities.RiskLevel) *color.Color {
	switch r {
	case entities.RiskLow:
		return color.New(color.FgGreen)
	case entities.RiskModerate:
		return color.New(color.FgYellow)
	case entities.RiskHigh:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}
