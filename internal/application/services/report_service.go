package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

// Report formats supported by ExportReport.
const (
	ReportFormatJSON = "json"
	ReportFormatCSV  = "csv"
)

// Report is a downloadable rendering of a stored prediction.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportReport renders a prediction record as JSON or CSV. Sites appear in anatomical order.
func ExportReport(record *entities.PredictionRecord, format string) (*Report, error) {
	if record == nil {
		return nil, apperrors.NewNotFoundError("prediction not found")
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ReportFormatJSON:
		body, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, apperrors.NewInternalError("failed to encode report", err)
		}
		return &Report{
			Filename:    reportFilename(record.ID, ReportFormatJSON),
			ContentType: "application/json",
			Body:        body,
		}, nil
	case ReportFormatCSV:
		body, err := renderCSV(record)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to encode report", err)
		}
		return &Report{
			Filename:    reportFilename(record.ID, ReportFormatCSV),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	default:
		return nil, apperrors.NewInvalidInputError("format", "must be json or csv")
	}
}

func reportFilename(id, ext string) string {
	return fmt.Sprintf("bone-loss-prediction-%s.%s", id, ext)
}

func renderCSV(record *entities.PredictionRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{{"site", "bone_loss_percent", "severity", "description"}}
	for _, site := range BoneSites() {
		p, ok := record.Result.Predictions[site]
		if !ok {
			continue
		}
		rows = append(rows, []string{site, formatPercent(p.BoneLossPercent), string(p.Severity), p.SiteDescription})
	}

	overall := record.Result.OverallAssessment
	rows = append(rows,
		[]string{"average", formatPercent(overall.AverageBoneLossPercent), "", ""},
		[]string{"risk_level", "", string(overall.RiskLevel), ""},
	)
	for _, rec := range overall.Recommendations {
		rows = append(rows, []string{"recommendation", "", "", rec})
	}
	rows = append(rows, []string{"source", "", string(record.Source), ""})

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
