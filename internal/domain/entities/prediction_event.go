package entities

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEventType represents the type of prediction event
type PredictionEventType string

const (
	PredictionEventCreated  PredictionEventType = "prediction_created"
	PredictionEventFallback PredictionEventType = "prediction_fallback"
)

// PredictionEvent is the summary pushed to live dashboards after a prediction is answered.
// It carries no body measurements.
type PredictionEvent struct {
	ID                     string              `json:"id"`
	EventType              PredictionEventType `json:"event_type"`
	RecordID               string              `json:"record_id,omitempty"`
	Source                 PredictionSource    `json:"source"`
	MissionDurationDays    int                 `json:"mission_duration"`
	AverageBoneLossPercent float64             `json:"average_bone_loss_percent"`
	RiskLevel              RiskLevel           `json:"risk_level"`
	Timestamp              time.Time           `json:"timestamp"`
}

// NewPredictionEvent creates a new prediction event
func NewPredictionEvent(eventType PredictionEventType, recordID string, input PredictionInput, result *PredictionResult) *PredictionEvent {
	return &PredictionEvent{
		ID:                     uuid.NewString(),
		EventType:              eventType,
		RecordID:               recordID,
		Source:                 result.Source,
		MissionDurationDays:    input.MissionDurationDays,
		AverageBoneLossPercent: result.OverallAssessment.AverageBoneLossPercent,
		RiskLevel:              result.OverallAssessment.RiskLevel,
		Timestamp:              time.Now().UTC(),
	}
}
