package entities

import "time"

// PredictionRecord is a stored prediction, used for history and report export.
type PredictionRecord struct {
	ID        string           `json:"id" db:"id"`
	Input     PredictionInput  `json:"input"`
	Result    PredictionResult `json:"result"`
	Source    PredictionSource `json:"source" db:"source"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
