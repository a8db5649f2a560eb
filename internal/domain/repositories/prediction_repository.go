package repositories

import (
	"context"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// PredictionRepository defines the interface for prediction history persistence.
type PredictionRepository interface {
	Create(ctx context.Context, record *entities.PredictionRecord) error
	GetByID(ctx context.Context, id string) (*entities.PredictionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*entities.PredictionRecord, error)
}
