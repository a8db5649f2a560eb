package services

import (
	"context"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/repositories"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

// ValidDatasetName reports whether name is safe to resolve inside the datasets directory.
func ValidDatasetName(name string) bool {
	return entities.ValidDatasetName(name)
}

// DatasetService serves the pre-computed crew-health documents
type DatasetService struct {
	repo repositories.DatasetRepository
}

// NewDatasetService creates a new dataset service
func NewDatasetService(repo repositories.DatasetRepository) *DatasetService {
	return &DatasetService{repo: repo}
}

// List returns all datasets sorted by name
func (s *DatasetService) List(ctx context.Context) ([]entities.DatasetInfo, error) {
	return s.repo.List(ctx)
}

// Get returns one dataset by name
func (s *DatasetService) Get(ctx context.Context, name string) (*entities.Dataset, error) {
	if !ValidDatasetName(name) {
		return nil, apperrors.NewInvalidInputError("name", "may only contain lowercase letters, digits, '-' and '_'")
	}
	return s.repo.Get(ctx, name)
}
