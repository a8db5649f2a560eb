package repositories

import (
	"context"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// DatasetRepository reads the static crew-health documents.
type DatasetRepository interface {
	List(ctx context.Context) ([]entities.DatasetInfo, error)
	Get(ctx context.Context, name string) (*entities.Dataset, error)
}
