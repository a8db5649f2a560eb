package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// DatasetService is the part of services.DatasetService the handler needs
type DatasetService interface {
	List(ctx context.Context) ([]entities.DatasetInfo, error)
	Get(ctx context.Context, name string) (*entities.Dataset, error)
}

// DatasetHandler serves the pre-computed crew-health documents
type DatasetHandler struct {
	service DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.service.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// GetDataset handles GET /api/datasets/{name}. The document is returned as stored.
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, err := h.service.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", dataset.ModifiedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(dataset.Content)
}
