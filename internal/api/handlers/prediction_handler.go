package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

const maxPredictRequestBytes = 1 << 16

// PredictionService is the part of services.PredictionService the handler needs
type PredictionService interface {
	Predict(ctx context.Context, input entities.PredictionInput) (*services.PredictionOutcome, error)
	History(ctx context.Context, limit int) ([]*entities.PredictionRecord, error)
	GetPrediction(ctx context.Context, id string) (*entities.PredictionRecord, error)
}

// PredictionHandler handles bone loss prediction requests
type PredictionHandler struct {
	service PredictionService
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(service PredictionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// PredictRequest is the body of POST /api/predict. Pointers distinguish
// absent fields from zero values.
type PredictRequest struct {
	Age             *int     `json:"age"`
	MissionDuration *int     `json:"missionDuration"`
	Gender          *string  `json:"gender"`
	Height          *float64 `json:"height,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
}

// ToInput checks required fields and applies body measurement defaults.
func (req PredictRequest) ToInput() (entities.PredictionInput, error) {
	if req.Age == nil || req.MissionDuration == nil || req.Gender == nil {
		return entities.PredictionInput{}, fmt.Errorf("missing required fields: age, missionDuration, gender")
	}

	input := entities.PredictionInput{
		Age:                 *req.Age,
		MissionDurationDays: *req.MissionDuration,
		Gender:              entities.ParseGender(*req.Gender),
		HeightCm:            entities.DefaultHeightCm,
		WeightKg:            entities.DefaultWeightKg,
	}
	if req.Height != nil {
		input.HeightCm = *req.Height
	}
	if req.Weight != nil {
		input.WeightKg = *req.Weight
	}
	return input, nil
}

// Predict handles POST /api/predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPredictRequestBytes)

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Predict(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if outcome.RecordID != "" {
		w.Header().Set("X-Prediction-ID", outcome.RecordID)
	}
	if outcome.Cached {
		w.Header().Set("X-Prediction-Cache", "HIT")
	} else {
		w.Header().Set("X-Prediction-Cache", "MISS")
	}
	respondWithJSON(w, http.StatusOK, outcome.Result)
}

// ListPredictions handles GET /api/predictions
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

// GetPrediction handles GET /api/predictions/{id}
func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetPrediction(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// ExportPrediction handles GET /api/predictions/{id}/export
func (h *PredictionHandler) ExportPrediction(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetPrediction(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	report, err := services.ExportReport(record, r.URL.Query().Get("format"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(report.Body)
}
