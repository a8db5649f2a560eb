package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler pushes prediction events to dashboards over Server-Sent Events
type StreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   atomic.Int64
}

// NewStreamHandler creates a new SSE handler
func NewStreamHandler(eventBus providers.EventBus) *StreamHandler {
	return NewStreamHandlerWithHeartbeat(eventBus, defaultHeartbeat)
}

// NewStreamHandlerWithHeartbeat sets how often an idle stream is kept alive.
func NewStreamHandlerWithHeartbeat(eventBus providers.EventBus, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{eventBus: eventBus, heartbeat: heartbeat}
}

var streamRiskLevels = map[string]entities.RiskLevel{
	"low":       entities.RiskLow,
	"moderate":  entities.RiskModerate,
	"high":      entities.RiskHigh,
	"very_high": entities.RiskVeryHigh,
}

// StreamPredictions handles GET /api/stream/predictions?risk=high
func (h *StreamHandler) StreamPredictions(w http.ResponseWriter, r *http.Request) {
	var riskFilter entities.RiskLevel
	if risk := r.URL.Query().Get("risk"); risk != "" {
		level, ok := streamRiskLevels[risk]
		if !ok {
			respondWithError(w, http.StatusBadRequest, "risk: must be one of low, moderate, high, very_high")
			return
		}
		riskFilter = level
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.eventBus.Subscribe(ctx, providers.EventChannelPredictions)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to subscribe to prediction events")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	h.clients.Add(1)
	defer h.clients.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]interface{}{
		"risk":      riskFilter,
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				// bus closed underneath us
				return
			}
			if riskFilter != "" && event.RiskLevel != riskFilter {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// Stats handles GET /api/stream/stats
func (h *StreamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{"connected_clients": h.ClientCount()})
}

// ClientCount returns the number of open streams
func (h *StreamHandler) ClientCount() int64 {
	return h.clients.Load()
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
