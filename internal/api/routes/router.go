package routes

import (
	"net/http"

	"github.com/zatekoja/isscrewhealth/internal/api/handlers"
	"github.com/zatekoja/isscrewhealth/internal/api/middleware"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	predictionHandler *handlers.PredictionHandler
	datasetHandler    *handlers.DatasetHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router. cacheMiddleware may be nil.
func NewRouter(
	predictionHandler *handlers.PredictionHandler,
	datasetHandler *handlers.DatasetHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		predictionHandler: predictionHandler,
		datasetHandler:    datasetHandler,
		cacheMiddleware:   cacheMiddleware,
		metrics:           metrics,
		allowedOrigins:    allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Prediction endpoints
	r.mux.HandleFunc("POST /api/predict", r.predictionHandler.Predict)
	r.mux.HandleFunc("GET /api/predictions", r.predictionHandler.ListPredictions)
	r.mux.HandleFunc("GET /api/predictions/{id}", r.predictionHandler.GetPrediction)
	r.mux.HandleFunc("GET /api/predictions/{id}/export", r.predictionHandler.ExportPrediction)

	// Dataset endpoints
	r.mux.HandleFunc("GET /api/datasets", r.datasetHandler.ListDatasets)
	r.mux.HandleFunc("GET /api/datasets/{name}", r.datasetHandler.GetDataset)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
