// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/Josemiles-ctr/gaitlab/internal/app"
)

// Upload and Prediction mirror the orchestrator's request/result shapes.
type (
	Upload     = service.Upload
	Prediction = service.Prediction
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict runs the full inference pipeline for one uploaded video.
	Predict(ctx context.Context, upload Upload, clinicalText string) (*Prediction, error)

	// EnsureLoaded loads model weights if needed; idempotent when ready.
	EnsureLoaded(ctx context.Context) error

	// IsReady reports whether predictions can be served.
	IsReady() bool

	// Stats exposes service statistics for monitoring.
	Stats() map[string]interface{}
}

// Server wires HTTP routes for the inference API.
type Server struct {
	bannerHandler     *BannerHandler
	predictHandler    *PredictHandler
	conditionsHandler *ConditionsHandler
	healthHandler     *HealthHandler
	readyHandler      *ReadyHandler
	statsHandler      *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxUploadSize int64) *Server {
	return &Server{
		bannerHandler:     NewBannerHandler(),
		predictHandler:    NewPredictHandler(deps, maxUploadSize),
		conditionsHandler: NewConditionsHandler(),
		healthHandler:     NewHealthHandler(),
		readyHandler:      NewReadyHandler(deps),
		statsHandler:      NewStatsHandler(deps),
	}
}

// Router builds the chi router with middleware and all routes attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)

	r.Get("/", MetricsMiddleware(s.bannerHandler.HandleBanner, "root"))
	r.Post("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	r.Get("/conditions", MetricsMiddleware(s.conditionsHandler.HandleConditions, "conditions"))
	r.Get("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	r.Get("/ready", MetricsMiddleware(s.readyHandler.HandleReady, "ready"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
