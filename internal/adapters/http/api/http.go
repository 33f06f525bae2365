// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	service "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/validation"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	EventDependencies
	SubjectDependencies
	ModelDependencies
	StatsProvider
}

// SubjectDependencies serves the per-subject read endpoints.
type SubjectDependencies interface {
	Subjects(ctx context.Context) ([]types.Subject, error)
	Analyze(ctx context.Context, subjectID string) (types.Analysis, error)
	Personality(ctx context.Context, subjectID string) (model.PersonalityProfile, error)
	Anomalies(ctx context.Context, subjectID string) (anomaly.Report, error)
}

// ModelDependencies serves model training.
type ModelDependencies interface {
	Train(ctx context.Context) (service.TrainResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	subjectsHandler *SubjectsHandler
	modelsHandler   *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps, log),
		eventsHandler:   NewEventsHandler(deps, log),
		subjectsHandler: NewSubjectsHandler(deps, log),
		modelsHandler:   NewModelsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("GET /subjects", MetricsMiddleware(s.subjectsHandler.HandleList, "subjects"))
	mux.HandleFunc("GET /subjects/{id}/analysis", MetricsMiddleware(s.subjectsHandler.HandleAnalysis, "analysis"))
	mux.HandleFunc("GET /subjects/{id}/personality", MetricsMiddleware(s.subjectsHandler.HandlePersonality, "personality"))
	mux.HandleFunc("GET /subjects/{id}/anomalies", MetricsMiddleware(s.subjectsHandler.HandleAnomalies, "anomalies"))
	mux.HandleFunc("POST /models/train", MetricsMiddleware(s.modelsHandler.HandleTrain, "train"))
}

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// fail maps a service error onto a status and writes it.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrBackpressure):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "cancelled", WrapKind(op, ErrUnavailable, err))
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	}
}
