package api

import (
	"net/http"
	"strings"

	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
)

// SubjectsHandler serves subject listings and per-subject results.
type SubjectsHandler struct {
	deps SubjectDependencies
	log  logger.Logger
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(deps SubjectDependencies, log logger.Logger) *SubjectsHandler {
	return &SubjectsHandler{deps: deps, log: log}
}

type subjectsResponse struct {
	Subjects []types.Subject `json:"subjects"`
	Count    int             `json:"count"`
}

// HandleList handles GET /subjects.
func (h *SubjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.deps.Subjects(r.Context())
	if err != nil {
		fail(r.Context(), w, h.log, "api.list_subjects", err)
		return
	}
	if subjects == nil {
		subjects = []types.Subject{}
	}
	writeJSON(w, http.StatusOK, subjectsResponse{Subjects: subjects, Count: len(subjects)})
}

// HandleAnalysis handles GET /subjects/{id}/analysis.
func (h *SubjectsHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.analysis"
	id, ok := subjectID(w, r, op)
	if !ok {
		return
	}
	a, err := h.deps.Analyze(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandlePersonality handles GET /subjects/{id}/personality.
func (h *SubjectsHandler) HandlePersonality(w http.ResponseWriter, r *http.Request) {
	const op = "api.personality"
	id, ok := subjectID(w, r, op)
	if !ok {
		return
	}
	p, err := h.deps.Personality(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleAnomalies handles GET /subjects/{id}/anomalies.
func (h *SubjectsHandler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	const op = "api.anomalies"
	id, ok := subjectID(w, r, op)
	if !ok {
		return
	}
	rep, err := h.deps.Anomalies(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func subjectID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return "", false
	}
	return id, true
}
