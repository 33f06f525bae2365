package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	service "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/validation"
)

const maxEventBody = 64 << 10

var errInvalidTimestamp = errors.New("invalid timestamp; must be RFC3339")

// EventDependencies accepts purchase events.
type EventDependencies interface {
	Ingest(ctx context.Context, e model.PurchaseEvent) (service.IngestResult, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
	log  logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, log: log}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID     string   `json:"event_id" validate:"omitempty,max=128"`
	SubjectID   string   `json:"subject_id" validate:"required,max=128"`
	Category    string   `json:"category" validate:"required"`
	ProductName string   `json:"product_name" validate:"max=256"`
	UnitPrice   *float64 `json:"unit_price" validate:"required,gte=0,lte=1e9"`
	Quantity    int      `json:"quantity" validate:"gt=0,lte=1000000"`
	Timestamp   string   `json:"timestamp" validate:"required"`
}

func (e eventRequest) event() (model.PurchaseEvent, error) {
	if err := validation.Struct(e); err != nil {
		return model.PurchaseEvent{}, err
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return model.PurchaseEvent{}, errInvalidTimestamp
	}
	return model.PurchaseEvent{
		ID:          e.EventID,
		SubjectID:   e.SubjectID,
		Category:    model.ParseCategory(e.Category),
		ProductName: e.ProductName,
		UnitPrice:   *e.UnitPrice,
		Quantity:    e.Quantity,
		OccurredAt:  ts.UTC(),
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := req.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), e)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: res.EventID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: res.EventID})
}
