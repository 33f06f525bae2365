package api

import (
	"errors"
	"net/http"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/personality"
	"github.com/okian/spendlens/pkg/logger"
)

// ModelsHandler triggers population model training.
type ModelsHandler struct {
	deps ModelDependencies
	log  logger.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelDependencies, log logger.Logger) *ModelsHandler {
	return &ModelsHandler{deps: deps, log: log}
}

// HandleTrain handles POST /models/train. A population too small to train
// on is answered with 409 and the result that explains why.
func (h *ModelsHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Train(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, personality.ErrInsufficientPopulation), errors.Is(err, anomaly.ErrInsufficientSamples):
		writeJSON(w, http.StatusConflict, res)
	default:
		fail(r.Context(), w, h.log, "api.train", err)
	}
}
