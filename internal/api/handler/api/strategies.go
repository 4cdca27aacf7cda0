// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/strategy"
)

// StrategiesHandler lists the registered strategies.
type StrategiesHandler struct {
	registry *strategy.Registry
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(registry *strategy.Registry) *StrategiesHandler {
	return &StrategiesHandler{registry: registry}
}

// List returns every strategy with its default parameters.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.registry.List())
}
