// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
)

// conditionsResponse mirrors the response schema for GET /conditions.
type conditionsResponse struct {
	Conditions map[string]string `json:"conditions"`
}

// ConditionsHandler serves the supported condition catalog.
type ConditionsHandler struct{}

// NewConditionsHandler creates a new conditions handler.
func NewConditionsHandler() *ConditionsHandler {
	return &ConditionsHandler{}
}

// HandleConditions handles GET /conditions requests.
func (h *ConditionsHandler) HandleConditions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, conditionsResponse{Conditions: catalog.Descriptions()})
}
