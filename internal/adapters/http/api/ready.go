// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// notReadyResponse is the error body shared by /ready and /predict when
// weights are not loaded.
type notReadyResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

type readyResponse struct {
	Ready bool `json:"ready"`
}

// ReadyHandler handles readiness requests.
type ReadyHandler struct {
	deps Dependencies
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(deps Dependencies) *ReadyHandler {
	return &ReadyHandler{deps: deps}
}

// HandleReady handles GET /ready requests. A probe triggers a load attempt
// so the first prediction does not pay the loading cost.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.EnsureLoaded(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, notReadyResponse{
			Ready:  false,
			Reason: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Ready: true})
}
