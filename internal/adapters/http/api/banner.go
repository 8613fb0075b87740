// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
)

// bannerResponse describes the service on GET /.
type bannerResponse struct {
	Service    string   `json:"service"`
	Docs       []string `json:"endpoints"`
	Conditions int      `json:"conditions"`
}

// BannerHandler serves the root service banner.
type BannerHandler struct{}

// NewBannerHandler creates a new banner handler.
func NewBannerHandler() *BannerHandler {
	return &BannerHandler{}
}

// HandleBanner handles GET / requests.
func (h *BannerHandler) HandleBanner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Service: "clinical gait analysis",
		Docs: []string{
			"POST /predict",
			"GET /conditions",
			"GET /health",
			"GET /ready",
			"GET /stats",
			"GET /metrics",
		},
		Conditions: catalog.Count(),
	})
}
