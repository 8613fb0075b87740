// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"

	service "github.com/Josemiles-ctr/gaitlab/internal/app"
)

// predictResponse mirrors the response schema for POST /predict.
type predictResponse struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps          Dependencies
	maxUploadSize int64
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies, maxUploadSize int64) *PredictHandler {
	return &PredictHandler{deps: deps, maxUploadSize: maxUploadSize}
}

// HandlePredict handles POST /predict requests. The request is multipart
// with a "video" file part and a "clinical_condition" text field.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer file.Close()

	upload := Upload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	clinicalText := r.FormValue("clinical_condition")

	p, err := h.deps.Predict(r.Context(), upload, clinicalText)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, service.ErrNotReady):
			writeJSON(w, http.StatusServiceUnavailable, notReadyResponse{
				Ready:  false,
				Reason: err.Error(),
			})
		default:
			writeError(w, http.StatusInternalServerError, "inference_error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		PredictedClass: p.PredictedClass,
		Confidence:     p.Confidence,
		Probabilities:  p.Probabilities,
	})
}
