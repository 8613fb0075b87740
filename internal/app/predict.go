package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/embedding"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/nn"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/preprocess"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	"github.com/Josemiles-ctr/gaitlab/pkg/logger"
	"github.com/Josemiles-ctr/gaitlab/pkg/metrics"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// allowedExtensions lists video container extensions accepted when the
// client sends no usable content type.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// Upload carries one uploaded video file.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// Prediction is the result of one classification.
type Prediction struct {
	PredictedClass string
	Confidence     float64
	Probabilities  map[string]float64
}

// Predict runs the full pipeline for one request: persist the upload,
// sample and normalize frames, embed the clinical notes, run the forward
// pass, and map logits to a class label with per-class probabilities.
func (s *Service) Predict(ctx context.Context, upload Upload, clinicalText string) (*Prediction, error) {
	start := time.Now()

	// Readiness comes first: a request against an unloaded model is
	// answered 503 before any input inspection.
	if err := s.EnsureLoaded(ctx); err != nil {
		if errors.Is(err, ErrModelLoad) {
			metrics.RecordPredictionError("model_load")
		} else {
			metrics.RecordPredictionError("not_ready")
		}
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	if err := validateUpload(upload); err != nil {
		metrics.RecordPredictionError("invalid_input")
		return nil, err
	}
	if strings.TrimSpace(clinicalText) == "" {
		metrics.RecordPredictionError("invalid_input")
		return nil, fmt.Errorf("%w: clinical notes must not be blank", ErrInvalidInput)
	}

	if err := s.gate.Acquire(ctx); err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	metrics.UpdateInferencesInFlight(s.gate.InFlight())
	// Deferred in this order so the slot is released before the gauge is
	// re-read on the way out.
	defer func() { metrics.UpdateInferencesInFlight(s.gate.InFlight()) }()
	defer s.gate.Release()

	path, err := s.store.Save(upload.Reader, upload.Filename)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: persist upload: %v", ErrInference, err)
	}
	defer func() {
		if err := s.store.Remove(path); err != nil {
			s.logger.Warn(ctx, "temp file cleanup failed",
				logger.String("path", path),
				logger.Error(err),
			)
		}
	}()

	visual, err := s.decodeAndNormalize(ctx, path)
	if err != nil {
		return nil, err
	}

	embedStart := time.Now()
	clinical, err := s.embedder.Embed(ctx, clinicalText)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyText) {
			metrics.RecordPredictionError("invalid_input")
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		metrics.RecordPredictionError("embedding")
		return nil, fmt.Errorf("%w: embed clinical notes: %v", ErrInference, err)
	}
	metrics.RecordEmbeddingLatency(msSince(embedStart))

	forwardStart := time.Now()
	logits, err := s.network.Forward(visual, clinical)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: forward pass: %v", ErrInference, err)
	}
	probs, err := nn.Softmax(logits)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: softmax: %v", ErrInference, err)
	}
	best, err := nn.Argmax(probs)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: argmax: %v", ErrInference, err)
	}
	metrics.RecordForwardLatency(msSince(forwardStart))

	label, err := catalog.Name(best)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	probabilities := make(map[string]float64, catalog.Count())
	data := probs.Data()
	for i, name := range catalog.Names() {
		probabilities[name] = float64(data[i])
	}

	metrics.RecordPrediction()
	metrics.RecordPredictionLatency(msSince(start))
	s.logger.Info(ctx, "prediction served",
		logger.String("class", label),
		logger.Float64("confidence", probabilities[label]),
		logger.Duration("elapsed", time.Since(start)),
	)

	return &Prediction{
		PredictedClass: label,
		Confidence:     probabilities[label],
		Probabilities:  probabilities,
	}, nil
}

// decodeAndNormalize samples frames from the saved video and produces the
// (1,3,N,H,W) visual tensor.
func (s *Service) decodeAndNormalize(ctx context.Context, path string) (*tensor.Tensor, error) {
	decodeStart := time.Now()
	frames, err := s.decoder.SampleFrames(ctx, path, s.numFrames, s.frameSize, s.chunkSize)
	if err != nil {
		if errors.Is(err, video.ErrDecode) || errors.Is(err, video.ErrEmptyVideo) {
			metrics.RecordPredictionError("decode")
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: sample frames: %v", ErrInference, err)
	}
	metrics.RecordDecodeLatency(msSince(decodeStart))

	visual, err := preprocess.Normalize(frames, s.frameSize)
	if err != nil {
		metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: normalize frames: %v", ErrInference, err)
	}
	return visual, nil
}

func validateUpload(upload Upload) error {
	if upload.Reader == nil {
		return fmt.Errorf("%w: missing video file", ErrInvalidInput)
	}
	if strings.TrimSpace(upload.Filename) == "" {
		return fmt.Errorf("%w: missing video filename", ErrInvalidInput)
	}
	ct := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if strings.HasPrefix(ct, "video/") || ct == "application/octet-stream" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if allowedExtensions[ext] {
		return nil
	}
	return fmt.Errorf("%w: unsupported video type %q for %q", ErrInvalidInput, upload.ContentType, upload.Filename)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
