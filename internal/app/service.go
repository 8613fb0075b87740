// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Josemiles-ctr/gaitlab/internal/adapters/storage"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/embedding"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/model"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	"github.com/Josemiles-ctr/gaitlab/pkg/logger"
	"github.com/Josemiles-ctr/gaitlab/pkg/metrics"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// FrameDecoder extracts sampled frames from a video file.
type FrameDecoder interface {
	SampleFrames(ctx context.Context, path string, numFrames, frameSize, chunkSize int) ([]video.Frame, error)
}

// Network is the loaded classification model.
type Network interface {
	LoadWeights(path string) error
	Forward(visual, clinical *tensor.Tensor) (*tensor.Tensor, error)
}

// UploadStore persists one request's video to a local file.
type UploadStore interface {
	Save(r io.Reader, filename string) (string, error)
	Remove(path string) error
}

// Service implements the API dependencies for the gait inference system.
type Service struct {
	mu sync.Mutex

	// Core components
	decoder  FrameDecoder
	embedder embedding.Embedder
	network  Network
	store    UploadStore
	gate     *gate

	// Configuration
	modelPath     string
	numFrames     int
	frameSize     int
	chunkSize     int
	embeddingDim  int
	maxConcurrent int
	tempDir       string

	// State
	started bool
	loaded  bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModelPath sets the safetensors checkpoint path.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithNumFrames sets how many frames are sampled per video.
func WithNumFrames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.numFrames = n
		}
	}
}

// WithFrameSize sets the square side length frames are scaled to.
func WithFrameSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.frameSize = n
		}
	}
}

// WithChunkSize bounds frames per decoder invocation.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithEmbeddingDim sets the clinical embedding dimensionality.
func WithEmbeddingDim(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.embeddingDim = n
		}
	}
}

// WithMaxConcurrentInferences bounds simultaneous forward passes.
func WithMaxConcurrentInferences(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithTempDir sets the directory for per-request uploads.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDecoder sets a custom frame decoder.
func WithDecoder(d FrameDecoder) Option {
	return func(s *Service) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithEmbedder sets a custom clinical text embedder.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Service) {
		if e != nil {
			s.embedder = e
		}
	}
}

// WithNetwork sets a custom classification network.
func WithNetwork(n Network) Option {
	return func(s *Service) {
		if n != nil {
			s.network = n
		}
	}
}

// WithUploadStore sets a custom upload store.
func WithUploadStore(st UploadStore) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelPath:     "clinical_gait_model.safetensors",
		numFrames:     16,
		frameSize:     224,
		chunkSize:     2,
		embeddingDim:  embedding.DefaultDim,
		maxConcurrent: 1,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components. Weights are not loaded here;
// call EnsureLoaded (or let the first prediction trigger it).
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting gait inference service...")

	if s.decoder == nil {
		d, err := video.NewDecoder()
		if err != nil {
			return fmt.Errorf("init decoder: %w", err)
		}
		s.decoder = d
	}
	if s.embedder == nil {
		s.embedder = embedding.NewHashEmbedder(embedding.WithHashDim(s.embeddingDim))
	}
	if s.store == nil {
		st, err := storage.NewTempStore(s.tempDir)
		if err != nil {
			return fmt.Errorf("init upload store: %w", err)
		}
		s.store = st
	}
	if s.network == nil {
		m, err := model.New(model.Config{
			NumFrames:    s.numFrames,
			FrameSize:    s.frameSize,
			EmbeddingDim: s.embeddingDim,
			NumClasses:   catalog.Count(),
		})
		if err != nil {
			return fmt.Errorf("init model: %w", err)
		}
		s.network = m
	}
	s.gate = newGate(s.maxConcurrent)

	s.started = true
	metrics.UpdateModelReady(false)
	s.logger.Info(ctx, "gait inference service started",
		logger.Int("numFrames", s.numFrames),
		logger.Int("frameSize", s.frameSize),
		logger.Int("embeddingDim", s.embeddingDim),
		logger.Int("maxConcurrent", s.maxConcurrent),
	)

	return nil
}

// Stop shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "gait inference service stopped")
}

// IsReady reports whether weights are loaded and predictions can be served.
func (s *Service) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.loaded
}

// EnsureLoaded loads model weights if they are not loaded yet. A failed
// attempt leaves the service not ready and is retried on the next call.
// Once loaded it is an idempotent no-op.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("%w: service not started", ErrNotReady)
	}
	if s.loaded {
		return nil
	}

	metrics.RecordModelLoadAttempt()
	s.logger.Info(ctx, "loading model weights", logger.String("path", s.modelPath))
	if err := s.network.LoadWeights(s.modelPath); err != nil {
		metrics.RecordModelLoadFailure()
		s.logger.Error(ctx, "model load failed",
			logger.String("path", s.modelPath),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	s.loaded = true
	metrics.UpdateModelReady(true)
	s.logger.Info(ctx, "model weights loaded", logger.String("path", s.modelPath))
	return nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.Lock()
	started, loaded := s.started, s.loaded
	s.mu.Unlock()

	stats := map[string]interface{}{
		"started":        started,
		"model_loaded":   loaded,
		"model_path":     s.modelPath,
		"num_frames":     s.numFrames,
		"frame_size":     s.frameSize,
		"embedding_dim":  s.embeddingDim,
		"max_concurrent": s.maxConcurrent,
		"num_classes":    catalog.Count(),
	}
	if started && s.gate != nil {
		inFlight := s.gate.InFlight()
		stats["in_flight"] = inFlight
		metrics.UpdateInferencesInFlight(inFlight)
	}
	return stats
}
