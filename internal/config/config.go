// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"
)

// EmbeddingConfig selects and tunes the clinical text embedding strategy.
type EmbeddingConfig struct {
	// Strategy is "hash" (deterministic, local) or "remote" (HTTP service).
	Strategy string `koanf:"strategy"`

	// Dim is the embedding dimensionality expected by the model checkpoint.
	Dim int `koanf:"dim"`

	// RemoteURL is the base URL of the embedding service (remote strategy).
	RemoteURL string `koanf:"remote_url"`

	// Timeout bounds one remote embedding call.
	Timeout time.Duration `koanf:"timeout"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// ModelPath points at the safetensors checkpoint.
	ModelPath string `koanf:"model_path"`

	// Device selects the execution target. Only "cpu" is supported; the
	// field exists so deployments carrying a device setting fail loudly
	// instead of silently running on the wrong target.
	Device string `koanf:"device"`

	// PreloadModel loads weights at startup instead of on first request.
	PreloadModel bool `koanf:"preload_model"`

	// NumFrames is the number of frames sampled per video.
	NumFrames int `koanf:"num_frames"`

	// FrameSize is the square side length frames are scaled to.
	FrameSize int `koanf:"frame_size"`

	// ChunkSize bounds how many frames one decoder invocation extracts.
	ChunkSize int `koanf:"chunk_size"`

	// MaxConcurrentInferences bounds simultaneous forward passes.
	MaxConcurrentInferences int `koanf:"max_concurrent_inferences"`

	// MaxUploadSize caps the accepted request body in bytes.
	MaxUploadSize int64 `koanf:"max_upload_size"`

	// TempDir holds per-request video uploads.
	TempDir string `koanf:"temp_dir"`

	// FFmpegPath and FFprobePath override binary discovery via PATH.
	FFmpegPath  string `koanf:"ffmpeg_path"`
	FFprobePath string `koanf:"ffprobe_path"`

	// Embedding configures the clinical text embedder.
	Embedding EmbeddingConfig `koanf:"embedding"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":8000",
		ModelPath:               "clinical_gait_model.safetensors",
		Device:                  "cpu",
		PreloadModel:            false,
		NumFrames:               16,
		FrameSize:               224,
		ChunkSize:               2,
		MaxConcurrentInferences: 1,
		MaxUploadSize:           100 << 20,
		TempDir:                 "",
		Embedding: EmbeddingConfig{
			Strategy: "hash",
			Dim:      384,
			Timeout:  30 * time.Second,
		},
	}
}
