package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if GAITLAB_CONFIG is set
//  3. env (prefix GAITLAB_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("GAITLAB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: GAITLAB_ADDR, GAITLAB_NUM_FRAMES, ...
	// Flat keys keep their underscores to match the koanf struct tags;
	// GAITLAB_EMBEDDING_* keys map into the nested embedding block.
	envProvider := env.Provider("GAITLAB_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "gaitlab_")
		if rest, ok := strings.CutPrefix(s, "embedding_"); ok {
			return "embedding." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ModelPath == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.Device != "cpu":
		return fmt.Errorf("%w: unsupported device %q (only cpu)", ErrInvalidConfig, c.Device)
	case c.NumFrames <= 0:
		return fmt.Errorf("%w: num_frames must be positive", ErrInvalidConfig)
	case c.FrameSize < 8:
		return fmt.Errorf("%w: frame_size must be at least 8", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	case c.MaxConcurrentInferences <= 0:
		return fmt.Errorf("%w: max_concurrent_inferences must be positive", ErrInvalidConfig)
	case c.MaxUploadSize <= 0:
		return fmt.Errorf("%w: max_upload_size must be positive", ErrInvalidConfig)
	case c.Embedding.Dim <= 0:
		return fmt.Errorf("%w: embedding.dim must be positive", ErrInvalidConfig)
	}

	switch c.Embedding.Strategy {
	case "hash":
	case "remote":
		if c.Embedding.RemoteURL == "" {
			return fmt.Errorf("%w: embedding.remote_url required for remote strategy", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding.strategy %q", ErrInvalidConfig, c.Embedding.Strategy)
	}
	return nil
}
