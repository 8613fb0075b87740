package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Josemiles-ctr/gaitlab/internal/adapters/http/api"
	app "github.com/Josemiles-ctr/gaitlab/internal/app"
	"github.com/Josemiles-ctr/gaitlab/internal/config"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/embedding"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	"github.com/Josemiles-ctr/gaitlab/pkg/logger"
)

// HTTP server timeout constants. The write timeout is generous because one
// prediction decodes and classifies a whole video within the request.
const (
	readTimeout       = 60 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	decoder, err := video.NewDecoder(
		video.WithFFmpegPath(cfg.FFmpegPath),
		video.WithFFprobePath(cfg.FFprobePath),
	)
	if err != nil {
		loggerInstance.Error(ctx, "decoder unavailable", logger.Error(err))
		return
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "embedder unavailable", logger.Error(err))
		return
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithModelPath(cfg.ModelPath),
		app.WithNumFrames(cfg.NumFrames),
		app.WithFrameSize(cfg.FrameSize),
		app.WithChunkSize(cfg.ChunkSize),
		app.WithEmbeddingDim(cfg.Embedding.Dim),
		app.WithMaxConcurrentInferences(cfg.MaxConcurrentInferences),
		app.WithTempDir(cfg.TempDir),
		app.WithDecoder(decoder),
		app.WithEmbedder(embedder),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Optionally load weights before accepting traffic. A failure here is
	// logged, not fatal: /ready keeps retrying.
	if cfg.PreloadModel {
		if err := svc.EnsureLoaded(ctx); err != nil {
			loggerInstance.Warn(ctx, "model preload failed; will retry lazily", logger.Error(err))
		}
	}

	// Register API routes with the service dependency.
	apiServer := api.NewServer(svc, cfg.MaxUploadSize)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newEmbedder builds the embedding strategy selected in config.
func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Strategy {
	case "remote":
		return embedding.NewRemoteEmbedder(cfg.Embedding.RemoteURL,
			embedding.WithRemoteDim(cfg.Embedding.Dim),
			embedding.WithRemoteTimeout(cfg.Embedding.Timeout),
		)
	default:
		return embedding.NewHashEmbedder(embedding.WithHashDim(cfg.Embedding.Dim)), nil
	}
}
