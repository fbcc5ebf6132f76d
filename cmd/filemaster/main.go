package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iskanderovv/filemaster/internal/auth"
	"github.com/iskanderovv/filemaster/internal/config"
	"github.com/iskanderovv/filemaster/internal/httpapi"
	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/media"
	"github.com/iskanderovv/filemaster/internal/progress"
	"github.com/iskanderovv/filemaster/internal/ratelimit"
	"github.com/iskanderovv/filemaster/internal/storage"
	"github.com/iskanderovv/filemaster/internal/uploads"
)

func main() {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.New(logging.LevelError).Error("invalid configuration", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.Silent()
	if cfg.Logging.Enabled {
		logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	}

	store, err := storage.NewFilesystem(cfg.Upload.PublicDir)
	if err != nil {
		logger.Error("failed to open storage root", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	if err := store.EnsureDir(cfg.Upload.UploadDir); err != nil {
		logger.Error("failed to create upload directory", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	if err := store.EnsureDir(cfg.Upload.DocsDir); err != nil {
		logger.Error("failed to create docs directory", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	stop := make(chan struct{})
	defer close(stop)

	tracker := progress.NewTracker()
	if cfg.Upload.EnableProgress && cfg.Upload.ProgressTTL > 0 {
		tracker.StartReaper(time.Minute, cfg.Upload.ProgressTTL, stop)
	}

	var limiter *ratelimit.SlidingWindow
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
		go func() {
			ticker := time.NewTicker(cfg.RateLimit.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.Sweep(time.Now())
				case <-stop:
					return
				}
			}
		}()
	}

	gate := auth.NewGate(auth.Config{
		Enabled:      cfg.Auth.Enabled,
		APIKey:       cfg.Auth.APIKey,
		BearerSecret: cfg.Auth.BearerSecret,
	}, logger)

	svc := uploads.NewService(
		cfg.Upload,
		store,
		gate,
		limiter,
		tracker,
		media.NewOptimizer(store, cfg.Upload, logger),
		media.NewExtractor(),
		logger,
	)

	server := httpapi.New(svc, cfg.Server, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", logging.WithField("error", err.Error()))
		}
	}()

	logger.Info("Starting HTTP server", logging.WithField("addr", cfg.Server.HTTPAddr))
	if err := server.Start(cfg.Server.HTTPAddr); err != nil && err != http.ErrServerClosed {
		logger.Error("HTTP server error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
}
