// Package main is the entry point for the travel journal server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars)
// 2. Create dependencies (logger, object store, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
// This separation makes the app testable and its components reusable.
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// A project might have multiple executables (e.g., cmd/server, cmd/migrate, cmd/cli).
// Each gets its own directory with its own main.go.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/travel-journal/internal/config"
	"github.com/sakif/travel-journal/internal/media"
	"github.com/sakif/travel-journal/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs human-readable logs.
	// os.Stdout means logs go to the terminal. slog.LevelDebug enables all log levels.
	//
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	// In production, you'd use LevelInfo or LevelWarn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. READ CONFIGURATION ===
	// config.Load reads every setting from environment variables and applies
	// defaults. JWT_SECRET is the one variable with no default — the server
	// refuses to start without it rather than running with guessable tokens.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. ENSURE THE DATA DIRECTORY EXISTS ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	// 0755 = owner can read/write/execute, others can read/execute.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. OPTIONAL OBJECT STORE ===
	// MinIO is optional — the server starts without it, but the multipart
	// upload route rejects requests with 400 and clients must attach media
	// by URL.
	// Bucket creation is a network call, so it gets a startup timeout.
	var uploads media.Store
	if cfg.MinioConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := media.NewMinioStore(ctx, media.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		cancel()
		if err != nil {
			logger.Warn("object store unavailable — file uploads disabled",
				slog.String("endpoint", cfg.MinioEndpoint),
				slog.String("error", err.Error()),
			)
		} else {
			uploads = store
			logger.Info("object store connected",
				slog.String("endpoint", cfg.MinioEndpoint),
				slog.String("bucket", cfg.MinioBucket),
			)
		}
	} else {
		logger.Info("no object store configured — media can only be attached by URL")
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(*cfg, logger, uploads)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
