// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go creates: config, logger, optional media store
// Server.New() creates: sqlite.DB → auth services → domain services → handlers
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/travel-journal/internal/auth"
	"github.com/sakif/travel-journal/internal/config"
	"github.com/sakif/travel-journal/internal/handler"
	"github.com/sakif/travel-journal/internal/media"
	"github.com/sakif/travel-journal/internal/middleware"
	sqliteRepo "github.com/sakif/travel-journal/internal/repository/sqlite"
	"github.com/sakif/travel-journal/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns a database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB // database connection (owned by server, closed on shutdown)
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the auth primitives (TokenService, PasswordService)
//  3. Create the service layer with the DB
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not repositories or the DB)
//
// The uploads store is built in main (it involves a network call to the
// object store) and may be nil, which disables the upload route.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg config.Config, logger *slog.Logger, uploads media.Store) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Set up middleware and routes
	if err := s.setupRoutes(uploads); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                              → liveness check (no auth)
// GET    /metrics                             → Prometheus scrape endpoint
// GET    /auth/github/login                   → start GitHub OAuth flow
// GET    /auth/github/callback                → complete GitHub OAuth flow
// POST   /auth/register, /auth/login          → also served at /api/auth/*
// POST   /api/auth/register                   → create an account
// POST   /api/auth/login                      → password login
// POST   /api/auth/logout                     → clear the session cookie
// GET    /api/auth/me                         → current user (auth)
// GET    /api/locations                       → list locations (auth)
// POST   /api/locations                       → create location (auth)
// GET    /api/locations/search?name=          → search by name (auth)
// GET    /api/locations/timeline              → media feed (auth)
// GET    /api/locations/{id}                  → single location (auth)
// DELETE /api/locations/{id}                  → delete location (auth)
// POST   /api/locations/{id}/media            → attach media by URL (auth)
// POST   /api/locations/{id}/media/upload     → multipart upload (auth)
// PUT    /api/locations/{id}/media/{mediaId}  → edit caption (auth)
// DELETE /api/locations/{id}/media/{mediaId}  → remove media (auth)
//
// ROUTE ORDER MATTERS:
// Chi matches literal segments before parameters, so /locations/search and
// /locations/timeline must be declared — and are matched — ahead of
// /locations/{id}. Otherwise "search" would be treated as a location ID.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. CORS — answers preflight requests before any work happens
// 5. BodyLimit — caps request size before anything reads the body
// 6. Logger / Metrics — observe everything that gets past the above
func (s *Server) setupRoutes(uploads media.Store) error {
	// === AUTH PRIMITIVES ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// GitHub OAuth is optional — nil provider disables the routes' behaviour.
	var github *auth.GitHubProvider
	if s.config.OAuthConfigured() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// === SERVICES AND HANDLERS ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements repository.UserRepository and
	//   repository.LocationRepository. Services receive the interfaces,
	//   handlers receive the services.
	//
	// Notice: the handlers never touch the database directly.
	// The services never touch HTTP. Clean separation!
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	locationService := service.NewLocationService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	locationHandler := handler.NewLocationHandler(locationService, uploads, s.logger)

	// === Global Middleware ===
	// These run on EVERY request, in order
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	// CORS — the frontend is served from a different origin in development.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // cache preflight responses for 5 minutes
	}))

	s.router.Use(middleware.BodyLimit(s.config.MaxBodyBytes))
	s.router.Use(middleware.Logger(s.logger))

	// Each server owns its metrics registry so tests can build several
	// servers without duplicate-registration panics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.router.Use(middleware.NewMetrics(registry).Instrument)

	// === Unauthenticated Routes ===
	// Health is served at both roots so probes work whether or not the
	// deployment strips the /api prefix.
	s.router.Get("/health", handler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// OAuth routes live outside /api — GitHub redirects a BROWSER here,
	// and the callback URL registered with GitHub must match exactly.
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	// Auth is reachable with and without the /api prefix for the same reason
	// as /health.
	s.router.Post("/auth/register", authHandler.HandleRegister)
	s.router.Post("/auth/login", authHandler.HandleLogin)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// === API Routes ===
	requireAuth := auth.RequireAuth(tokens)

	// The token-protected routes, registered once here and mounted under
	// both roots below — same dual-mount parity as /health and /auth.
	protected := func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/auth/me", authHandler.HandleMe)
		r.Get("/me", authHandler.HandleMe) // shorthand alias

		r.Get("/locations", locationHandler.HandleList)
		r.Post("/locations", locationHandler.HandleCreate)
		r.Get("/locations/search", locationHandler.HandleSearch)
		r.Get("/locations/timeline", locationHandler.HandleTimeline)
		r.Get("/locations/{id}", locationHandler.HandleGet)
		r.Delete("/locations/{id}", locationHandler.HandleDelete)

		r.Post("/locations/{id}/media", locationHandler.HandleAddMedia)
		r.Post("/locations/{id}/media/upload", locationHandler.HandleUploadMedia)
		r.Put("/locations/{id}/media/{mediaId}", locationHandler.HandleEditCaption)
		r.Delete("/locations/{id}/media/{mediaId}", locationHandler.HandleRemoveMedia)
	}

	s.router.Group(protected)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.HandleHealth)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Group(protected)
	})

	return nil
}

// Router exposes the configured router for tests. httptest.NewServer can wrap
// it without going through Start()'s signal handling.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Tests use this;
// Start() handles it itself.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	// Ensure the database is closed when the server stops.
	// This runs AFTER everything else in this function finishes.
	defer s.db.Close()

	// Create the HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		// Received shutdown signal
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
