// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the whole
// dependency graph is assembled in one place:
//
//	config → sqlite.DB → IdentityService/AuthService → handlers → routes
//
// Keeping it out of main.go makes the server testable and keeps main minimal.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Sathishchary/Electron-Angular-App/internal/auth"
	"github.com/Sathishchary/Electron-Angular-App/internal/config"
	"github.com/Sathishchary/Electron-Angular-App/internal/handler"
	"github.com/Sathishchary/Electron-Angular-App/internal/middleware"
	"github.com/Sathishchary/Electron-Angular-App/internal/model"
	sqliteRepo "github.com/Sathishchary/Electron-Angular-App/internal/repository/sqlite"
	"github.com/Sathishchary/Electron-Angular-App/internal/service"
)

// Server holds the router and the resources it owns. The database connection
// is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New creates a Server with the full dependency chain wired.
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete sqlite.DB), handlers get services. The
// concrete DB type appears only here.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: JWT_SECRET is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/login                        → email/password login (JSON)
//	GET    /auth/me                           → current profile (bearer token)
//	DELETE /auth/oauth2/{provider}            → disconnect a provider (bearer token)
//	GET    /auth/oauth2/{provider}/login      → start an OAuth2 flow (browser)
//	GET    /auth/oauth2/{provider}/callback   → finish an OAuth2 flow (browser)
func (s *Server) setupRoutes() {
	// Global middleware — runs on every request, in order.
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	// Dependency chain: per-entity stores over the shared DB handle.
	users := sqliteRepo.NewUserStore(s.db)
	links := sqliteRepo.NewProviderLinkStore(s.db)
	identityService := service.NewIdentityService(users, links, s.logger)
	authService := service.NewAuthService(
		users, links, identityService, s.tokens, auth.NewPasswordService(), s.logger,
	)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	oauthHandler := handler.NewOAuthHandler(s.providers(), authService, s.config.FrontendURL, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)

		// Browser-facing OAuth2 flow — unauthenticated by nature.
		r.Get("/oauth2/{provider}/login", oauthHandler.HandleProviderLogin)
		r.Get("/oauth2/{provider}/callback", oauthHandler.HandleProviderCallback)

		// Bearer-token protected API.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Delete("/oauth2/{provider}", authHandler.HandleDisconnect)
		})
	})
}

// providers builds the enabled OAuth2 providers from config. A provider with
// missing credentials simply isn't registered — its routes 404/redirect.
func (s *Server) providers() map[string]auth.Provider {
	providers := make(map[string]auth.Provider)

	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		providers[model.ProviderGoogle] = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("Google OAuth2 credentials not set — provider disabled")
	}

	if s.config.InstagramClientID != "" && s.config.InstagramClientSecret != "" {
		providers[model.ProviderInstagram] = auth.NewInstagramProvider(
			s.config.InstagramClientID,
			s.config.InstagramClientSecret,
			s.config.InstagramCallbackURL,
		)
	} else {
		s.logger.Warn("Instagram OAuth2 credentials not set — provider disabled")
	}

	return providers
}

// Start starts the HTTP server and handles graceful shutdown:
// 1. Stop accepting new connections on SIGINT/SIGTERM
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("frontend", s.config.FrontendURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
