// Package server wires the application together: router, middleware,
// dependency graph, and graceful shutdown.
//
// This is the composition root — main.go only reads config; every
// dependency (DB → repositories → services → handlers) is assembled here,
// so the whole chain is visible in one place.
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

	"auctionhouse/internal/auth"
	"auctionhouse/internal/handler"
	"auctionhouse/internal/media"
	"auctionhouse/internal/middleware"
	sqliteRepo "auctionhouse/internal/repository/sqlite"
	"auctionhouse/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	UploadDir string

	// JWTSecret signs admin tokens. Empty disables the admin surface
	// (admin login and the delete/paid endpoints return errors).
	JWTSecret string

	// AdminUsername/AdminPassword provision the admin account at startup.
	// Both empty skips provisioning; the account is never a baked-in
	// constant.
	AdminUsername string
	AdminPassword string

	// EnforceEndTime gates bid placement on the lot's end time.
	EnforceEndTime bool

	// AllowedOrigins for CORS. Empty means same-origin deployments only.
	AllowedOrigins []string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the dependency graph and registers all routes.
//
// Wiring order: sqlite.DB (implements all three repository interfaces) →
// media.Store → services → handlers → routes. Handlers never touch the
// database; services never touch HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// === Media ===
	store, err := media.NewStore(s.config.UploadDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating media store: %w", err)
	}

	// Stored images are served straight off disk under /uploads/.
	fileServer := http.FileServer(http.Dir(store.Dir()))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	// === Admin tokens (optional) ===
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set — admin endpoints are disabled")
	}

	// === Services ===
	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)
	lotService := service.NewLotService(s.db, store, s.logger)
	bidService := service.NewBidService(s.db, s.db, s.config.EnforceEndTime, s.logger)

	// Provision the admin account from config before serving traffic.
	if s.config.AdminUsername != "" || s.config.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := authService.ProvisionAdmin(ctx, s.config.AdminUsername, s.config.AdminPassword); err != nil {
			return fmt.Errorf("provisioning admin account: %w", err)
		}
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	lotHandler := handler.NewLotHandler(lotService, s.logger)
	bidHandler := handler.NewBidHandler(bidService, s.logger)
	uploadHandler := handler.NewUploadHandler(store, s.logger)

	s.router.Get("/health", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Get("/lots", lotHandler.HandleList)
		r.Get("/lots/{id}", lotHandler.HandleGet)
		r.Get("/lots/{id}/bids", bidHandler.HandleHistory)
		r.Post("/lots", lotHandler.HandleCreate)

		r.Post("/bids", bidHandler.HandlePlace)

		r.Post("/upload-banner", uploadHandler.HandleBanner)

		if tokens != nil {
			r.Post("/admin/login", authHandler.HandleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin(tokens))
				r.Delete("/lots/{id}", lotHandler.HandleDelete)
				r.Put("/admin/users/{username}/paid", authHandler.HandleSetPaid)
			})
		}
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// close the database.
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
			slog.String("uploads", s.config.UploadDir),
			slog.Bool("enforceEndTime", s.config.EnforceEndTime),
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

// Router exposes the configured router for integration tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without running the HTTP listener.
// Used by tests that drive the router directly.
func (s *Server) Close() error {
	return s.db.Close()
}
