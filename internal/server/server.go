// Package server wires the dependency graph and defines the routes.
//
// This is the composition root: the database, services, handlers, and
// middleware are all constructed here, then connected to URL patterns.
// main.go stays minimal; tests can build a server without running it.
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

	"github.com/appdotbuilder/amancores/internal/auth"
	"github.com/appdotbuilder/amancores/internal/handler"
	"github.com/appdotbuilder/amancores/internal/middleware"
	sqliteRepo "github.com/appdotbuilder/amancores/internal/repository/sqlite"
	"github.com/appdotbuilder/amancores/internal/service"
)

// Config holds server configuration, loaded from the environment in
// main.go.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret enables authentication. When empty the auth routes are
	// not mounted and the API runs open, which is fine for local
	// development.
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file
// lock released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain assembled: sqlite
// DB → repositories (the DB value implements all of them) → services →
// handlers → routes.
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

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	userService := service.NewUserService(s.db, s.logger)
	postService := service.NewPostService(s.db, s.db, s.db, s.logger)
	followService := service.NewFollowService(s.db, s.db, s.db, s.logger)
	likeService := service.NewLikeService(s.db, s.db, s.db, s.db, s.logger)
	listingService := service.NewListingService(s.db, s.db, s.logger)
	transactionService := service.NewTransactionService(s.db, s.db, s.db, s.db, s.logger)
	notificationService := service.NewNotificationService(s.db, s.db, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	followHandler := handler.NewFollowHandler(followService, s.logger)
	likeHandler := handler.NewLikeHandler(likeService, s.logger)
	listingHandler := handler.NewListingHandler(listingService, s.logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.HandleCreate)
			r.Get("/", userHandler.HandleList)
			r.Get("/username/{username}", userHandler.HandleGetByUsername)
			r.Get("/{id}", userHandler.HandleGetByID)
			r.Patch("/{id}", userHandler.HandleUpdate)
			r.Get("/{id}/posts", postHandler.HandleListByUser)
			r.Get("/{id}/followers", followHandler.HandleListFollowers)
			r.Get("/{id}/following", followHandler.HandleListFollowing)
			r.Get("/{id}/listings", listingHandler.HandleListByUser)
			r.Get("/{id}/transactions", transactionHandler.HandleListByUser)
			r.Get("/{id}/notifications", notificationHandler.HandleListByUser)
			r.Get("/{id}/notifications/unread_count", notificationHandler.HandleCountUnread)
			r.Post("/{id}/notifications/read_all", notificationHandler.HandleMarkAllRead)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", postHandler.HandleCreate)
			r.Get("/", postHandler.HandleList)
			r.Get("/{id}", postHandler.HandleGetByID)
			r.Patch("/{id}", postHandler.HandleUpdate)
			r.Delete("/{id}", postHandler.HandleDelete)
			r.Get("/{id}/replies", postHandler.HandleListReplies)
			r.Post("/{id}/likes", likeHandler.HandleCreate)
			r.Delete("/{id}/likes/{userID}", likeHandler.HandleDelete)
		})

		r.Route("/follows", func(r chi.Router) {
			r.Post("/", followHandler.HandleCreate)
			r.Get("/{followerID}/{followingID}", followHandler.HandleGet)
			r.Delete("/{followerID}/{followingID}", followHandler.HandleDelete)
		})

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", listingHandler.HandleCreate)
			r.Get("/", listingHandler.HandleList)
			r.Get("/search", listingHandler.HandleSearch)
			r.Get("/{id}", listingHandler.HandleGetByID)
			r.Patch("/{id}", listingHandler.HandleUpdate)
			r.Delete("/{id}", listingHandler.HandleDeactivate)
			r.Get("/{id}/transactions", transactionHandler.HandleListByListing)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", transactionHandler.HandleCreate)
			r.Get("/{id}", transactionHandler.HandleGetByID)
			r.Patch("/{id}/status", transactionHandler.HandleUpdateStatus)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", notificationHandler.HandleCreate)
			r.Post("/{id}/read", notificationHandler.HandleMarkRead)
		})
	})

	return s.setupAuthRoutes()
}

// setupAuthRoutes mounts registration, login, and the GitHub OAuth flow.
// Skipped entirely when no JWT secret is configured.
func (s *Server) setupAuthRoutes() error {
	if s.config.JWTSecret == "" {
		s.logger.Warn("JWT_SECRET not set, auth routes disabled")
		return nil
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Warn("GitHub OAuth credentials not set, OAuth routes disabled")
	}

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
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

// Router exposes the configured router for handler tests.
func (s *Server) Router() http.Handler {
	return s.router
}
