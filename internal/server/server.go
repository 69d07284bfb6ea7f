package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/ailice/ailice/config"
	"github.com/ailice/ailice/internal/db"
	"github.com/ailice/ailice/internal/events"
	"github.com/ailice/ailice/internal/handlers"
	"github.com/ailice/ailice/internal/mq"
	"github.com/ailice/ailice/internal/services"
	"github.com/ailice/ailice/internal/store"
	"github.com/ailice/ailice/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	passwords, err := services.NewPasswordScheme(cfg.PasswordScheme)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var publisher events.Publisher = events.Nop{}
	if queue != nil {
		publisher = events.NewMQPublisher(queue, cfg.Events.Channel)
	}

	// A missing secret is not fatal at startup: login answers 500 until one
	// is configured, register keeps working.
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set; login will fail")
	}
	if cfg.PasswordScheme == "" || cfg.PasswordScheme == config.PasswordSchemePlain {
		log.Warn().Msg("passwords are stored in plain text; set PASSWORD_SCHEME=bcrypt")
	}

	userRepo := store.NewUserRepository(dbConn)
	authService := services.NewAuthService(userRepo, token.NewIssuer(cfg.JWTSecret), passwords, publisher)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	router := NewRouter(authService)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
	}, nil
}

// NewRouter builds the HTTP routes around an AuthService.
func NewRouter(authService *services.AuthService) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the store and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
