package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/config"
	"github.com/tutrabajo/apiserver/internal/crypto"
	"github.com/tutrabajo/apiserver/internal/db"
	"github.com/tutrabajo/apiserver/internal/events"
	"github.com/tutrabajo/apiserver/internal/handlers"
	"github.com/tutrabajo/apiserver/internal/logger"
	"github.com/tutrabajo/apiserver/internal/services"
	"github.com/tutrabajo/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
	log        logrus.FieldLogger
}

// Deps are the collaborators the HTTP routes are built from.
type Deps struct {
	Store  *store.RecordStore
	Codec  *crypto.Codec
	Events services.Emitter
	Log    logrus.FieldLogger
}

// New opens the database and event backend and constructs a Server.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	codec, err := crypto.NewCodec(cfg.Crypto.Key, cfg.Crypto.Strict)
	if err != nil {
		return nil, fmt.Errorf("CRYPTO_KEY: %w", err)
	}
	if !cfg.Crypto.Strict {
		log.Warn("CRYPTO_KEY_STRICT is disabled; keys that are not 64 hex characters or 32 bytes are hashed")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	backend, err := events.NewBackend(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	publisher := events.NewPublisher(backend, cfg.Events.Channel, log)

	recordStore := store.New(dbConn, store.DialectForDriver(db.Driver(cfg.Database)))

	router := NewRouter(cfg, Deps{
		Store:  recordStore,
		Codec:  codec,
		Events: publisher,
		Log:    log,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

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
		events:     publisher,
		log:        log,
	}, nil
}

// NewRouter builds the chi router with middleware and every API route.
func NewRouter(cfg config.Config, deps Deps) *chi.Mux {
	userService := services.NewUserService(deps.Store, deps.Codec, deps.Events, deps.Log)
	jobService := services.NewJobService(deps.Store, deps.Codec, deps.Events, deps.Log)
	cvService := services.NewCVService(deps.Store, deps.Codec, deps.Events, deps.Log)
	validator := handlers.NewValidator()

	var adminMiddleware func(http.Handler) http.Handler
	if cfg.Admin.JWTSecret != "" {
		adminMiddleware = handlers.RequireAdmin(cfg.Admin.JWTSecret)
	} else {
		deps.Log.Warn("ADMIN_JWT_SECRET is not set; admin routes are unauthenticated")
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogger(deps.Log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           86400,
		}),
	)

	healthz := handlers.Healthz(deps.Store)
	router.Get("/health", healthz)
	router.Get("/healthz", healthz)

	router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService, validator, deps.Log)
		})
		r.Route("/jobs", func(r chi.Router) {
			handlers.JobRouter(r, jobService, validator, deps.Log, adminMiddleware)
		})
		r.Route("/cv", func(r chi.Router) {
			handlers.CVRouter(r, cvService, validator, deps.Log)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, userService, deps.Log, adminMiddleware)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the event backend and
// the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.events.Close(); closeErr != nil {
		s.log.WithError(closeErr).Warn("failed to close events backend")
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
