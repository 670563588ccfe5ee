// Package api serves the factor board over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"FactorPulse/internal/board"
	"FactorPulse/internal/metrics"
	"FactorPulse/internal/model"
)

// Refresher forces a new snapshot from the backend.
type Refresher interface {
	Refresh(ctx context.Context) (*model.FactorSnapshot, error)
}

// Defaults are used when a request leaves a parameter out.
type Defaults struct {
	Horizon  model.Horizon
	TopN     int
	XHorizon model.Horizon
	YHorizon model.Horizon
}

// Config wires the server's collaborators.
type Config struct {
	Addr      string
	Board     *board.Service
	Refresher Refresher
	Metrics   *metrics.Registry
	Defaults  Defaults
	Log       zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	handler *Handler
	metrics *metrics.Registry
	log     zerolog.Logger
}

// New creates the server and registers all routes.
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "api").Logger()
	s := &Server{
		router:  chi.NewRouter(),
		handler: NewHandler(cfg.Board, cfg.Refresher, cfg.Defaults, log),
		metrics: cfg.Metrics,
		log:     log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	h := s.handler
	s.router.Get("/health", h.HandleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/factors", func(r chi.Router) {
			r.Get("/", h.HandleListFactors)
			r.Get("/{id}", h.HandleGetFactor)
			r.Get("/{id}/sparkline", h.HandleGetSparkline)
			r.Get("/{id}/sparkline.png", h.HandleGetSparklinePNG)
		})
		r.Get("/rankings", h.HandleGetRankings)
		r.Get("/rotation", h.HandleGetRotation)
		r.Get("/rotation.png", h.HandleGetRotationPNG)
		r.Get("/summary", h.HandleGetSummary)
		r.Post("/refresh", h.HandleRefresh)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.APIRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			s.metrics.APIDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
