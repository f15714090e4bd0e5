// Package api exposes the classifier and its supporting stores over HTTP.
//
// Routes mirror the browser client: classification at /search, history,
// accounts, settings, feedback and education content, plus model
// introspection, health and Prometheus metrics. New searches are streamed to
// websocket clients on /ws/history.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"exoplanet-ai/internal/auth"
	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/metrics"
	"exoplanet-ai/internal/ml"
	"exoplanet-ai/internal/storage"

	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the serving options.
type Config struct {
	Addr            string
	StaticDir       string
	CORSOrigins     []string
	DefaultLanguage string
	HistoryLimit    int
}

// Server wires the pipeline, stores and auth service to HTTP routes.
type Server struct {
	cfg      Config
	pipeline *ml.Pipeline
	store    storage.Store
	auth     *auth.Service
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	hub      *Hub
	validate *validator.Validate
	handler  http.Handler
	server   *http.Server

	mu        sync.Mutex
	isRunning bool
	cancelHub context.CancelFunc
	now       func() time.Time
}

// NewServer builds the router. m and gatherer may be nil, in which case
// request metrics are not recorded and /metrics is not served.
func NewServer(cfg Config, pipeline *ml.Pipeline, store storage.Store, authSvc *auth.Service, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		auth:     authSvc,
		metrics:  m,
		gatherer: gatherer,
		hub:      NewHub(store, cfg.HistoryLimit, cfg.CORSOrigins, m),
		validate: common.NewValidator(),
		now:      time.Now,
	}

	r := mux.NewRouter()
	r.Use(s.accessLog, recoverer)

	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/history/{id}", s.handleHistoryRecord).Methods(http.MethodGet)
	r.Handle("/ws/history", s.hub).Methods(http.MethodGet)

	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/user/id", s.handleUserID).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.handleSettings).Methods(http.MethodPost)
	r.HandleFunc("/me", s.handleProfile).Methods(http.MethodGet)

	r.HandleFunc("/help", s.handleFeedback).Methods(http.MethodPost)
	r.HandleFunc("/feedback/stats", s.handleFeedbackStats).Methods(http.MethodGet)
	r.HandleFunc("/api/education/{topic}", s.handleEducation).Methods(http.MethodGet)

	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	r.HandleFunc("/model/importance", s.handleImportance).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	if cfg.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
		r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(cfg.StaticDir, "index.html"))
		}).Methods(http.MethodGet)
	}

	// CORS wraps the router so that preflight requests never reach the
	// method matchers.
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Hub returns the history feed.
func (s *Server) Hub() *Hub { return s.hub }

// Start runs the history feed and begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelHub = cancel
	go s.hub.Run(ctx)

	go func() {
		log.Info().
			Str("address", s.server.Addr).
			Msg("Starting HTTP server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop drains in-flight requests and disconnects feed clients.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancelHub()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown HTTP server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("HTTP server stopped")
	return nil
}
