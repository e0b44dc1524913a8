package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nholik/goact-stack/internal/health"
	"github.com/nholik/goact-stack/internal/healthcheck"
	"github.com/nholik/goact-stack/internal/metrics"
	"github.com/nholik/goact-stack/internal/ui"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Monitor is the view of the health monitor the HTTP surface needs.
type Monitor interface {
	Snapshot() health.ViewState
	Trigger(ctx context.Context) <-chan health.ViewState
}

// Server serves the status card, the health API, readiness and metrics.
type Server struct {
	logger  zerolog.Logger
	monitor Monitor
	tracker *healthcheck.Tracker
	metrics *metrics.Metrics
	docsURL string
	baseCtx context.Context
	router  *mux.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithTracker sets the readiness tracker behind /readyz.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(s *Server) {
		s.tracker = tracker
	}
}

// WithMetrics exposes the collector on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDocsURL overrides the docs link on the card.
func WithDocsURL(url string) Option {
	return func(s *Server) {
		s.docsURL = url
	}
}

// WithBaseContext sets the context refreshes started over HTTP run under.
// Refreshes outlive the request that triggered them.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}

// New constructs a Server and its routes.
func New(logger zerolog.Logger, monitor Monitor, opts ...Option) *Server {
	s := &Server{
		logger:  logger,
		monitor: monitor,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().StrictSlash(false)
	r.Use(recoverMiddleware(s.logger), requestIDMiddleware, loggingMiddleware(s.logger))

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/health", healthcheck.StatusHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/readyz", healthcheck.ReadyHandler(s.tracker)).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Run binds addr and serves until ctx is canceled, then shuts down
// gracefully. It returns an error only when the listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		s.logger.Error().Err(err).Str("addr", addr).Msg("http server failed")
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen binds addr. Callers that must accept connections before doing
// anything else bind first and hand the listener to Serve.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is canceled. It takes
// ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server starting")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error().Err(err).Str("addr", addr).Msg("http server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Str("addr", addr).Msg("http server shutdown failed")
	}
	s.logger.Info().Str("addr", addr).Msg("http server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	card := ui.NewCard(s.monitor.Snapshot(), s.docsURL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := ui.RenderHTML(w, card); err != nil {
		s.logger.Error().Err(err).Msg("render status card failed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatusResponse(s.monitor.Snapshot()))
}

// handleRefresh starts a refresh. By default it answers 202 with the Loading
// state; wait=true blocks until the outcome and redirect=true sends the
// browser back to the card.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	done := s.monitor.Trigger(s.baseCtx)

	query := r.URL.Query()
	switch {
	case query.Get("redirect") == "true":
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case query.Get("wait") == "true":
		select {
		case state := <-done:
			writeJSON(w, http.StatusOK, newStatusResponse(state))
		case <-r.Context().Done():
		}
	default:
		writeJSON(w, http.StatusAccepted, newStatusResponse(health.Loading()))
	}
}

type statusResponse struct {
	State     health.Kind `json:"state"`
	Status    string      `json:"status,omitempty"`
	Error     string      `json:"error,omitempty"`
	Display   string      `json:"display"`
	CheckedAt *time.Time  `json:"checked_at,omitempty"`
}

func newStatusResponse(state health.ViewState) statusResponse {
	resp := statusResponse{
		State:   state.Kind,
		Error:   state.Message,
		Display: ui.Status(state).Text,
	}
	if state.IsReady() {
		resp.Status = state.Status.Status
	}
	if !state.CheckedAt.IsZero() {
		checkedAt := state.CheckedAt
		resp.CheckedAt = &checkedAt
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
