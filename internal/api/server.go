// Package api exposes the validation engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/history"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Defaults for zero Options fields.
const (
	DefaultMaxBodyBytes = 5 << 20
	DefaultTimeout      = 10 * time.Second
	shutdownGrace       = 5 * time.Second
)

// Validator validates one document.
type Validator interface {
	Validate(ctx context.Context, in engine.Input) models.Result
}

// Options configures a Server.
type Options struct {
	Validator Validator
	// History is optional; GET /v1/history answers 404 without it.
	History      history.Lister
	Metrics      *metrics.Metrics
	Logger       logging.Logger
	MaxBodyBytes int64
	Timeout      time.Duration
	// Activity is used when a request does not name one.
	Activity string
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	validator Validator
	history   history.Lister
	metrics   *metrics.Metrics
	logger    logging.Logger
	maxBody   int64
	timeout   time.Duration
	activity  string
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options) *Server {
	s := &Server{
		validator: opts.Validator,
		history:   opts.History,
		metrics:   opts.Metrics,
		logger:    logging.OrDefault(opts.Logger).WithField(logging.FieldComponent, "api"),
		maxBody:   opts.MaxBodyBytes,
		timeout:   opts.Timeout,
		activity:  opts.Activity,
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/history", s.handleHistory)
	})

	s.router = r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.maxBody), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		jsonError(w, "request body must contain a CFDI XML document", http.StatusBadRequest)
		return
	}

	activity := r.URL.Query().Get("giro")
	if activity == "" {
		activity = s.activity
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res := s.validator.Validate(ctx, engine.Input{
		FileName: sanitizeFilename(r.URL.Query().Get("file")),
		Data:     data,
		Activity: activity,
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "history is not enabled", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list history")
		jsonError(w, "failed to list history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "request.xml"
	}
	return name
}
