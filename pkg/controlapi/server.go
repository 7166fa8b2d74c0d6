// Package controlapi serves a small HTTP API for a running monitor: current
// status, the latest snapshot, command issuing, shutdown and metrics.
package controlapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/engine"
)

// StateSource reports the engine's connection state.
type StateSource interface {
	State() engine.State
	Endpoint() engine.Endpoint
}

// Issuer issues named commands. *command.Gateway implements it.
type Issuer interface {
	Issue(name string) (bool, error)
}

// Config configures a Server.
type Config struct {
	// Address is the listen address, e.g. "127.0.0.1:8787".
	Address string

	Engine  StateSource
	Gateway Issuer
	View    *View

	// Gatherer serves /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// Shutdown is called by POST /shutdown.
	Shutdown func()

	Logger *slog.Logger

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration
}

// Server is the control API.
type Server struct {
	config     Config
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// Status is the body of GET /status.
type Status struct {
	State     string `json:"state"`
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	HasImage  bool   `json:"hasImage"`
	Failed    bool   `json:"failed"`
	Endpoint  string `json:"endpoint"`
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "controlapi"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/status", s.handleStatus)
	r.Get("/image", s.handleImage)
	r.Post("/commands/{name}", s.handleCommand)
	r.Post("/shutdown", s.handleShutdown)

	if s.config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. It is separate from Serve so callers
// can learn the bound address before serving.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.config.Address)
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st Status
	if s.config.Engine != nil {
		state := s.config.Engine.State()
		st.State = state.String()
		st.Connected = state == engine.StateConnected
		st.Endpoint = s.config.Engine.Endpoint().String()
	}
	if s.config.View != nil {
		st.Status = s.config.View.Status()
		_, st.HasImage = s.config.View.Image()
		st.Failed = s.config.View.Failed()
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.config.View == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	img, ok := s.config.View.Image()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.config.Gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, lwerrors.New("E202"))
		return
	}

	sent, err := s.config.Gateway.Issue(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, lwerrors.FromError(err, "E201"))
		return
	}
	if !sent {
		writeJSON(w, http.StatusConflict, lwerrors.New("E202"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"sent": true, "command": name})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("shutdown requested")
	w.WriteHeader(http.StatusAccepted)
	if s.config.Shutdown != nil {
		go s.config.Shutdown()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
