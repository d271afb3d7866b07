// Package http hosts the tasklens REST API: routing, middleware and the
// net/http server lifecycle.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	mw "github.com/rezkam/tasklens/internal/infrastructure/http/middleware"
)

// Server defaults, used for zero-valued ServerConfig fields.
const (
	DefaultHost              = "" // all interfaces
	DefaultPort              = "8080"
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultMaxBodyBytes      = 1 << 20
)

// ServerConfig configures the listener, its timeouts and the request limits.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty disables cross-origin requests.
	CORSAllowedOrigins []string
}

func (cfg *ServerConfig) applyDefaults() {
	cfg.Port = orDefault(cfg.Port, DefaultPort)
	cfg.ReadTimeout = orDefault(cfg.ReadTimeout, DefaultReadTimeout)
	cfg.WriteTimeout = orDefault(cfg.WriteTimeout, DefaultWriteTimeout)
	cfg.IdleTimeout = orDefault(cfg.IdleTimeout, DefaultIdleTimeout)
	cfg.ReadHeaderTimeout = orDefault(cfg.ReadHeaderTimeout, DefaultReadHeaderTimeout)
	cfg.MaxHeaderBytes = orDefault(cfg.MaxHeaderBytes, DefaultMaxHeaderBytes)
	cfg.MaxBodyBytes = orDefault(cfg.MaxBodyBytes, DefaultMaxBodyBytes)
}

// orDefault replaces zero and negative values with def.
func orDefault[T ~string | ~int | ~int64](v, def T) T {
	var zero T
	if v <= zero {
		return def
	}
	return v
}

// APIServer serves /health and the API handler mounted at /api.
type APIServer struct {
	server *http.Server
}

// NewAPIServer builds the server around apiHandler, whose routes are
// relative to /api. Every request is traced by otelhttp.
func NewAPIServer(apiHandler http.Handler, cfg ServerConfig) *APIServer {
	cfg.applyDefaults()

	return &APIServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           otelhttp.NewHandler(newRouter(apiHandler, cfg), "tasklens-api"),
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}
}

func newRouter(apiHandler http.Handler, cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		mw.CORS(cfg.CORSAllowedOrigins),
		mw.MaxBodyBytes(cfg.MaxBodyBytes),
	)

	r.Get("/health", health)
	r.Mount("/api", apiHandler)
	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write health response", "error", err)
	}
}

// Start listens until Shutdown, then returns http.ErrServerClosed.
func (s *APIServer) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *APIServer) Shutdown(ctx context.Context) error {
	slog.Info("HTTP server draining")
	return s.server.Shutdown(ctx)
}

// Handler exposes the full middleware chain for in-process tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}
