// Package gateway exposes the daemon's admin surface over HTTP: health,
// Prometheus metrics, governance status, and a live audit stream. It binds
// loopback by default and is read-only; nothing here mutates the governor.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/safety"
	"github.com/wardenhq/warden/internal/tool"
)

// Deps are the read-side collaborators the gateway reports on. Any of them
// may be nil; the corresponding endpoints degrade instead of failing.
type Deps struct {
	Safety   *safety.Engine
	Ledger   *energy.Ledger
	Audit    *audit.Logger
	Registry *tool.Registry
	Metrics  *Metrics
}

// Server is the admin HTTP server.
type Server struct {
	cfg       Config
	deps      Deps
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.cfg.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.cfg.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, no auth required.
	r.Get("/health", s.handleHealth())
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	// Admin endpoints. Not mounted when no auth is configured: an open
	// status surface would leak command arguments through audit entries.
	if s.cfg.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.cfg.Auth))
			r.Get("/status", s.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/energy", s.handleEnergy())
				r.Get("/audit", s.handleAudit())
			})
			r.Get("/ws/audit", s.handleAuditStream)
		})
	}

	return r
}
