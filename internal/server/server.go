// Package server exposes the sanitization pipeline over HTTP. The API is a
// single POST endpoint plus health and readiness probes; anything heavier
// (auth, rate limits) belongs in the proxy in front.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/diagramtools/mermaidfix/internal/config"
	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
)

// maxBodyBytes bounds request bodies. LLM diagram output is a few KB;
// anything near this limit is garbage in.
const maxBodyBytes = 1 << 20

// Server serves the sanitization API.
type Server struct {
	runner     *pipeline.Runner
	cache      cache.Cache
	logger     *log.Logger
	addr       string
	corsOrigin string
	router     chi.Router
}

// New builds a server around the given runner. The cache is only used for
// the readiness probe; the runner holds its own reference.
func New(cfg *config.Config, runner *pipeline.Runner, c cache.Cache, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:     runner,
		cache:      c,
		logger:     logger,
		addr:       cfg.Server.Addr,
		corsOrigin: cfg.Server.CORSOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sanitize", s.handleSanitize)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler, used directly by tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
