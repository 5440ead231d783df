package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
)

// Server exposes the aggregation engine and provider manager over JSON HTTP.
type Server struct {
	engine       *engine.Engine
	manager      *providers.Manager
	logger       *slog.Logger
	lookbackDays int
}

func NewServer(eng *engine.Engine, manager *providers.Manager, lookbackDays int, logger *slog.Logger) *Server {
	return &Server{
		engine:       eng,
		manager:      manager,
		logger:       logger,
		lookbackDays: lookbackDays,
	}
}

// Router builds the chi router with the full endpoint set.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleSessions)
		r.Get("/{id}", s.handleSession)
		r.Get("/{id}/interactions", s.handleSessionInteractions)
		r.Get("/{id}/summary", s.handleSessionSummary)
		r.Post("/{id}/end", s.handleEndSession)
	})

	r.Get("/stats", s.handleStats)

	r.Get("/providers", s.handleProviders)
	r.Get("/usage", s.handleUsage)
	r.Get("/usage/{provider}", s.handleProviderUsage)
	r.Post("/collect", s.handleCollect)
	r.Post("/collect/{provider}", s.handleProviderCollect)

	return r
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("query api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
