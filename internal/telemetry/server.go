package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServer exposes the OTLP/HTTP export endpoints. Claude Code ships its
// telemetry here when OTEL_EXPORTER_OTLP_PROTOCOL is http/protobuf.
type HTTPServer struct {
	receiver *Receiver
	port     int
	logger   *slog.Logger
}

// NewHTTPServer creates the OTLP/HTTP transport on the given port.
func NewHTTPServer(receiver *Receiver, port int, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{receiver: receiver, port: port, logger: logger}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/metrics", s.handle(s.receiver.HandleMetrics))
	mux.HandleFunc("POST /v1/traces", s.handle(s.receiver.HandleTraces))
	mux.HandleFunc("POST /v1/logs", s.handle(s.receiver.HandleLogs))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("OTLP/HTTP receiver listening", "port", s.port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("otlp http server: %w", err)
	}
	return nil
}

// handle adapts one receiver decode func into an export endpoint. Decode
// failures are the only error path; everything downstream is best-effort.
func (s *HTTPServer) handle(decode func(io.Reader, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := decode(r.Body, r.Header.Get("Content-Type")); err != nil {
			s.logger.Warn("rejected export request", "path", r.URL.Path, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
