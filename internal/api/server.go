package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"manbo/internal/adapters/config"
	"manbo/internal/metrics"
	"manbo/pkg/logger"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds the server with all routes registered.
func NewServer(cfg config.ServerConfig, handlers *Handlers) *Server {
	mux := http.NewServeMux()

	handlers.Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", healthHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      requestLogging(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: logger.Get().With("component", "http_server"),
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogging(next http.Handler) http.Handler {
	log := logger.Get().With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
