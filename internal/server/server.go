// Package server exposes the fulfillment operations as a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/srujan00123/shiprocket-fulfillment/internal/telemetry"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the fulfillment service.
type Server struct {
	port     int
	registry *shipper.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger) *Server {
	return &Server{
		port:     cfg.Port,
		registry: registry,
		logger:   logger,
		metrics:  telemetry.NewMetrics(),
	}
}

// Router builds the HTTP route tree. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/rates", s.handleGetRate)
		r.Post("/shipments", s.handleCreateShipment)
		r.Delete("/shipments/{orderID}", s.handleCancelShipment)
		r.Get("/tracking/{awb}", s.handleGetTracking)
		r.Post("/returns", s.handleCreateReturn)
		r.Get("/documents", s.handleGetDocuments)
		r.Post("/token/refresh", s.handleRefreshToken)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
