// Package api esmkit REST API
//
// @title           esmkit REST API
// @version         1.0.0
// @description     Read-only access to catalogued records and load order resolution.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// NewRouter wires all routes of s. /metrics serves gatherer.
func NewRouter(s *Server, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	instrument := func(method, endpoint string, h http.HandlerFunc) http.HandlerFunc {
		if s.metrics == nil {
			return h
		}
		return s.metrics.InstrumentHandler(method, endpoint, h)
	}

	r.Route("/api/v1", func(r chi.Router) {
		auth := requireAPIKey(s.config.APIKey)
		if s.metrics != nil {
			auth = s.metrics.InstrumentAuthMiddleware(auth)
		}
		r.Use(auth)

		r.Get("/health", instrument("GET", "/api/v1/health", s.handleHealth))

		r.Get("/records/{id}", instrument("GET", "/api/v1/records/{id}", s.handleFindRecords))
		r.Get("/records/{file}/{tag}/{id}", instrument("GET", "/api/v1/records/{file}/{tag}/{id}", s.handleGetRecord))
		r.Get("/runs", instrument("GET", "/api/v1/runs", s.handleListRuns))

		r.Post("/loadorder", instrument("POST", "/api/v1/loadorder", s.handleResolveLoadOrder))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully. Metrics are registered with reg and exposed from gatherer.
func StartServer(ctx context.Context, cat RecordCatalog, config ServerConfig,
	reg prometheus.Registerer, gatherer prometheus.Gatherer,
) error {
	logger := log.New(os.Stderr, "esmkit: ", log.LstdFlags)
	metrics := NewMetrics(reg)
	server := NewServer(cat, config, metrics, logger)

	handler := middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true})(NewRouter(server, gatherer))

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go server.updateCatalogStats(done, 30*time.Second)

	errc := make(chan error, 1)
	go func() {
		logger.Printf("serving REST API on %s", addr)
		logger.Printf("metrics available at http://%s/metrics", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
