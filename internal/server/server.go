// Package server serves the analysis page, the export action and a small
// JSON API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/analysis"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/internal/export"
	"github.com/sells-group/water-quality/internal/mapview"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// Server holds the handlers' dependencies. Nothing is shared between
// requests except the remote client.
type Server struct {
	cfg       *config.Config
	runner    *analysis.Runner
	presenter *mapview.Presenter
	exporter  *export.Exporter
	exportDir string
	health    func() map[string]string
}

// Option configures a Server.
type Option func(*Server)

// WithExportDir writes shapefiles into dir instead of the working directory.
func WithExportDir(dir string) Option {
	return func(s *Server) {
		s.exportDir = dir
	}
}

// WithHealth adds fields to the /health response, such as breaker state.
func WithHealth(fn func() map[string]string) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// New wires the pipeline stages to client.
func New(cfg *config.Config, client earthengine.Client, opts ...Option) *Server {
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.runner = analysis.NewRunner(client, cfg.Imagery)
	s.presenter = mapview.NewPresenter(client, cfg.Imagery, cfg.Map)
	s.exporter = export.NewExporter(client, cfg.Imagery, s.exportDir)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover())
	r.Use(RequestID())
	r.Use(Logging())
	r.Use(Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", s.handlePage)
	r.Post("/export", s.handleExport)
	r.Get("/api/analysis", s.handleAnalysisAPI)
	r.Get("/legend.png", s.handleLegend)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server: shutdown")
		}
		return nil
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	}
}
