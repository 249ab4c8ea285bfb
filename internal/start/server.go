// Package start serves a finished build: static files from the output
// directory plus the authenticated revalidation endpoint, which
// re-renders routes into the output in place.
package start

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BouyguesTelecom/static.js-sub000/internal/build"
	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/revalidate"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/middleware"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/render"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

// Server is the production file server.
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	builder *build.Builder
	epoch   *render.Epoch

	httpServer *http.Server

	mu    sync.RWMutex
	table *routes.Table
}

// NewServer creates the production server. The route table artifacts
// must exist, so the initial scan failing is a hard error.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := routes.NewScanner(cfg.PagesPath())
	scanner.SetLogger(logger)
	table, err := scanner.Scan()
	if err != nil {
		return nil, err
	}

	epochStart, err := routes.ReadEpochArtifact(cfg.CachePath())
	if err != nil {
		logger.Warn("epoch artifact unreadable, starting at zero", "error", err)
		epochStart = 0
	}

	return &Server{
		config:  cfg,
		logger:  logger,
		builder: build.New(cfg, build.Options{}),
		epoch:   render.NewEpoch(epochStart),
		table:   table,
	}, nil
}

// Start serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.config.DevAddress(),
		Handler: s.router(),
	}

	s.logger.Info("serving build output",
		"addr", s.config.DevAddress(),
		"output", s.config.OutputPath(),
		"routes", s.table.Len())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus(middleware.WithSubsystem("start")))
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(req *http.Request) bool {
		return req.URL.Path != "/metrics"
	})))

	r.Handle("/metrics", promhttp.Handler())

	// Without a key the endpoint would accept anonymous rebuilds, so
	// it only mounts when one is configured.
	if s.config.Revalidate.APIKey != "" {
		coordinator := revalidate.NewCoordinator(s.currentTable, s.epoch, s.builder, s.config.CachePath())
		coordinator.SetLogger(s.logger)
		limiter := revalidate.NewRateLimiter(s.config.Revalidate.RatePerSecond)
		r.Method(http.MethodPost, "/revalidate",
			revalidate.NewHandler(coordinator, limiter, s.config.Revalidate.APIKey))
	} else {
		s.logger.Warn("revalidate.apiKey not set, POST /revalidate disabled")
	}

	r.Handle("/*", http.FileServer(http.Dir(s.config.OutputPath())))
	return r
}

// currentTable returns the route table, refreshed from disk when the
// page tree still scans cleanly. Revalidation batches resolve against
// it, so a new page becomes addressable without a restart.
func (s *Server) currentTable() *routes.Table {
	scanner := routes.NewScanner(s.config.PagesPath())
	scanner.SetLogger(s.logger)
	if table, err := scanner.Scan(); err == nil {
		s.mu.Lock()
		s.table = table
		s.mu.Unlock()
	} else {
		s.logger.Warn("rescan failed, using previous table", "error", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}
