package dev

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/revalidate"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/middleware"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/render"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Logger is the structured logger; slog.Default() when nil.
	Logger *slog.Logger

	// OnReload is called after browsers are notified of a change.
	OnReload func(clients int)
}

// devMetrics are the counters specific to the dev server. Registered
// once on the default registry no matter how many servers a test run
// creates; the gauge sources are rebound to the latest server.
type devMetrics struct {
	rendersTotal *prometheus.CounterVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	epochValue   prometheus.GaugeFunc
	subscribers  prometheus.GaugeFunc

	sourceMu     sync.Mutex
	clientCount  func() float64
	currentEpoch func() float64
}

var (
	devMetricsOnce sync.Once
	devMetricsInst *devMetrics
)

func (m *devMetrics) bindSources(clientCount, currentEpoch func() float64) {
	m.sourceMu.Lock()
	m.clientCount = clientCount
	m.currentEpoch = currentEpoch
	m.sourceMu.Unlock()
}

func (m *devMetrics) clients() float64 {
	m.sourceMu.Lock()
	defer m.sourceMu.Unlock()
	if m.clientCount == nil {
		return 0
	}
	return m.clientCount()
}

func (m *devMetrics) epoch() float64 {
	m.sourceMu.Lock()
	defer m.sourceMu.Unlock()
	if m.currentEpoch == nil {
		return 0
	}
	return m.currentEpoch()
}

func newDevMetrics(clientCount, currentEpoch func() float64) *devMetrics {
	devMetricsOnce.Do(func() {
		m := &devMetrics{}
		factory := promauto.With(prometheus.DefaultRegisterer)
		m.rendersTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staticgo",
			Subsystem: "dev",
			Name:      "renders_total",
			Help:      "Total page renders by outcome",
		}, []string{"outcome"})
		m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
			Namespace: "staticgo",
			Subsystem: "dev",
			Name:      "cache_hits_total",
			Help:      "Render cache hits",
		})
		m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
			Namespace: "staticgo",
			Subsystem: "dev",
			Name:      "cache_misses_total",
			Help:      "Render cache misses",
		})
		m.epochValue = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "staticgo",
			Subsystem: "dev",
			Name:      "invalidation_epoch",
			Help:      "Current invalidation epoch",
		}, m.epoch)
		m.subscribers = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "staticgo",
			Subsystem: "dev",
			Name:      "reload_subscribers",
			Help:      "Connected reload subscribers",
		}, m.clients)
		devMetricsInst = m
	})
	devMetricsInst.bindSources(clientCount, currentEpoch)
	return devMetricsInst
}

// Server is the development server.
type Server struct {
	config   *config.Config
	options  ServerOptions
	logger   *slog.Logger
	epoch    *render.Epoch
	cache    *render.Cache
	renderer render.Renderer
	hub      *Hub
	watcher  *Watcher
	detector *Detector
	metrics  *devMetrics

	httpServer *http.Server

	mu      sync.RWMutex
	table   *routes.Table
	running bool
}

// NewServer creates a development server. The persisted epoch is
// restored so browsers left open across a restart know whether they
// are stale.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start, err := routes.ReadEpochArtifact(cfg.CachePath())
	if err != nil {
		logger.Warn("epoch artifact unreadable, starting at zero", "error", err)
		start = 0
	}
	epoch := render.NewEpoch(start)
	cache := render.NewCache(epoch)

	s := &Server{
		config:   cfg,
		options:  options,
		logger:   logger,
		epoch:    epoch,
		cache:    cache,
		renderer: render.NewCachedRenderer(render.NewTemplateRenderer(), cache),
		hub:      NewHub(),
	}
	s.metrics = newDevMetrics(
		func() float64 { return float64(s.hub.ClientCount()) },
		func() float64 { return float64(s.epoch.Current()) },
	)
	return s, nil
}

// Start scans the route table, wires the watch pipeline, and serves
// until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.rescan(); err != nil {
		return err
	}

	watcher, err := NewWatcher(s.watchRoots(), s.config.Dev.Ignore)
	if err != nil {
		return err
	}
	watcher.SetLogger(s.logger)
	s.watcher = watcher

	s.detector = NewDetector(s.epoch, s.config.CachePath(), s.config.Debounce(), s.handleBatch)
	s.detector.SetLogger(s.logger)

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	go s.detector.Run(ctx, watcher.Events())

	s.httpServer = &http.Server{
		Addr:    s.config.DevAddress(),
		Handler: s.router(),
	}

	s.log("Serving %d route(s) at %s", s.tableLen(), s.config.DevURL())

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
		s.Stop()
		return err
	}
}

// Stop shuts the server down. The table lock is not held across
// Shutdown because in-flight page handlers read the table.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	watcher := s.watcher
	httpServer := s.httpServer
	s.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	s.hub.Close()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
}

// router assembles the dev mux.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Prometheus(middleware.WithSubsystem("dev")))
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(req *http.Request) bool {
		return req.URL.Path != "/__reload" && req.URL.Path != "/metrics"
	})))

	r.Get("/__reload", s.hub.HandleWebSocket)
	r.Get("/__epoch", s.handleEpoch)
	r.Handle("/metrics", promhttp.Handler())

	coordinator := revalidate.NewCoordinator(s.currentTable, s.epoch, revalidate.NoopRebuilder{}, s.config.CachePath())
	coordinator.SetLogger(s.logger)
	limiter := revalidate.NewRateLimiter(s.config.Revalidate.RatePerSecond)
	r.Method(http.MethodPost, "/revalidate", revalidate.NewHandler(coordinator, limiter, s.config.Revalidate.APIKey))

	r.Get("/*", s.handlePage)
	return r
}

// handleEpoch reports the current epoch as plain text so clients can
// self-check after a reconnect.
func (s *Server) handleEpoch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d", s.epoch.Current())
}

// handlePage serves a rendered route, falling back to public assets.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.servePublicFile(w, r) {
		return
	}

	match, ok := s.currentTable().Resolve(r.URL.Path)
	if !ok {
		s.metrics.rendersTotal.WithLabelValues("miss").Inc()
		http.NotFound(w, r)
		return
	}

	key := render.Page{Route: match.Entry, Params: match.Params}.CacheKey()
	if _, hit := s.cache.Get(key); hit {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()
	}

	html, err := s.renderer.Render(r.Context(), render.Page{Route: match.Entry, Params: match.Params})
	if err != nil {
		s.metrics.rendersTotal.WithLabelValues("error").Inc()
		s.logError("render %s: %v", match.Entry.Name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.rendersTotal.WithLabelValues("ok").Inc()

	if match.Entry.HasClientScript && s.config.HotReload() {
		html = injectScript(html, ClientScript)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// servePublicFile serves a file under the public dir when the request
// path names one. Directory requests never match.
func (s *Server) servePublicFile(w http.ResponseWriter, r *http.Request) bool {
	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" || strings.Contains(rel, "..") {
		return false
	}
	path := filepath.Join(s.config.PublicPath(), filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeFile(w, r, path)
	return true
}

// handleBatch reacts to one debounced change batch: structural changes
// rescan the table, then every subscriber hears about it exactly once.
func (s *Server) handleBatch(batch Batch) {
	if batch.Kind == ChangePage || batch.Kind == ChangeFull {
		if err := s.rescan(); err != nil {
			s.logError("rescan failed, keeping previous table: %v", err)
		}
	}

	msg := ReloadMessage{
		Type:       "reload",
		ReloadType: string(batch.Kind),
		Timestamp:  time.Now().UnixMilli(),
		Epoch:      batch.Epoch,
	}
	if batch.Kind == ChangeStyle && len(batch.Paths) > 0 {
		msg.File = batch.Paths[len(batch.Paths)-1]
	}
	s.hub.Broadcast(msg)

	clients := s.hub.ClientCount()
	s.log("%s change, epoch %d, notified %d browser(s)", batch.Kind, batch.Epoch, clients)
	if s.options.OnReload != nil {
		s.options.OnReload(clients)
	}
}

// rescan rebuilds the route table from disk and persists the artifacts.
// On failure the previous table stays in service.
func (s *Server) rescan() error {
	scanner := routes.NewScanner(s.config.PagesPath())
	scanner.SetLogger(s.logger)
	table, err := scanner.Scan()
	if err != nil {
		return err
	}

	if err := routes.WriteArtifacts(s.config.CachePath(), table); err != nil {
		s.logger.Warn("route artifacts not persisted", "error", err)
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
	return nil
}

func (s *Server) currentTable() *routes.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Server) tableLen() int {
	return s.currentTable().Len()
}

// watchRoots lists the directories the watcher covers: the page tree,
// public assets, and any extra dev.watch entries from the config.
func (s *Server) watchRoots() []string {
	roots := []string{s.config.PagesPath()}
	if info, err := os.Stat(s.config.PublicPath()); err == nil && info.IsDir() {
		roots = append(roots, s.config.PublicPath())
	}
	for _, extra := range s.config.Dev.Watch {
		path := extra
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.config.Dir(), path)
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			roots = append(roots, path)
		}
	}
	return roots
}

// injectScript inserts script before </body>, falling back to </html>
// or plain append for fragments.
func injectScript(html, script string) string {
	if idx := strings.LastIndex(html, "</body>"); idx != -1 {
		return html[:idx] + script + html[idx:]
	}
	if idx := strings.LastIndex(html, "</html>"); idx != -1 {
		return html[:idx] + script + html[idx:]
	}
	return html + script
}

// log writes a timestamped line the way the dev CLI formats output.
func (s *Server) log(format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
}

// logError writes a timestamped line to stderr in red.
func (s *Server) logError(format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "[%s] \033[31m%s\033[0m\n", timestamp, fmt.Sprintf(format, args...))
}
