package dev

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BouyguesTelecom/static.js-sub000/pkg/render"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

// ChangeKind classifies what a batch of file events means for the site.
type ChangeKind string

const (
	// ChangeStyle means only style units changed; browsers can swap
	// stylesheets without a navigation.
	ChangeStyle ChangeKind = "style"

	// ChangePage means page or layout sources changed.
	ChangePage ChangeKind = "page"

	// ChangeAsset means static assets changed.
	ChangeAsset ChangeKind = "asset"

	// ChangeFull means the route structure itself may have changed.
	ChangeFull ChangeKind = "full"
)

// Batch is the outcome of one debounce window.
type Batch struct {
	Kind  ChangeKind
	Paths []string
	Epoch int64
}

// Detector collapses bursts of watcher events into batches. All events
// share one debounce timer: each arrival resets it, and only after the
// window passes with no further events does the batch fire. Firing bumps
// the invalidation epoch exactly once regardless of batch size.
type Detector struct {
	epoch    *render.Epoch
	cacheDir string
	debounce time.Duration
	onBatch  func(Batch)
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending []Event
}

// NewDetector creates a detector. cacheDir may be empty to skip epoch
// artifact persistence. onBatch runs on the timer goroutine.
func NewDetector(epoch *render.Epoch, cacheDir string, debounce time.Duration, onBatch func(Batch)) *Detector {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Detector{
		epoch:    epoch,
		cacheDir: cacheDir,
		debounce: debounce,
		onBatch:  onBatch,
		logger:   slog.Default(),
	}
}

// SetLogger overrides the detector's logger.
func (d *Detector) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// Run consumes events until the channel closes or ctx ends.
func (d *Detector) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			d.stopTimer()
			return
		case ev, ok := <-events:
			if !ok {
				d.stopTimer()
				return
			}
			d.Observe(ev)
		}
	}
}

// Observe adds one event to the pending batch and resets the shared
// debounce timer. Resetting an already-pending timer is the point: ten
// rapid saves produce one batch, not ten.
func (d *Detector) Observe(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, ev)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *Detector) stopTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// flush closes the current batch: classify, bump the epoch once,
// persist it, and hand the batch to the callback.
func (d *Detector) flush() {
	d.mu.Lock()
	events := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}

	kind := classifyBatch(events)
	epoch := d.epoch.Bump()
	if d.cacheDir != "" {
		if err := routes.WriteEpochArtifact(d.cacheDir, epoch); err != nil {
			d.logger.Warn("epoch artifact not persisted", "error", err)
		}
	}

	paths := uniquePaths(events)
	d.logger.Info("change detected",
		"kind", string(kind),
		"files", len(paths),
		"epoch", epoch)

	if d.onBatch != nil {
		d.onBatch(Batch{Kind: kind, Paths: paths, Epoch: epoch})
	}
}

// classifyBatch maps a batch to its reload kind. The last event decides,
// except a directory removal anywhere forces a full reload because the
// route structure may have changed under us.
func classifyBatch(events []Event) ChangeKind {
	for _, ev := range events {
		if ev.IsDir && ev.Kind == EventRemoved {
			return ChangeFull
		}
	}
	return classifyPath(events[len(events)-1].Path)
}

// classifyPath maps a single file path to a change kind by extension.
// Unknown extensions count as page changes: over-invalidating is safe,
// missing a page change is not.
func classifyPath(path string) ChangeKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css", ".scss", ".sass", ".less":
		return ChangeStyle
	case ".html", ".htm", ".md":
		return ChangePage
	case ".js", ".mjs", ".json", ".txt",
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
		".woff", ".woff2", ".ttf":
		return ChangeAsset
	default:
		return ChangePage
	}
}

func uniquePaths(events []Event) []string {
	seen := make(map[string]bool, len(events))
	var paths []string
	for _, ev := range events {
		if !seen[ev.Path] {
			seen[ev.Path] = true
			paths = append(paths, ev.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
