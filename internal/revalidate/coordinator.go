package revalidate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/render"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

const (
	// maxSegments bounds how deep a requested path may nest.
	maxSegments = 16

	// maxPathLen bounds the raw length of a requested path.
	maxPathLen = 512
)

// segmentRe is the allow-list for one path segment. Everything outside
// it, including dot sequences and shell metacharacters, is rejected
// before the path reaches the route table.
var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// TableProvider returns the current route table. The dev server swaps
// tables on rescans, so the coordinator reads through an indirection
// rather than holding a table itself.
type TableProvider func() *routes.Table

// Rebuilder regenerates rendered output for routes. The dev server
// re-renders lazily and only needs the epoch bump, so its rebuilder is
// a no-op; the production server rebuilds eagerly.
type Rebuilder interface {
	RebuildRoutes(ctx context.Context, names []string) error
	RebuildAll(ctx context.Context) error
}

// NoopRebuilder satisfies Rebuilder without doing work.
type NoopRebuilder struct{}

func (NoopRebuilder) RebuildRoutes(context.Context, []string) error { return nil }
func (NoopRebuilder) RebuildAll(context.Context) error              { return nil }

// Result reports what a batch invalidated.
type Result struct {
	// Routes holds the deduplicated route names the batch rebuilt,
	// sorted. Empty when the batch covered every route or when every
	// requested path was rejected.
	Routes []string

	// Rejected holds one report per requested path that failed the
	// allow-list or namespace check. Rejected paths never reach the
	// rebuilder.
	Rejected []string

	// Epoch is the invalidation epoch after the batch's single bump,
	// zero when nothing was rebuilt.
	Epoch int64

	all bool
}

// All reports whether the batch invalidated every route.
func (r Result) All() bool {
	return r.all
}

// Coordinator serializes revalidation batches over a shared epoch.
type Coordinator struct {
	tables    TableProvider
	epoch     *render.Epoch
	rebuilder Rebuilder
	cacheDir  string
	logger    *slog.Logger

	busy atomic.Bool
}

// NewCoordinator creates a coordinator. cacheDir may be empty to skip
// persisting the epoch artifact.
func NewCoordinator(tables TableProvider, epoch *render.Epoch, rebuilder Rebuilder, cacheDir string) *Coordinator {
	if rebuilder == nil {
		rebuilder = NoopRebuilder{}
	}
	return &Coordinator{
		tables:    tables,
		epoch:     epoch,
		rebuilder: rebuilder,
		cacheDir:  cacheDir,
		logger:    slog.Default(),
	}
}

// SetLogger overrides the coordinator's logger.
func (c *Coordinator) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Revalidate runs one batch. An empty paths slice invalidates every
// route. Paths failing the allow-list or namespace check are collected
// in the result, never rebuilt; the remaining paths are deduplicated by
// route and rebuilt with exactly one epoch bump for the whole batch.
// Only one batch may run at a time; a concurrent call fails with E300.
func (c *Coordinator) Revalidate(ctx context.Context, paths []string) (Result, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, errors.New("E300")
	}
	defer c.busy.Store(false)

	names, rejected := c.resolveBatch(paths)
	if len(rejected) > 0 {
		c.logger.Warn("rejected revalidation paths",
			"security", "path-validation",
			"count", len(rejected),
			"paths", rejected)
	}

	result := Result{Routes: names, Rejected: rejected, all: len(paths) == 0}

	if !result.all && len(names) == 0 {
		// Every requested path was rejected. Nothing runs, nothing bumps.
		return result, nil
	}

	var err error
	if result.all {
		err = c.rebuilder.RebuildAll(ctx)
	} else {
		err = c.rebuilder.RebuildRoutes(ctx, names)
	}
	if err != nil {
		return Result{}, errors.FromError(err, "E301")
	}

	result.Epoch = c.epoch.Bump()
	if c.cacheDir != "" {
		if werr := routes.WriteEpochArtifact(c.cacheDir, result.Epoch); werr != nil {
			c.logger.Warn("epoch artifact not persisted", "error", werr)
		}
	}

	c.logger.Info("revalidated",
		"routes", len(names),
		"all", result.all,
		"rejected", len(rejected),
		"epoch", result.Epoch)

	return result, nil
}

// Busy reports whether a batch is currently running.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// resolveBatch validates every requested path and maps it to its route,
// deduplicating by route name. Distinct URLs for the same dynamic route
// collapse to one entry because invalidation works at route granularity.
func (c *Coordinator) resolveBatch(paths []string) (names, rejected []string) {
	if len(paths) == 0 {
		return nil, nil
	}

	table := c.tables()
	seen := make(map[string]bool)

	for _, raw := range paths {
		name, reason := resolveOne(table, raw)
		if reason != "" {
			rejected = append(rejected, fmt.Sprintf("%q: %s", raw, reason))
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, rejected
}

// resolveOne validates a single raw path and resolves it to a route
// name. A non-empty reason means the path was rejected.
func resolveOne(table *routes.Table, raw string) (name, reason string) {
	if len(raw) > maxPathLen {
		return "", "path too long"
	}

	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		// Bare "/" is the root route.
		if match, ok := table.Resolve("/"); ok {
			return match.Entry.Name, ""
		}
		return "", "no root route"
	}

	segments := strings.Split(trimmed, "/")
	if len(segments) > maxSegments {
		return "", "too many segments"
	}
	for _, seg := range segments {
		if !segmentRe.MatchString(seg) {
			return "", "invalid segment " + fmt.Sprintf("%q", seg)
		}
	}

	match, ok := table.Resolve(trimmed)
	if !ok {
		return "", "no matching route"
	}
	return match.Entry.Name, ""
}
