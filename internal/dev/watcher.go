package dev

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind says what happened to a path.
type EventKind int

const (
	EventAdded EventKind = iota
	EventChanged
	EventRemoved
)

// String returns the event kind's name.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one observed file-system change.
type Event struct {
	Path  string
	Kind  EventKind
	IsDir bool
	Time  time.Time
}

// DefaultIgnore contains path segments and globs never worth watching.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	".staticgo",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher turns fsnotify events into Events on a channel. Directories
// are watched recursively; directories created while watching are added
// on the fly. Watcher errors are logged and never stop the loop.
type Watcher struct {
	roots  []string
	ignore []string
	notify *fsnotify.Watcher
	events chan Event
	logger *slog.Logger
	dirs   map[string]bool
}

// NewWatcher creates a watcher over the given root directories.
func NewWatcher(roots []string, ignore []string) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:  roots,
		ignore: append(append([]string{}, DefaultIgnore...), ignore...),
		notify: notify,
		events: make(chan Event, 256),
		logger: slog.Default(),
		dirs:   make(map[string]bool),
	}, nil
}

// SetLogger overrides the watcher's logger.
func (w *Watcher) SetLogger(l *slog.Logger) {
	if l != nil {
		w.logger = l
	}
}

// Events returns the channel change events arrive on.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start registers the roots and runs the event loop until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}

	go w.loop(ctx)
	return nil
}

// Close releases the underlying notifier.
func (w *Watcher) Close() error {
	return w.notify.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notify.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", "error", err)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.shouldIgnore(ev.Name) {
		return
	}

	var kind EventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = EventAdded
	case ev.Op&fsnotify.Write != 0:
		kind = EventChanged
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = EventRemoved
	default:
		return
	}

	isDir := w.dirs[ev.Name]
	if kind != EventRemoved {
		if info, err := os.Stat(ev.Name); err == nil {
			isDir = info.IsDir()
		}
	}

	// New directories must join the watch set or changes below them
	// go unseen.
	if kind == EventAdded && isDir {
		if err := w.addRecursive(ev.Name); err != nil {
			w.logger.Warn("watch add failed", "dir", ev.Name, "error", err)
		}
	}
	if kind == EventRemoved {
		delete(w.dirs, ev.Name)
	}

	select {
	case w.events <- Event{Path: ev.Name, Kind: kind, IsDir: isDir, Time: time.Now()}:
	default:
		w.logger.Warn("event buffer full, dropping", "path", ev.Name)
	}
}

// addRecursive watches dir and every subdirectory under it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnore(path) && path != dir {
			return filepath.SkipDir
		}
		if err := w.notify.Add(path); err != nil {
			w.logger.Warn("watch add failed", "dir", path, "error", err)
			return nil
		}
		w.dirs[path] = true
		return nil
	})
}

// shouldIgnore checks a path against the ignore patterns. Bare names
// match any path segment; glob patterns match the base name.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}
		if pathHasSegment(normalized, pattern) {
			return true
		}
	}
	return false
}

func pathHasSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
