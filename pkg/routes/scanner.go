package routes

import (
	"bufio"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

// Scanner discovers routes under a page-source root.
type Scanner struct {
	root   string
	logger *slog.Logger
}

// NewScanner creates a scanner for the given page root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root, logger: slog.Default()}
}

// SetLogger overrides the logger used for scan warnings.
func (s *Scanner) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Scan walks the page tree and builds the route table. It is pure with
// respect to the file-system snapshot at call time.
//
// Directories with malformed bracket segments are warned about and
// skipped; structural conflicts (two dynamic routes that could claim the
// same request) fail the scan with a validation error listing every
// conflict.
func (s *Scanner) Scan() (*Table, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.New("E100").WithPath(root)
	}

	var entries []*Entry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		// Hidden directories and dependency trees are never routes.
		base := filepath.Base(path)
		if path != root && (strings.HasPrefix(base, ".") || base == "node_modules") {
			return filepath.SkipDir
		}

		indexPath := filepath.Join(path, IndexFile)
		if _, err := os.Stat(indexPath); err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		name, params, reason := routeName(rel)
		if reason != "" {
			s.logger.Warn("skipping route", "dir", path, "reason", reason)
			return nil
		}

		entries = append(entries, &Entry{
			Name:            name,
			SourceFile:      indexPath,
			ParamNames:      params,
			Layout:          findLayout(path, root),
			Styles:          styleCascade(root, path),
			HasClientScript: hasClientScript(indexPath),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	return NewTable(entries), nil
}

// routeName converts a root-relative directory path into a route name and
// its ordered placeholder names. A non-empty reason means the directory
// cannot be a route.
func routeName(rel string) (name string, params []string, reason string) {
	if rel == "." {
		return RootName, nil, ""
	}

	rel = filepath.ToSlash(rel)
	seen := make(map[string]bool)
	for _, seg := range strings.Split(rel, "/") {
		if !strings.ContainsAny(seg, "[]") {
			continue
		}
		p := placeholderName(seg)
		if p == "" {
			return "", nil, "malformed dynamic segment " + seg
		}
		if seen[p] {
			return "", nil, "duplicate placeholder name " + p
		}
		seen[p] = true
		params = append(params, p)
	}
	return rel, params, ""
}

// findLayout walks upward from dir to root and returns the nearest
// layout.html, or "" when none exists.
func findLayout(dir, root string) string {
	for {
		layout := filepath.Join(dir, LayoutFile)
		if _, err := os.Stat(layout); err == nil {
			return layout
		}
		if dir == root {
			return ""
		}
		dir = filepath.Dir(dir)
	}
}

// styleCascade collects applicable style units in cascade order:
// global (page root), nearest layout directory, page directory.
func styleCascade(root, dir string) []string {
	var candidates []string

	if global := filepath.Join(root, StyleFile); fileExists(global) {
		candidates = append(candidates, global)
	}
	if layout := findLayout(dir, root); layout != "" {
		if s := filepath.Join(filepath.Dir(layout), StyleFile); fileExists(s) {
			candidates = append(candidates, s)
		}
	}
	if local := filepath.Join(dir, StyleFile); fileExists(local) {
		candidates = append(candidates, local)
	}

	var styles []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			styles = append(styles, c)
		}
	}
	return styles
}

// hasClientScript reads the entry unit's first line and reports false when
// it carries the "no scripts" directive.
func hasClientScript(indexPath string) bool {
	f, err := os.Open(indexPath)
	if err != nil {
		return true
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return true
	}

	line := strings.TrimSpace(sc.Text())
	line = strings.TrimPrefix(line, "<!--")
	line = strings.TrimSuffix(line, "-->")
	return !strings.EqualFold(strings.TrimSpace(line), "no scripts")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
