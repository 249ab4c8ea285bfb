package routes

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files under dir; keys are slash-separated relative
// paths, values are file contents. Parent directories are created.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanDiscoversRoutes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":             "<h1>home</h1>",
		"about/index.html":       "<h1>about</h1>",
		"blog/index.html":        "<h1>blog</h1>",
		"blog/[slug]/index.html": "<h1>post</h1>",
		"blog/notes.txt":         "not a route",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if table.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 (%v)", table.Len(), table.Names())
	}

	tests := []struct {
		name   string
		params []string
	}{
		{"index", nil},
		{"about", nil},
		{"blog", nil},
		{"blog/[slug]", []string{"slug"}},
	}
	for _, tt := range tests {
		e, ok := table.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%q) missing", tt.name)
			continue
		}
		if len(e.ParamNames) != len(tt.params) {
			t.Errorf("%s: ParamNames = %v, want %v", tt.name, e.ParamNames, tt.params)
			continue
		}
		for i, p := range tt.params {
			if e.ParamNames[i] != p {
				t.Errorf("%s: ParamNames[%d] = %q, want %q", tt.name, i, e.ParamNames[i], p)
			}
		}
	}
}

func TestScanParamOrderMatchesName(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"shop/[category]/[item]/index.html": "x",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	e, ok := table.Lookup("shop/[category]/[item]")
	if !ok {
		t.Fatal("route missing")
	}
	want := []string{"category", "item"}
	for i, p := range want {
		if e.ParamNames[i] != p {
			t.Errorf("ParamNames[%d] = %q, want %q", i, e.ParamNames[i], p)
		}
	}
}

func TestScanLayoutCascade(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"layout.html":               "global",
		"index.html":                "home",
		"docs/layout.html":          "docs layout",
		"docs/index.html":           "docs",
		"docs/install/index.html":   "install",
		"blog/[slug]/index.html":    "post",
		"blog/[slug]/layout.html":   "post layout",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	tests := []struct {
		name   string
		layout string // root-relative
	}{
		{"index", "layout.html"},
		{"docs", "docs/layout.html"},
		{"docs/install", "docs/layout.html"},
		{"blog/[slug]", "blog/[slug]/layout.html"},
	}
	for _, tt := range tests {
		e, ok := table.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%q) missing", tt.name)
			continue
		}
		want := filepath.Join(dir, filepath.FromSlash(tt.layout))
		if e.Layout != want {
			t.Errorf("%s: Layout = %q, want %q", tt.name, e.Layout, want)
		}
	}
}

func TestScanStyleCascadeOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"style.css":              "global",
		"layout.html":            "l",
		"docs/layout.html":       "dl",
		"docs/style.css":         "layout-level",
		"docs/api/index.html":    "api",
		"docs/api/style.css":     "page-level",
		"index.html":             "home",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	e, _ := table.Lookup("docs/api")
	want := []string{
		filepath.Join(dir, "style.css"),
		filepath.Join(dir, "docs", "style.css"),
		filepath.Join(dir, "docs", "api", "style.css"),
	}
	if len(e.Styles) != len(want) {
		t.Fatalf("Styles = %v, want %v", e.Styles, want)
	}
	for i := range want {
		if e.Styles[i] != want[i] {
			t.Errorf("Styles[%d] = %q, want %q", i, e.Styles[i], want[i])
		}
	}

	// The root route's global and page-local style are the same file and
	// must not be listed twice.
	root, _ := table.Lookup("index")
	if len(root.Styles) != 1 {
		t.Errorf("root Styles = %v, want one entry", root.Styles)
	}
}

func TestScanNoScriptsDirective(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":         "<!-- no scripts -->\n<h1>home</h1>",
		"contact/index.html": "<h1>contact</h1>",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if e, _ := table.Lookup("index"); e.HasClientScript {
		t.Error("index: HasClientScript = true, want false")
	}
	if e, _ := table.Lookup("contact"); !e.HasClientScript {
		t.Error("contact: HasClientScript = false, want true")
	}
}

func TestScanSkipsMalformedSegments(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":            "home",
		"[bad/index.html":       "unterminated bracket",
		"x[y]/index.html":       "text around brackets",
		"[a]/[a]/index.html":    "duplicate placeholder",
		"ok/[slug]/index.html":  "fine",
	})

	table, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, name := range []string{"[bad", "x[y]", "[a]/[a]"} {
		if _, ok := table.Lookup(name); ok {
			t.Errorf("Lookup(%q) should be skipped", name)
		}
	}
	if _, ok := table.Lookup("ok/[slug]"); !ok {
		t.Error("ok/[slug] should survive")
	}
}

func TestScanOverlappingDynamicRoutesFail(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":            "home",
		"shop/[a]/index.html":   "a",
		"shop/[b]/index.html":   "b",
	})

	_, err := NewScanner(dir).Scan()
	if err == nil {
		t.Fatal("Scan should fail on overlapping dynamic routes")
	}
	if _, ok := err.(*MultiValidationError); !ok {
		t.Errorf("error type = %T, want *MultiValidationError", err)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := NewScanner(filepath.Join(t.TempDir(), "nope")).Scan(); err == nil {
		t.Fatal("Scan should fail when the page root does not exist")
	}
}
