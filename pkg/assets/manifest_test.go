package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.min.js")
	m.Set("styles.css", "styles.def456.css")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "app.js", "app.abc123.min.js"},
		{"found entry css", "styles.css", "styles.def456.css"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.source)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestManifestHas(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.min.js")

	if !m.Has("app.js") {
		t.Error("Has(app.js) = false, want true")
	}
	if m.Has("unknown.js") {
		t.Error("Has(unknown.js) = true, want false")
	}
}

func TestManifestLen(t *testing.T) {
	m := NewManifest()
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}

	m.Set("a.js", "a.123.js")
	m.Set("b.js", "b.456.js")

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManifestAll(t *testing.T) {
	m := NewManifest()
	m.Set("a.js", "a.123.js")
	m.Set("b.js", "b.456.js")

	all := m.All()
	if len(all) != 2 {
		t.Errorf("All() has %d entries, want 2", len(all))
	}
	if all["a.js"] != "a.123.js" {
		t.Errorf("All()[a.js] = %q, want a.123.js", all["a.js"])
	}

	// Verify it's a copy (modifying shouldn't affect original)
	all["c.js"] = "c.789.js"
	if m.Has("c.js") {
		t.Error("All() should return a copy, but modification affected original")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")

	content := `{"app.js": "app.abc123.min.js", "styles.css": "styles.def456.css"}`
	if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(manifestPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := m.Resolve("app.js"); got != "app.abc123.min.js" {
		t.Errorf("Resolve(app.js) = %q, want app.abc123.min.js", got)
	}
	if got := m.Resolve("styles.css"); got != "styles.def456.css" {
		t.Errorf("Resolve(styles.css) = %q, want styles.def456.css", got)
	}
}

func TestManifestSaveRoundTrip(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.js")
	m.Set("logo.png", "logo.def456.png")

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("loaded Len() = %d, want 2", loaded.Len())
	}
	if got := loaded.Resolve("logo.png"); got != "logo.def456.png" {
		t.Errorf("Resolve(logo.png) = %q, want logo.def456.png", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/manifest.json")
	if err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")

	if err := os.WriteFile(manifestPath, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(manifestPath)
	if err == nil {
		t.Error("Load() should return error for invalid JSON")
	}
}

func TestResolverWithPrefix(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.min.js")
	m.Set("styles.css", "styles.def456.css")

	r := NewResolver(m, "/public/")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "app.js", "/public/app.abc123.min.js"},
		{"found entry css", "styles.css", "/public/styles.def456.css"},
		{"missing entry gets prefix", "unknown.js", "/public/unknown.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Asset(tt.source)
			if got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestResolverWithoutPrefix(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.min.js")

	r := NewResolver(m, "")

	if got := r.Asset("app.js"); got != "app.abc123.min.js" {
		t.Errorf("Asset(app.js) = %q, want app.abc123.min.js", got)
	}
}

func TestPassthroughResolver(t *testing.T) {
	r := NewPassthroughResolver("/assets/")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"js file", "app.js", "/assets/app.js"},
		{"css file", "styles.css", "/assets/styles.css"},
		{"nested path", "images/logo.png", "/assets/images/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Asset(tt.source)
			if got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestPassthroughResolverWithoutPrefix(t *testing.T) {
	r := NewPassthroughResolver("")

	if got := r.Asset("app.js"); got != "app.js" {
		t.Errorf("Asset(app.js) = %q, want app.js", got)
	}
}

func TestResolverNormalizesSeparators(t *testing.T) {
	m := NewManifest()
	m.Set("app.js", "app.abc123.js")

	tests := []struct {
		name     string
		resolver Resolver
		source   string
		expected string
	}{
		{"prefix missing trailing slash", NewResolver(m, "/public"), "app.js", "/public/app.abc123.js"},
		{"rooted name not doubled", NewResolver(m, "/"), "/app.js", "/app.abc123.js"},
		{"rooted name still hits manifest", NewResolver(m, "/public/"), "/app.js", "/public/app.abc123.js"},
		{"passthrough rooted name", NewPassthroughResolver("/"), "/app.js", "/app.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resolver.Asset(tt.source); got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}
