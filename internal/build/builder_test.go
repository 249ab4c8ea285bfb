package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
)

func newTestProject(t *testing.T, files map[string]string, mutate func(*config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputPath(), filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestBuildRendersLiteralRoutes(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html":       "<h1>Home</h1>",
		"pages/about/index.html": "<h1>About</h1>",
	}, nil)

	result, err := New(cfg, Options{Clean: true}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Rendered != 2 {
		t.Errorf("Rendered = %d, want 2", result.Rendered)
	}

	if body := readOutput(t, cfg, "index.html"); !strings.Contains(body, "<h1>Home</h1>") {
		t.Errorf("root output wrong: %q", body)
	}
	if body := readOutput(t, cfg, "about/index.html"); !strings.Contains(body, "<h1>About</h1>") {
		t.Errorf("about output wrong: %q", body)
	}
}

func TestBuildPrerendersDynamicRoutes(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html":             "home",
		"pages/blog/[slug]/index.html": "<h1>{{ .Params.slug }}</h1>",
	}, func(c *config.Config) {
		c.Build.Prerender = map[string][]string{
			"blog/[slug]": {"blog/first", "blog/second"},
		}
	})

	result, err := New(cfg, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Rendered != 3 {
		t.Errorf("Rendered = %d, want 3", result.Rendered)
	}

	if body := readOutput(t, cfg, "blog/first/index.html"); !strings.Contains(body, "<h1>first</h1>") {
		t.Errorf("prerendered output wrong: %q", body)
	}
}

func TestBuildSkipsDynamicWithoutPrerender(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html":             "home",
		"pages/blog/[slug]/index.html": "post",
	}, nil)

	result, err := New(cfg, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputPath(), "blog")); !os.IsNotExist(err) {
		t.Error("dynamic route materialized without prerender paths")
	}
}

func TestBuildContinuesPastFailingRoute(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html":        "home",
		"pages/broken/index.html": "{{ .Bad",
	}, nil)

	result, err := New(cfg, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Rendered != 1 || result.Failed != 1 {
		t.Errorf("Rendered/Failed = %d/%d, want 1/1", result.Rendered, result.Failed)
	}
}

func TestBuildFailsWhenEveryRouteFails(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html": "{{ .Bad",
	}, nil)

	if _, err := New(cfg, Options{}).Build(context.Background()); err == nil {
		t.Fatal("Build succeeded with zero rendered routes")
	}
}

func TestBuildFingerprintsAssets(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html": "home",
		"public/app.js":    "console.log('v1')",
	}, nil)

	result, err := New(cfg, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Assets != 1 {
		t.Errorf("Assets = %d, want 1", result.Assets)
	}

	var manifest map[string]string
	data := readOutput(t, cfg, "manifest.json")
	if err := json.Unmarshal([]byte(data), &manifest); err != nil {
		t.Fatal(err)
	}

	hashed, ok := manifest["app.js"]
	if !ok {
		t.Fatalf("manifest missing app.js: %v", manifest)
	}
	if hashed == "app.js" || !strings.HasSuffix(hashed, ".js") {
		t.Errorf("manifest entry not fingerprinted: %q", hashed)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputPath(), hashed)); err != nil {
		t.Errorf("fingerprinted file missing: %v", err)
	}
}

func TestBuildResolvesAssetReferences(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html": `<script src="{{ asset "app.js" }}"></script>`,
		"public/app.js":    "console.log('v1')",
	}, nil)

	b := New(cfg, Options{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal([]byte(readOutput(t, cfg, "manifest.json")), &manifest); err != nil {
		t.Fatal(err)
	}
	hashed := manifest["app.js"]

	body := readOutput(t, cfg, "index.html")
	if !strings.Contains(body, `src="/`+hashed+`"`) {
		t.Errorf("page does not reference fingerprinted asset %q:\n%s", hashed, body)
	}

	// A rebuild copies no assets, so it must resolve against the
	// manifest written by the last full build.
	if err := New(cfg, Options{}).RebuildRoutes(context.Background(), []string{"index"}); err != nil {
		t.Fatalf("RebuildRoutes: %v", err)
	}
	if body := readOutput(t, cfg, "index.html"); !strings.Contains(body, `src="/`+hashed+`"`) {
		t.Errorf("rebuild lost fingerprinted asset reference:\n%s", body)
	}
}

func TestRebuildRoutesRegeneratesNamedRoute(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"pages/index.html":       "v1",
		"pages/about/index.html": "about",
	}, nil)

	b := New(cfg, Options{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	src := filepath.Join(cfg.PagesPath(), "index.html")
	if err := os.WriteFile(src, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := b.RebuildRoutes(context.Background(), []string{"index"}); err != nil {
		t.Fatalf("RebuildRoutes: %v", err)
	}
	if body := readOutput(t, cfg, "index.html"); !strings.Contains(body, "v2") {
		t.Errorf("route not regenerated: %q", body)
	}
}
