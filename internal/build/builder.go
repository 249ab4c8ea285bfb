package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/assets"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/render"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

// Result summarizes a build.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Rendered is the number of pages written.
	Rendered int

	// Failed is the number of routes whose render failed.
	Failed int

	// Skipped is the number of dynamic routes with no prerender paths.
	Skipped int

	// Assets is the number of public assets copied.
	Assets int

	// Output is the output directory.
	Output string
}

// Options configures the builder.
type Options struct {
	// Clean removes the output directory before building.
	Clean bool

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder renders the route table into static files.
type Builder struct {
	config   *config.Config
	options  Options
	renderer *render.TemplateRenderer
	logger   *slog.Logger
}

// New creates a builder using the template renderer.
func New(cfg *config.Config, options Options) *Builder {
	return &Builder{
		config:   cfg,
		options:  options,
		renderer: render.NewTemplateRenderer(),
		logger:   slog.Default(),
	}
}

// SetLogger overrides the builder's logger.
func (b *Builder) SetLogger(l *slog.Logger) {
	if l != nil {
		b.logger = l
	}
}

// Build performs a full static build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	b.progress("Scanning routes...")
	table, err := b.scan()
	if err != nil {
		return nil, err
	}

	outputDir := b.config.OutputPath()
	if b.options.Clean {
		b.progress("Cleaning output directory...")
		if err := os.RemoveAll(outputDir); err != nil {
			return nil, errors.New("E400").WithPath(outputDir).Wrap(err)
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.New("E400").WithPath(outputDir).Wrap(err)
	}

	result := &Result{Output: outputDir}

	// Assets are copied first so pages render against the final
	// fingerprinted names.
	b.progress("Copying assets...")
	manifest, copied, err := b.copyAssets()
	if err != nil {
		return nil, err
	}
	result.Assets = copied
	b.renderer.SetAssetResolver(assets.NewResolver(manifest, "/"))

	if err := b.writeManifest(outputDir, manifest); err != nil {
		return nil, err
	}

	b.progress("Rendering pages...")
	if err := b.renderRoutes(ctx, table, table.Names(), result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// RebuildAll regenerates every page into the existing output directory.
// It satisfies the revalidation coordinator's rebuilder contract.
func (b *Builder) RebuildAll(ctx context.Context) error {
	table, err := b.scan()
	if err != nil {
		return err
	}
	b.loadManifestResolver()
	result := &Result{}
	return b.renderRoutes(ctx, table, table.Names(), result)
}

// RebuildRoutes regenerates the named routes only.
func (b *Builder) RebuildRoutes(ctx context.Context, names []string) error {
	table, err := b.scan()
	if err != nil {
		return err
	}
	b.loadManifestResolver()
	result := &Result{}
	return b.renderRoutes(ctx, table, names, result)
}

// loadManifestResolver points the renderer at the manifest from the
// last full build, if one exists. Rebuilds do not re-copy assets, so
// pages must keep resolving against the names already on disk.
func (b *Builder) loadManifestResolver() {
	manifest, err := assets.Load(filepath.Join(b.config.OutputPath(), "manifest.json"))
	if err != nil {
		return
	}
	b.renderer.SetAssetResolver(assets.NewResolver(manifest, "/"))
}

func (b *Builder) scan() (*routes.Table, error) {
	scanner := routes.NewScanner(b.config.PagesPath())
	scanner.SetLogger(b.logger)
	table, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	if err := routes.WriteArtifacts(b.config.CachePath(), table); err != nil {
		b.logger.Warn("route artifacts not persisted", "error", err)
	}
	return table, nil
}

// renderRoutes writes each named route to the output directory. Dynamic
// routes expand through the prerender map. Failures are logged per
// route; only a build with zero successes fails outright.
func (b *Builder) renderRoutes(ctx context.Context, table *routes.Table, names []string, result *Result) error {
	for _, name := range names {
		entry, ok := table.Lookup(name)
		if !ok {
			b.logger.Warn("unknown route, skipping", "route", name)
			result.Skipped++
			continue
		}

		if entry.IsDynamic() {
			paths := b.config.Build.Prerender[name]
			if len(paths) == 0 {
				b.logger.Warn("dynamic route has no prerender paths, skipping", "route", name)
				result.Skipped++
				continue
			}
			for _, p := range paths {
				b.renderOne(ctx, table, entry, p, result)
			}
			continue
		}

		b.renderOne(ctx, table, entry, name, result)
	}

	if result.Rendered == 0 && result.Failed > 0 {
		return errors.New("E400").WithDetail(fmt.Sprintf("all %d route(s) failed to render", result.Failed))
	}
	return nil
}

// renderOne materializes a single concrete path. For dynamic entries the
// path is resolved back through the table to recover the params.
func (b *Builder) renderOne(ctx context.Context, table *routes.Table, entry *routes.Entry, path string, result *Result) {
	page := render.Page{Route: entry}
	if entry.IsDynamic() {
		match, ok := table.Resolve(path)
		if !ok || match.Entry != entry {
			b.logger.Warn("prerender path does not resolve to its route",
				"route", entry.Name, "path", path)
			result.Failed++
			return
		}
		page.Params = match.Params
	}

	html, err := b.renderer.Render(ctx, page)
	if err != nil {
		b.logger.Error("render failed", "route", entry.Name, "path", path, "error", err)
		result.Failed++
		return
	}

	outPath := b.outputFile(path)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		b.logger.Error("write failed", "path", outPath, "error", err)
		result.Failed++
		return
	}
	if err := os.WriteFile(outPath, []byte(html), 0644); err != nil {
		b.logger.Error("write failed", "path", outPath, "error", err)
		result.Failed++
		return
	}
	result.Rendered++
}

// outputFile maps a concrete route path to its file in the output dir:
// the root route becomes index.html, everything else <path>/index.html.
func (b *Builder) outputFile(path string) string {
	path = strings.Trim(path, "/")
	if path == "" || path == routes.RootName {
		return filepath.Join(b.config.OutputPath(), "index.html")
	}
	return filepath.Join(b.config.OutputPath(), filepath.FromSlash(path), "index.html")
}

// copyAssets copies the public directory into the output, fingerprinting
// file names when enabled, and returns the manifest.
func (b *Builder) copyAssets() (*assets.Manifest, int, error) {
	manifest := assets.NewManifest()

	srcDir := b.config.PublicPath()
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return manifest, 0, nil
	}

	copied := 0
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		destName := relPath
		if b.config.Build.Fingerprint {
			hash, err := hashFile(path)
			if err != nil {
				return errors.New("E401").WithPath(path).Wrap(err)
			}
			ext := filepath.Ext(relPath)
			destName = fmt.Sprintf("%s.%s%s", strings.TrimSuffix(relPath, ext), hash[:8], ext)
		}

		destPath := filepath.Join(b.config.OutputPath(), filepath.FromSlash(destName))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return errors.New("E401").WithPath(destPath).Wrap(err)
		}
		if err := copyFile(path, destPath); err != nil {
			return errors.New("E401").WithPath(path).Wrap(err)
		}

		manifest.Set(relPath, destName)
		copied++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return manifest, copied, nil
}

// writeManifest persists the asset manifest at the output root.
func (b *Builder) writeManifest(outputDir string, manifest *assets.Manifest) error {
	path := filepath.Join(outputDir, "manifest.json")
	if err := manifest.Save(path); err != nil {
		return errors.New("E401").WithPath(path).Wrap(err)
	}
	return nil
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// hashFile returns the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies a file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
