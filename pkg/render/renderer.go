package render

import (
	"context"
	"html/template"
	"os"
	"strings"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/assets"
	"github.com/BouyguesTelecom/static.js-sub000/pkg/routes"
)

// Page is one renderable unit: a route entry plus the parameter values
// captured from the request path. Literal routes carry an empty Params.
type Page struct {
	Route  *routes.Entry
	Params map[string]string
}

// CacheKey returns the cache key for this page. Parameters are appended
// in declaration order so the same URL always maps to the same key.
func (p Page) CacheKey() string {
	if len(p.Params) == 0 {
		return p.Route.Name
	}
	var b strings.Builder
	b.WriteString(p.Route.Name)
	for _, name := range p.Route.ParamNames {
		b.WriteByte('?')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(p.Params[name])
	}
	return b.String()
}

// Renderer produces the full HTML document for a page.
type Renderer interface {
	Render(ctx context.Context, page Page) (string, error)
}

// pageData is the dot value visible to page and layout templates.
type pageData struct {
	Content template.HTML
	Styles  template.HTML
	Params  map[string]string
}

// TemplateRenderer renders pages with html/template. The page source is
// executed first, then wrapped in its nearest layout; the style cascade
// is inlined as a single block in cascade order. Templates can reference
// static assets through the "asset" function, which resolves through the
// configured resolver (the build's fingerprint manifest in production,
// a passthrough in development).
type TemplateRenderer struct {
	assets assets.Resolver
}

// NewTemplateRenderer creates a renderer with passthrough asset paths.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{assets: assets.NewPassthroughResolver("/")}
}

// SetAssetResolver swaps the resolver behind the "asset" template
// function.
func (r *TemplateRenderer) SetAssetResolver(res assets.Resolver) {
	if res != nil {
		r.assets = res
	}
}

// Render builds the document for page. It fails when any source unit
// cannot be read or parsed; partial output is never returned.
func (r *TemplateRenderer) Render(ctx context.Context, page Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := r.executeFile(page.Route.SourceFile, pageData{Params: page.Params})
	if err != nil {
		return "", errors.New("E200").WithRoute(page.Route.Name).WithPath(page.Route.SourceFile).Wrap(err)
	}

	styles, err := styleBlock(page.Route.Styles)
	if err != nil {
		return "", errors.New("E200").WithRoute(page.Route.Name).Wrap(err)
	}

	data := pageData{
		Content: template.HTML(content),
		Styles:  template.HTML(styles),
		Params:  page.Params,
	}

	if page.Route.Layout == "" {
		return defaultShell(data), nil
	}

	doc, err := r.executeFile(page.Route.Layout, data)
	if err != nil {
		return "", errors.New("E201").WithRoute(page.Route.Name).WithPath(page.Route.Layout).Wrap(err)
	}
	return doc, nil
}

// executeFile parses path as a template and executes it with data.
func (r *TemplateRenderer) executeFile(path string, data pageData) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(path).
		Funcs(template.FuncMap{"asset": r.assets.Asset}).
		Parse(string(raw))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// styleBlock concatenates the cascade into one inline <style> element.
// An empty cascade produces no block at all.
func styleBlock(styles []string) (string, error) {
	if len(styles) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("<style>\n")
	for _, path := range styles {
		css, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		b.Write(css)
		if !strings.HasSuffix(string(css), "\n") {
			b.WriteByte('\n')
		}
	}
	b.WriteString("</style>")
	return b.String(), nil
}

// defaultShell wraps layout-less pages in a minimal valid document.
func defaultShell(data pageData) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if data.Styles != "" {
		b.WriteString(string(data.Styles))
		b.WriteByte('\n')
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(string(data.Content))
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
