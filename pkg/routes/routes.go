package routes

import (
	"regexp"
	"sort"
	"strings"
)

// RootName is the route name of the page tree root.
const RootName = "index"

// IndexFile is the entry unit a directory must contain to be a route.
const IndexFile = "index.html"

// LayoutFile is the layout unit looked up by the ancestor walk.
const LayoutFile = "layout.html"

// StyleFile is the style unit participating in the cascade.
const StyleFile = "style.css"

// placeholderRe matches a well-formed dynamic segment directory name.
var placeholderRe = regexp.MustCompile(`^\[([A-Za-z0-9_-]+)\]$`)

// Entry describes one discovered route. Entries are owned by the Table and
// immutable once built.
type Entry struct {
	// Name is the canonical route name: the "/"-joined directory path
	// relative to the page root, or "index" for the root itself.
	Name string

	// SourceFile is the absolute path of the route's index.html.
	SourceFile string

	// ParamNames lists placeholder names in left-to-right order. The
	// scanner guarantees they mirror the placeholder segments of Name.
	ParamNames []string

	// Layout is the absolute path of the nearest ancestor layout.html,
	// or "" when no layout applies.
	Layout string

	// Styles is the applicable style cascade, global → layout → page.
	Styles []string

	// HasClientScript is false when the entry unit opts out of client
	// scripts with a first-line "no scripts" directive.
	HasClientScript bool
}

// IsDynamic reports whether the route has at least one placeholder segment.
func (e *Entry) IsDynamic() bool {
	return len(e.ParamNames) > 0
}

// Segments returns the route name split into segments.
func (e *Entry) Segments() []string {
	return strings.Split(e.Name, "/")
}

// Table is the immutable route table built from a page-source tree.
type Table struct {
	entries map[string]*Entry
	dynamic []*Entry
}

// NewTable builds a table from entries. Dynamic entries are sorted by
// specificity so resolution order does not depend on scan order.
func NewTable(entries []*Entry) *Table {
	t := &Table{entries: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		t.entries[e.Name] = e
		if e.IsDynamic() {
			t.dynamic = append(t.dynamic, e)
		}
	}
	sort.SliceStable(t.dynamic, func(i, j int) bool {
		return moreSpecific(t.dynamic[i], t.dynamic[j])
	})
	return t
}

// Lookup returns the entry with the exact route name.
func (t *Table) Lookup(name string) (*Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Names returns all route names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dynamic returns the dynamic entries in resolution order.
func (t *Table) Dynamic() []*Entry {
	return t.dynamic
}

// moreSpecific reports whether a is resolved before b: fewer placeholders
// first, then the longer literal prefix, then lexical name for stability.
func moreSpecific(a, b *Entry) bool {
	if len(a.ParamNames) != len(b.ParamNames) {
		return len(a.ParamNames) < len(b.ParamNames)
	}
	ap, bp := literalPrefixLen(a.Name), literalPrefixLen(b.Name)
	if ap != bp {
		return ap > bp
	}
	return a.Name < b.Name
}

// literalPrefixLen counts leading literal segments of a route name.
func literalPrefixLen(name string) int {
	n := 0
	for _, seg := range strings.Split(name, "/") {
		if isPlaceholder(seg) {
			break
		}
		n++
	}
	return n
}

// isPlaceholder reports whether a segment is a [name] placeholder.
func isPlaceholder(seg string) bool {
	return placeholderRe.MatchString(seg)
}

// placeholderName returns the captured name of a placeholder segment.
func placeholderName(seg string) string {
	m := placeholderRe.FindStringSubmatch(seg)
	if m == nil {
		return ""
	}
	return m[1]
}
