package routes

import "strings"

// Match is the result of resolving a request path: the matched entry plus
// the values captured by its placeholder segments. Matches are transient,
// produced per request, never persisted.
type Match struct {
	Entry  *Entry
	Params map[string]string
}

// Resolve maps a request path to a route.
//
// Precedence: an exact match on the route name wins; the empty or root path
// matches "index"; otherwise dynamic entries are tried in specificity order,
// each literal segment matching verbatim and each placeholder capturing one
// non-empty segment. A failed resolution returns ok=false so callers can
// fall through to other strategies (static assets, 404) without an error.
func (t *Table) Resolve(requestPath string) (*Match, bool) {
	name := strings.Trim(requestPath, "/")
	if name == "" {
		name = RootName
	}

	if e, ok := t.entries[name]; ok {
		return &Match{Entry: e, Params: map[string]string{}}, true
	}

	segments := strings.Split(name, "/")
	for _, e := range t.dynamic {
		if params, ok := matchDynamic(e, segments); ok {
			return &Match{Entry: e, Params: params}, true
		}
	}

	return nil, false
}

// matchDynamic structurally matches request segments against a dynamic
// entry. Segment counts must be equal; placeholders refuse empty segments.
func matchDynamic(e *Entry, segments []string) (map[string]string, bool) {
	routeSegs := e.Segments()
	if len(routeSegs) != len(segments) {
		return nil, false
	}

	params := make(map[string]string, len(e.ParamNames))
	for i, rs := range routeSegs {
		if name := placeholderName(rs); name != "" {
			if segments[i] == "" {
				return nil, false
			}
			params[name] = segments[i]
			continue
		}
		if rs != segments[i] {
			return nil, false
		}
	}
	return params, true
}
