package routes

import (
	"fmt"
	"strings"
)

// ValidationError reports one structural conflict found at table build time.
type ValidationError struct {
	// Routes are the conflicting route names.
	Routes []string

	// Message is the human-readable description.
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Routes, " vs "))
}

// MultiValidationError wraps every conflict found in one scan so a single
// failed build reports all problems, not just the first.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route conflicts:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// validateEntries rejects route sets where resolution could be ambiguous.
// Two dynamic routes overlap when a single concrete path could structurally
// match both; a silent first-wins pick is never acceptable.
func validateEntries(entries []*Entry) error {
	var dynamic []*Entry
	for _, e := range entries {
		if e.IsDynamic() {
			dynamic = append(dynamic, e)
		}
	}

	var errs []ValidationError
	for i := 0; i < len(dynamic); i++ {
		for j := i + 1; j < len(dynamic); j++ {
			if overlap(dynamic[i], dynamic[j]) {
				errs = append(errs, ValidationError{
					Routes:  []string{dynamic[i].Name, dynamic[j].Name},
					Message: "overlapping dynamic routes",
				})
			}
		}
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// overlap reports whether some concrete path could match both routes:
// equal segment counts, and at every position either the literals agree or
// at least one side is a placeholder.
func overlap(a, b *Entry) bool {
	as, bs := a.Segments(), b.Segments()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		aDyn, bDyn := isPlaceholder(as[i]), isPlaceholder(bs[i])
		if aDyn || bDyn {
			continue
		}
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
