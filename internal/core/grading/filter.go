package grading

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/grader/internal/core/snapshot"
)

// Filter drops tree entries whose path matches any hide pattern.
type Filter struct {
	patterns []string
}

// NewFilter validates the patterns and returns a filter. An empty pattern
// list keeps every entry.
func NewFilter(patterns []string) (*Filter, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid hide pattern %q", p)
		}
	}
	return &Filter{patterns: patterns}, nil
}

// Match reports whether path is hidden.
func (f *Filter) Match(path string) bool {
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Apply returns the entries that are not hidden. The input is not modified.
func (f *Filter) Apply(entries []snapshot.Entry) []snapshot.Entry {
	if len(f.patterns) == 0 {
		return entries
	}

	out := make([]snapshot.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e.Path) {
			continue
		}
		out = append(out, e)
	}
	return out
}
