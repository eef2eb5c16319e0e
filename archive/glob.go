package archive

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob returns every file in the archive whose reconstructed path
// (spec.md §5's drive-alias-colon-then-slash-joined-names) matches
// pattern, using doublestar's bash-style glob syntax (so "**" crosses
// folder boundaries the way a single "*" does not). This is the
// Go-idiomatic expression of spec.md §2's "exposes the tree as an
// in-memory walkable structure" — the original Python reader has no
// equivalent convenience.
func (a *Archive[M, FM]) Glob(pattern string) ([]*File[FM], error) {
	var matches []*File[FM]
	for e := range a.Walk() {
		for _, f := range e.Files {
			ok, err := doublestar.Match(pattern, f.Path())
			if err != nil {
				return nil, fmt.Errorf("sga: glob %q: %w", pattern, err)
			}
			if ok {
				matches = append(matches, f)
			}
		}
	}
	return matches, nil
}
