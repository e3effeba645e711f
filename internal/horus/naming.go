package horus

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// NamePatterns decides which directory names count as episodes, sequences,
// shots and departments. Patterns are doublestar globs matched against the
// bare name, case-sensitively.
type NamePatterns struct {
	Episodes    []string
	Sequences   []string
	Shots       []string
	Departments []string
}

// DefaultNamePatterns returns the production naming convention.
func DefaultNamePatterns() NamePatterns {
	return NamePatterns{
		Episodes:    []string{"Ep*", "RD*"},
		Sequences:   []string{"sq*"},
		Shots:       []string{"SH*"},
		Departments: []string{"anim", "comp", "fx", "hero", "layout", "lighting"},
	}
}

// Validate checks that every pattern is well formed.
func (p NamePatterns) Validate() error {
	groups := map[string][]string{
		"episode":    p.Episodes,
		"sequence":   p.Sequences,
		"shot":       p.Shots,
		"department": p.Departments,
	}
	for level, patterns := range groups {
		if len(patterns) == 0 {
			return fmt.Errorf("%w: no %s patterns", ErrInvalidArgument, level)
		}
		for _, pat := range patterns {
			if !doublestar.ValidatePattern(pat) {
				return fmt.Errorf("%w: bad %s pattern %q", ErrInvalidArgument, level, pat)
			}
		}
	}
	return nil
}

// filterDirs keeps directory entries whose names match any pattern, sorted.
func filterDirs(entries []DirEntry, patterns []string) []string {
	var names []string
	for _, e := range entries {
		if e.IsDir && matchAny(patterns, e.Name) {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	if names == nil {
		return []string{}
	}
	return names
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
