// Package discovery expands manifest glob patterns into manifest file paths.
package discovery

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/pagefactory/internal/util/sets"
)

// Manifests returns the sorted, de-duplicated files matched by patterns.
// Relative patterns are resolved against base; "**" matches any depth.
func Manifests(base string, patterns []string) ([]string, error) {
	seen := sets.New[string]()
	for _, pat := range patterns {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pat)) {
			return nil, fmt.Errorf("invalid manifest pattern %q", pat)
		}
		if !filepath.IsAbs(pat) {
			pat = filepath.Join(base, pat)
		}
		matches, err := doublestar.FilepathGlob(filepath.Clean(pat), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		for _, m := range matches {
			seen.Add(filepath.Clean(m))
		}
	}

	return sets.Sorted(seen), nil
}

// Match reports whether the slash-separated relative path rel matches any
// of patterns, themselves relative to the same base.
func Match(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(filepath.ToSlash(strings.TrimSpace(pat)), rel); err == nil && ok {
			return true
		}
	}
	return false
}
