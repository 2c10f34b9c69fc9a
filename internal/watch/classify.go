package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/pagefactory/internal/discovery"
)

// Kind is the classification of a changed file.
type Kind int

const (
	// KindIgnored changes never trigger a pass.
	KindIgnored Kind = iota
	// KindManifest triggers a full pass over the changed manifests only.
	KindManifest
	// KindTemplate, KindPartial and KindAsset trigger a full pass.
	KindTemplate
	KindPartial
	KindAsset
	// KindSource adds the file to the ChangedSet of the next pass.
	KindSource
)

var kindNames = map[Kind]string{
	KindIgnored:  "ignored",
	KindManifest: "manifest",
	KindTemplate: "template",
	KindPartial:  "partial",
	KindAsset:    "asset",
	KindSource:   "source",
}

func (k Kind) String() string { return kindNames[k] }

// Full reports whether changes of this kind require a full pass of some
// manifests.
func (k Kind) Full() bool {
	return k == KindManifest || k == KindTemplate || k == KindPartial || k == KindAsset
}

// Classifier maps absolute paths onto change kinds. All directories must
// be absolute.
type Classifier struct {
	Root            string
	Src             string
	Dest            string
	PublicRoot      string
	Partials        string
	TemplateExt     string
	OutputExt       string
	Manifests       []string
	CacheBusterExts []string
}

// Classify returns the kind of a change to path plus, for KindSource, its
// identifier relative to Src or, for KindManifest, the cleaned path.
func (c Classifier) Classify(path string) (Kind, string) {
	path = filepath.Clean(path)
	if shouldIgnore(path) {
		return KindIgnored, ""
	}
	if _, ok := within(c.Dest, path); ok && strings.EqualFold(filepath.Ext(path), c.OutputExt) {
		return KindIgnored, ""
	}
	if discovery.Match(c.Manifests, filepath.ToSlash(path)) {
		return KindManifest, path
	}
	if _, ok := within(c.Partials, path); ok {
		return KindPartial, ""
	}
	if _, ok := within(c.Root, path); ok && filepath.Ext(path) == c.TemplateExt {
		return KindTemplate, ""
	}
	if rel, ok := within(c.Src, path); ok {
		return KindSource, filepath.ToSlash(rel)
	}
	if _, ok := within(c.PublicRoot, path); ok && c.isAsset(path) {
		return KindAsset, ""
	}
	return KindIgnored, ""
}

func (c Classifier) isAsset(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range c.CacheBusterExts {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Dirs returns the directories to watch: the template, source, partial and
// public roots plus the static prefix of each manifest pattern.
func (c Classifier) Dirs() []string {
	dirs := []string{c.Root, c.Src, c.Partials}
	if len(c.CacheBusterExts) > 0 {
		dirs = append(dirs, c.PublicRoot)
	}
	for _, pat := range c.Manifests {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pat))
		dirs = append(dirs, filepath.FromSlash(base))
	}

	seen := map[string]bool{}
	var out []string
	for _, d := range dirs {
		if d == "" || d == "." {
			continue
		}
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// within returns path relative to base when path is inside base.
func within(base, path string) (string, bool) {
	if base == "" {
		return "", false
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// shouldIgnore reports editor swap files, hidden files and OS metadata.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
