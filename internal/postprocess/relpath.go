package postprocess

import (
	"path/filepath"
	"strings"
)

// RelativePath rewrites root-relative references so the page works when
// opened from any directory depth below the public root. It covers URL
// attributes and CSS url(...) in style attributes and <style> elements.
// Text, scripts and other attribute values are never touched.
type RelativePath struct {
	publicRoot string
}

// NewRelativePath creates the rewriter for pages under publicRoot.
func NewRelativePath(publicRoot string) *RelativePath {
	return &RelativePath{publicRoot: filepath.Clean(publicRoot)}
}

// Name implements Stage.
func (r *RelativePath) Name() string { return "relative_path" }

// Apply implements Stage. Pages outside the public root are left unchanged.
func (r *RelativePath) Apply(buf []byte, dest string) ([]byte, error) {
	prefix, ok := RootPrefix(r.publicRoot, dest)
	if !ok {
		return buf, nil
	}
	return rewriteRefs(buf, func(ref string) (string, bool) {
		if !isRootRelative(ref) {
			return "", false
		}
		return prefix + strings.TrimPrefix(ref, "/"), true
	}), nil
}

// RootPrefix returns the relative prefix leading from the directory of dest
// back to publicRoot: "./" at the root, "../../" two levels down. ok is false
// when dest is not below publicRoot.
func RootPrefix(publicRoot, dest string) (prefix string, ok bool) {
	rel, err := filepath.Rel(filepath.Clean(publicRoot), filepath.Dir(filepath.Clean(dest)))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	if rel == "." {
		return "./", true
	}
	return strings.Repeat("../", strings.Count(rel, "/")+1), true
}

func isRootRelative(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}
