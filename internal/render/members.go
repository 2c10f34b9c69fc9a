package render

// PageInfo describes the page being rendered.
type PageInfo struct {
	Manifest string
	Template string
	Key      string
	// Source is the page's source identifier, as used by the ChangedSet.
	Source string
	// Dest is the absolute destination path.
	Dest string
	// RootPath is the relative prefix from the page's directory to the public root.
	RootPath string
}

// MembersFunc resolves per-page members merged over the global options.
type MembersFunc func(page PageInfo) Options

// DefaultMembers exposes the page description under the "Page" key.
func DefaultMembers(page PageInfo) Options {
	return Options{
		"Page": map[string]any{
			"Manifest": page.Manifest,
			"Template": page.Template,
			"Key":      page.Key,
			"Source":   page.Source,
			"Dest":     page.Dest,
			"RootPath": page.RootPath,
		},
	}
}
