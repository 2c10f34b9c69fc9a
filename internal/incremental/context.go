// Package incremental decides which pages of a pass are rendered.
//
// A pass is full unless it is a viewing update (started by a watcher while a
// user previews the site) and not the first build. Incremental passes only
// render pages whose source identifier is in the pass's ChangedSet.
package incremental

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/pagefactory/internal/util/sets"
)

// Mode is the filtering mode of a pass.
type Mode int

const (
	ModeFull Mode = iota
	ModeIncremental
)

func (m Mode) String() string {
	if m == ModeIncremental {
		return "incremental"
	}
	return "full"
}

// ChangedSet is an immutable set of slash-separated source identifiers.
type ChangedSet struct {
	ids sets.Set[string]
}

// NewChangedSet builds a set from ids, normalizing separators and dot segments.
func NewChangedSet(ids ...string) ChangedSet {
	s := sets.New[string]()
	for _, id := range ids {
		if id = NormalizeID(id); id != "" {
			s.Add(id)
		}
	}
	return ChangedSet{ids: s}
}

// NormalizeID returns the canonical form of a source identifier. Backslashes
// are separators on every platform.
func NormalizeID(id string) string {
	id = strings.TrimSpace(strings.ReplaceAll(id, `\`, "/"))
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	return id
}

// Has reports whether id is in the set.
func (c ChangedSet) Has(id string) bool { return c.ids.Has(NormalizeID(id)) }

// Len returns the number of identifiers.
func (c ChangedSet) Len() int { return c.ids.Len() }

// IDs returns the identifiers in ascending order.
func (c ChangedSet) IDs() []string { return sets.Sorted(c.ids) }

// Union returns a new set holding the members of both sets.
func (c ChangedSet) Union(other ChangedSet) ChangedSet {
	out := c.ids.Clone()
	for id := range other.ids {
		out.Add(id)
	}
	return ChangedSet{ids: out}
}

// SourceID is the identifier of the page with the given key.
func SourceID(pageKey, templateExt string) string {
	return NormalizeID(pageKey) + templateExt
}

// BuildContext carries the trigger state of one pass.
type BuildContext struct {
	FirstBuild             bool
	ViewingUpdate          bool
	ViewingUpdateTemplates bool
	Changed                ChangedSet
}

// Full returns the context of an unconditional full pass.
func Full() BuildContext {
	return BuildContext{FirstBuild: true}
}

// Mode returns the filtering mode of the pass.
func (b BuildContext) Mode() Mode {
	if !b.FirstBuild && (b.ViewingUpdate || b.ViewingUpdateTemplates) {
		return ModeIncremental
	}
	return ModeFull
}

// Include reports whether the page with sourceID is rendered in this pass.
func (b BuildContext) Include(sourceID string) bool {
	if b.Mode() == ModeFull {
		return true
	}
	return b.Changed.Has(sourceID)
}
