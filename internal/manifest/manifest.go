// Package manifest decodes page manifests: JSON documents that map template
// keys to the pages rendered from them and the variables bound to each page.
//
//	{
//	  "news/detail": {
//	    "news/2024/launch": {"title": "Launch", "tags": ["a", "b"]},
//	    "news/2024/recap":  {"title": "Recap"}
//	  }
//	}
//
// Key order is preserved at every level so variable declarations, and
// therefore rendered output, are reproducible.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// Variable is one binding of a page. Value holds the compact JSON encoding
// of the value exactly as it appeared in the manifest.
type Variable struct {
	Name  string
	Value json.RawMessage
}

// VariableSet is the ordered list of a page's bindings.
type VariableSet []Variable

// Lookup returns the raw value bound to name.
func (vs VariableSet) Lookup(name string) (json.RawMessage, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// Page is one output page of a template.
type Page struct {
	// Key is the output path relative to the destination root, without extension.
	Key  string
	Vars VariableSet
	// Err is set when the page's variables are not a JSON object. Vars is
	// empty in that case.
	Err error
}

// PageGroup lists the pages produced from one template.
type PageGroup struct {
	// Template is the template path relative to the template root, without extension.
	Template string
	Pages    []Page
	// Err is set when the group is not a JSON object. Pages is empty in that case.
	Err error
}

// Manifest is a decoded manifest file.
type Manifest struct {
	Groups []PageGroup
}

// PageCount returns the number of pages across all groups.
func (m *Manifest) PageCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Pages)
	}
	return n
}

// Parse decodes a manifest document. Invalid JSON or a non-object document
// fails the whole manifest. A template or page entry of the wrong shape is
// recorded in its PageGroup.Err or Page.Err so its siblings stay usable.
func Parse(data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		return nil, parseError("invalid JSON", nil)
	}

	templates, err := decodeObject(data, "manifest")
	if err != nil {
		return nil, err
	}

	m := &Manifest{Groups: make([]PageGroup, 0, templates.Len())}
	for tp := templates.Oldest(); tp != nil; tp = tp.Next() {
		pages, err := decodeObject(tp.Value, fmt.Sprintf("template %q", tp.Key))
		if err != nil {
			m.Groups = append(m.Groups, PageGroup{Template: tp.Key, Err: err})
			continue
		}

		group := PageGroup{Template: tp.Key, Pages: make([]Page, 0, pages.Len())}
		for pp := pages.Oldest(); pp != nil; pp = pp.Next() {
			vars, err := decodeVariables(pp.Value, tp.Key, pp.Key)
			group.Pages = append(group.Pages, Page{Key: pp.Key, Vars: vars, Err: err})
		}
		m.Groups = append(m.Groups, group)
	}
	return m, nil
}

func decodeVariables(raw json.RawMessage, template, page string) (VariableSet, error) {
	obj, err := decodeObject(raw, fmt.Sprintf("page %q of template %q", page, template))
	if err != nil {
		return nil, err
	}

	vars := make(VariableSet, 0, obj.Len())
	for p := obj.Oldest(); p != nil; p = p.Next() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.Value); err != nil {
			return nil, parseError(fmt.Sprintf("variable %q of page %q", p.Key, page), err)
		}
		vars = append(vars, Variable{Name: p.Key, Value: json.RawMessage(buf.Bytes())})
	}
	return vars, nil
}

func decodeObject(raw []byte, what string) (*orderedmap.OrderedMap[string, json.RawMessage], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, parseError(what+" must be a JSON object", nil)
	}

	obj := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, obj); err != nil {
		return nil, parseError("decode "+what, err)
	}
	return obj, nil
}

func parseError(message string, cause error) error {
	return foundationerrors.ManifestError(message).WithCause(cause).Build()
}
