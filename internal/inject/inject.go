// Package inject splices per-page variable declarations into template source.
//
// A template contains exactly one split marker. The text before and after the
// marker is kept verbatim and the declaration block of a page is placed in
// between, one single-line declaration per variable in manifest order.
package inject

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/pagefactory/internal/manifest"
)

// DefaultMarker is the split marker used when none is configured.
const DefaultMarker = "{{vars}}"

var (
	// ErrMarkerMissing is returned when the template has no split marker.
	ErrMarkerMissing = errors.New("split marker not found")
	// ErrMarkerAmbiguous is returned when the split marker occurs more than once.
	ErrMarkerAmbiguous = errors.New("split marker occurs more than once")
	// ErrInvalidName is returned for variable names that are not identifiers.
	ErrInvalidName = errors.New("invalid variable name")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Declarer renders one variable declaration in the syntax of a rendering
// engine. value is compact JSON; the result must not contain a newline
// unless the engine requires one as terminator.
type Declarer func(name string, value json.RawMessage) string

// Assignment is the engine-neutral declaration form `name = <json>`, one per line.
func Assignment(name string, value json.RawMessage) string {
	return name + " = " + string(value) + "\n"
}

// Template is template source split at its marker.
type Template struct {
	head string
	tail string
}

// Split cuts source at marker. The marker must occur exactly once.
func Split(source, marker string) (*Template, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	switch n := strings.Count(source, marker); {
	case n == 0:
		return nil, fmt.Errorf("%w: %q", ErrMarkerMissing, marker)
	case n > 1:
		return nil, fmt.Errorf("%w: %q found %d times", ErrMarkerAmbiguous, marker, n)
	}

	head, tail, _ := strings.Cut(source, marker)
	return &Template{head: head, tail: tail}, nil
}

// Inject returns the complete template text for one page.
func (t *Template) Inject(vars manifest.VariableSet, declare Declarer) (string, error) {
	block, err := Declarations(vars, declare)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(t.head) + len(block) + len(t.tail))
	b.WriteString(t.head)
	b.WriteString(block)
	b.WriteString(t.tail)
	return b.String(), nil
}

// Declarations serializes vars in order using declare.
func Declarations(vars manifest.VariableSet, declare Declarer) (string, error) {
	if declare == nil {
		declare = Assignment
	}

	var b strings.Builder
	for _, v := range vars {
		if !identifier.MatchString(v.Name) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, v.Name)
		}
		value := v.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		b.WriteString(declare(v.Name, value))
	}
	return b.String(), nil
}
