// Package render wraps template rendering engines behind a small interface
// and invokes them per page with a freshly merged options value.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"github.com/spf13/afero"
)

// Options is the data handed to an engine for one render call.
type Options map[string]any

// Engine turns spliced template text plus options into rendered output.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Declare renders a single-line variable declaration in the engine's syntax.
	Declare(name string, value json.RawMessage) string
	// Render executes source with opts.
	Render(ctx context.Context, source string, opts Options) ([]byte, error)
}

// EngineConfig configures engine construction.
type EngineConfig struct {
	// Fs is the filesystem partials are read from.
	Fs afero.Fs
	// PartialsDir holds templates made available to every page (optional).
	PartialsDir string
	// Ext is the template file extension, including the dot.
	Ext string
	// MissingKey controls the behavior for missing map keys (error, zero, default).
	MissingKey string
}

// Factory builds an engine from its configuration.
type Factory func(cfg EngineConfig) (Engine, error)

var factories = map[string]Factory{
	TextEngineName: func(cfg EngineConfig) (Engine, error) {
		engine, err := NewTextEngine(cfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	},
}

// New builds the engine registered under name.
func New(name string, cfg EngineConfig) (Engine, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown render engine %q (available: %v)", name, Engines())
	}
	return factory(cfg)
}

// Engines lists the registered engine names.
func Engines() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new Options holding a deep copy of global overlaid with
// members. Neither input is modified and the result shares no maps or
// slices with them.
func Merge(global, members Options) Options {
	out := make(Options, len(global)+len(members))
	for k, v := range global {
		out[k] = deepCopy(v)
	}
	for k, v := range members {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = deepCopy(item)
		}
		return m
	case Options:
		return map[string]any(Merge(val, nil))
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = deepCopy(item)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	case map[string]string:
		return maps.Clone(val)
	default:
		return v
	}
}
