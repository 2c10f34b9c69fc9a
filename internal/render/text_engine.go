package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/afero"
)

// TextEngineName is the registry name of the text/template engine.
const TextEngineName = "gotmpl"

// TextEngine renders pages with text/template. Partials are parsed once and
// cloned for every render so pages never observe each other's definitions.
type TextEngine struct {
	base       *template.Template
	missingKey string
}

// NewTextEngine parses every partial under cfg.PartialsDir. Partials are
// named by their slash-separated path relative to that directory.
func NewTextEngine(cfg EngineConfig) (*TextEngine, error) {
	missingKey := cfg.MissingKey
	if missingKey == "" {
		missingKey = "error"
	}

	base := template.New("pagefactory").Funcs(Funcs()).Option("missingkey=" + missingKey)
	if cfg.PartialsDir != "" {
		if err := parsePartials(base, cfg.Fs, cfg.PartialsDir, cfg.Ext); err != nil {
			return nil, err
		}
	}
	return &TextEngine{base: base, missingKey: missingKey}, nil
}

func parsePartials(base *template.Template, fsys afero.Fs, dir, ext string) error {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return fmt.Errorf("stat partials dir: %w", err)
	}
	if !exists {
		return nil
	}

	return afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || (ext != "" && !strings.HasSuffix(path, ext)) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := afero.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read partial %s: %w", path, err)
		}
		if _, err := base.New(filepath.ToSlash(rel)).Parse(string(content)); err != nil {
			return fmt.Errorf("parse partial %s: %w", path, err)
		}
		return nil
	})
}

// Name implements Engine.
func (e *TextEngine) Name() string { return TextEngineName }

// Declare writes `{{ $name := fromJSON "<json>" }}`, which renders as nothing.
func (e *TextEngine) Declare(name string, value json.RawMessage) string {
	return "{{ $" + name + " := fromJSON " + strconv.Quote(string(value)) + " }}"
}

// Render implements Engine.
func (e *TextEngine) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tpl, err := e.base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone partials: %w", err)
	}
	// Clone does not carry options over.
	tpl.Option("missingkey=" + e.missingKey)
	page, err := tpl.New("page").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, map[string]any(opts)); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}
