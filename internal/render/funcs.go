package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"fromJSON": fromJSON,
		"toJSON":   toJSON,
		"markdown": markdown,
		"default":  defaultValue,
	}
}

func fromJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("fromJSON: %w", err)
	}
	return v, nil
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toJSON: %w", err)
	}
	return string(data), nil
}

func markdown(v any) (string, error) {
	var src string
	switch s := v.(type) {
	case string:
		src = s
	case nil:
		return "", nil
	default:
		src = fmt.Sprint(s)
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return buf.String(), nil
}

// defaultValue returns def when v is nil, an empty string, or an empty collection.
func defaultValue(def, v any) any {
	switch val := v.(type) {
	case nil:
		return def
	case string:
		if val == "" {
			return def
		}
	case []any:
		if len(val) == 0 {
			return def
		}
	case map[string]any:
		if len(val) == 0 {
			return def
		}
	case bool:
		if !val {
			return def
		}
	}
	return v
}
