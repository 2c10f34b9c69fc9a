package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPassID     = "pass_id"
	KeyManifest   = "manifest"
	KeyTemplate   = "template"
	KeyPage       = "page"
	KeyDest       = "dest"
	KeyComponent  = "component"
	KeyEvent      = "event"
	KeyEngine     = "engine"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PassID(id string) slog.Attr        { return slog.String(KeyPassID, id) }
func Manifest(path string) slog.Attr    { return slog.String(KeyManifest, path) }
func Template(key string) slog.Attr     { return slog.String(KeyTemplate, key) }
func Page(key string) slog.Attr         { return slog.String(KeyPage, key) }
func Dest(path string) slog.Attr        { return slog.String(KeyDest, path) }
func Component(name string) slog.Attr   { return slog.String(KeyComponent, name) }
func Event(kind string) slog.Attr       { return slog.String(KeyEvent, kind) }
func Engine(name string) slog.Attr      { return slog.String(KeyEngine, name) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
