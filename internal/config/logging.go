package config

import (
	"log/slog"

	"git.home.luguber.info/inful/pagefactory/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("logging.level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// SlogLevel converts the level for slog handlers.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("logging.format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

// MissingKey is the template behavior for missing map keys.
type MissingKey string

const (
	MissingKeyError   MissingKey = "error"
	MissingKeyZero    MissingKey = "zero"
	MissingKeyDefault MissingKey = "default"
)

var missingKeyNormalizer = normalization.NewNormalizer("render.missing_key", map[string]MissingKey{
	"error":   MissingKeyError,
	"zero":    MissingKeyZero,
	"default": MissingKeyDefault,
	"invalid": MissingKeyDefault,
}, MissingKeyError)
