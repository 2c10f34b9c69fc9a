// Package events delivers the error and file notifications of a build pass
// to logs and, optionally, a NATS subject.
package events

import (
	"context"
	"log/slog"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/logfields"
)

// Sink receives pass notifications. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	Error(ctx context.Context, component string, err error)
	File(ctx context.Context, kind, path string)
}

type passIDKey struct{}

// WithPassID returns a context carrying the pass identifier.
func WithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passIDKey{}, id)
}

// PassID returns the pass identifier stored in ctx, if any.
func PassID(ctx context.Context) string {
	id, _ := ctx.Value(passIDKey{}).(string)
	return id
}

// LogSink writes notifications to a slog logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink on logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Error implements Sink.
func (s *LogSink) Error(ctx context.Context, component string, err error) {
	attrs := []slog.Attr{logfields.Component(component)}
	if id := PassID(ctx); id != "" {
		attrs = append(attrs, logfields.PassID(id))
	}
	if classified, ok := foundationerrors.AsClassified(err); ok {
		attrs = append(attrs, classified.LogAttrs()...)
	}
	attrs = append(attrs, logfields.Error(err))
	s.logger.LogAttrs(ctx, slog.LevelError, "build error", attrs...)
}

// File implements Sink.
func (s *LogSink) File(ctx context.Context, kind, path string) {
	attrs := []slog.Attr{logfields.Event(kind), logfields.Dest(path)}
	if id := PassID(ctx); id != "" {
		attrs = append(attrs, logfields.PassID(id))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "file "+kind, attrs...)
}

// Multi fans notifications out to every sink.
type Multi []Sink

// Error implements Sink.
func (m Multi) Error(ctx context.Context, component string, err error) {
	for _, s := range m {
		s.Error(ctx, component, err)
	}
}

// File implements Sink.
func (m Multi) File(ctx context.Context, kind, path string) {
	for _, s := range m {
		s.File(ctx, kind, path)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Error(context.Context, string, error) {}
func (Discard) File(context.Context, string, string) {}
