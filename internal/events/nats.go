package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// DefaultSubject is the subject file events are published on.
const DefaultSubject = "pagefactory.files"

// FileEvent is the JSON payload of a published file notification.
type FileEvent struct {
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	PassID    string    `json:"pass_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is the JSON payload of a published error notification.
type ErrorEvent struct {
	Component string         `json:"component"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	PassID    string         `json:"pass_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher is the part of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes file events on a subject and errors on "<subject>.errors".
// Publish failures are logged and never reach the build.
type NATSSink struct {
	pub     Publisher
	subject string
	now     func() time.Time
	conn    *nats.Conn
}

// NewNATSSink publishes through pub.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject, now: time.Now}
}

// ConnectNATS dials url and returns a sink owning the connection.
func ConnectNATS(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("pagefactory"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}
	sink := NewNATSSink(conn, subject)
	sink.conn = conn
	slog.Info("NATS file events enabled", "url", url, "subject", sink.subject)
	return sink, nil
}

// Close flushes and closes an owned connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	defer s.conn.Close()
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("flush NATS connection: %w", err)
	}
	return nil
}

// File implements Sink.
func (s *NATSSink) File(ctx context.Context, kind, path string) {
	s.publish(s.subject, FileEvent{
		Kind:      kind,
		Path:      path,
		PassID:    PassID(ctx),
		Timestamp: s.now().UTC(),
	})
}

// Error implements Sink.
func (s *NATSSink) Error(ctx context.Context, component string, err error) {
	event := ErrorEvent{
		Component: component,
		Message:   err.Error(),
		PassID:    PassID(ctx),
		Timestamp: s.now().UTC(),
	}
	if classified, ok := foundationerrors.AsClassified(err); ok {
		event.Category = string(classified.Category())
		if c := classified.Context(); len(c) > 0 {
			event.Context = map[string]any(c)
		}
	}
	s.publish(s.subject+".errors", event)
}

func (s *NATSSink) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := s.pub.Publish(subject, data); err != nil {
		slog.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
