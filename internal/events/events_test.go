package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{subject: subject, data: data})
	return p.err
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestNATSSink_File(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "")
	sink.now = fixedNow

	sink.File(WithPassID(context.Background(), "pass-1"), "create", "/out/index.html")

	require.Len(t, pub.messages, 1)
	assert.Equal(t, DefaultSubject, pub.messages[0].subject)
	assert.JSONEq(t, `{
		"kind": "create",
		"path": "/out/index.html",
		"pass_id": "pass-1",
		"timestamp": "2024-05-01T12:00:00Z"
	}`, string(pub.messages[0].data))
}

func TestNATSSink_Error(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "site.files")
	sink.now = fixedNow

	err := foundationerrors.RenderError("render failed").WithContext("page", "news/a").Build()
	sink.Error(context.Background(), "pagefactory", err)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "site.files.errors", pub.messages[0].subject)

	var event ErrorEvent
	require.NoError(t, json.Unmarshal(pub.messages[0].data, &event))
	assert.Equal(t, "pagefactory", event.Component)
	assert.Equal(t, "render", event.Category)
	assert.Equal(t, "news/a", event.Context["page"])
	assert.Empty(t, event.PassID)
}

func TestNATSSink_PublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	sink := NewNATSSink(pub, "")

	assert.NotPanics(t, func() {
		sink.File(context.Background(), "create", "/out/x.html")
	})
	assert.Len(t, pub.messages, 1)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewLogSink(logger)
	ctx := WithPassID(context.Background(), "pass-2")

	sink.File(ctx, "create", "/out/a.html")
	sink.Error(ctx, "pagefactory", foundationerrors.ManifestError("invalid JSON").WithContext("manifest", "m.json").Build())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var file map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &file))
	assert.Equal(t, "file create", file["msg"])
	assert.Equal(t, "/out/a.html", file["dest"])
	assert.Equal(t, "pass-2", file["pass_id"])

	var failure map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &failure))
	assert.Equal(t, "ERROR", failure["level"])
	assert.Equal(t, "pagefactory", failure["component"])
	assert.Equal(t, "manifest", failure["category"])
	assert.Equal(t, "m.json", failure["manifest"])
}

type countingSink struct {
	files, errs int
}

func (c *countingSink) Error(context.Context, string, error) { c.errs++ }
func (c *countingSink) File(context.Context, string, string) { c.files++ }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, b, Discard{}}

	m.File(context.Background(), "create", "x")
	m.Error(context.Background(), "pagefactory", errors.New("boom"))

	assert.Equal(t, 1, a.files)
	assert.Equal(t, 1, b.errs)
}
