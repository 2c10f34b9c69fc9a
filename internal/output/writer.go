// Package output persists rendered pages, writing only files whose bytes changed.
package output

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

const (
	dirMode  fs.FileMode = 0o750
	fileMode fs.FileMode = 0o644
)

// Result is the outcome of one write.
type Result int

const (
	// Unchanged means the destination already held identical bytes.
	Unchanged Result = iota
	// Written means the destination was created or replaced.
	Written
)

func (r Result) String() string {
	if r == Written {
		return "written"
	}
	return "unchanged"
}

// EventCreate is the file event kind emitted for every write.
const EventCreate = "create"

// FileNotifier receives file events.
type FileNotifier interface {
	File(ctx context.Context, kind, path string)
}

// Writer compares and writes destination files.
type Writer struct {
	fs       afero.Fs
	notifier FileNotifier
	dryRun   bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithNotifier sets the sink for create events.
func WithNotifier(n FileNotifier) Option {
	return func(w *Writer) { w.notifier = n }
}

// WithDryRun reports what would be written without touching the filesystem.
func WithDryRun(dryRun bool) Option {
	return func(w *Writer) { w.dryRun = dryRun }
}

// NewWriter creates a writer on fsys.
func NewWriter(fsys afero.Fs, opts ...Option) *Writer {
	w := &Writer{fs: fsys}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteIfChanged writes data to dest unless dest already holds exactly data.
// Intermediate directories are created as needed. An unchanged file produces
// no event.
func (w *Writer) WriteIfChanged(ctx context.Context, dest string, data []byte) (Result, error) {
	current, err := afero.ReadFile(w.fs, dest)
	switch {
	case err == nil:
		if bytes.Equal(current, data) {
			return Unchanged, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Unchanged, writeError(err, "read existing file", dest)
	}

	if !w.dryRun {
		if err := w.fs.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
			return Unchanged, writeError(err, "create directory", dest)
		}
		if err := afero.WriteFile(w.fs, dest, data, fileMode); err != nil {
			return Unchanged, writeError(err, "write file", dest)
		}
	}

	if w.notifier != nil {
		w.notifier.File(ctx, EventCreate, dest)
	}
	return Written, nil
}

func writeError(err error, message, dest string) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, message).
		WithContext("dest", dest).
		Build()
}
