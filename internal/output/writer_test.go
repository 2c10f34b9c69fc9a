package output

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) File(_ context.Context, kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+" "+path)
}

func TestWriteIfChanged(t *testing.T) {
	fsys := afero.NewMemMapFs()
	events := &recorder{}
	w := NewWriter(fsys, WithNotifier(events))
	ctx := context.Background()

	res, err := w.WriteIfChanged(ctx, "/out/a/b/index.html", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, Written, res)

	data, err := afero.ReadFile(fsys, "/out/a/b/index.html")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	res, err = w.WriteIfChanged(ctx, "/out/a/b/index.html", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res)

	res, err = w.WriteIfChanged(ctx, "/out/a/b/index.html", []byte("v1\n"))
	require.NoError(t, err)
	assert.Equal(t, Written, res)

	assert.Equal(t, []string{"create /out/a/b/index.html", "create /out/a/b/index.html"}, events.events)
}

func TestWriteIfChanged_DryRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	events := &recorder{}
	w := NewWriter(fsys, WithNotifier(events), WithDryRun(true))

	res, err := w.WriteIfChanged(context.Background(), "/out/index.html", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, Written, res)
	assert.Len(t, events.events, 1)

	exists, err := afero.Exists(fsys, "/out/index.html")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteIfChanged_Failure(t *testing.T) {
	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := NewWriter(fsys)

	res, err := w.WriteIfChanged(context.Background(), "/out/index.html", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, Unchanged, res)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
