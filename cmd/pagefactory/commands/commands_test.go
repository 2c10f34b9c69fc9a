package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagefactory/internal/build"
	"git.home.luguber.info/inful/pagefactory/internal/config"
	"git.home.luguber.info/inful/pagefactory/internal/events"
	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/incremental"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func newProject(t *testing.T, tmpl string) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"pagefactory.yaml":  "render:\n  options:\n    Site: Example\n",
		"factory/page.tmpl": tmpl,
		"factory/site.json": `{"page": {"index": {"title": "Home"}, "news/a": {"title": "A"}}}`,
	})
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	cli := &CLI{}
	g := &Global{}
	parser, err := kong.New(cli, kong.Bind(g), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return ctx.Run(cli)
}

func TestBuild_WritesPages(t *testing.T) {
	dir := newProject(t, `{{vars}}<h1>{{ $title }}</h1>{{ .Site }}`)

	require.NoError(t, run(t, "--config", filepath.Join(dir, "pagefactory.yaml"), "build"))

	data, err := os.ReadFile(filepath.Join(dir, "htdocs", "news", "a.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>A</h1>Example", string(data))
	assert.FileExists(t, filepath.Join(dir, "htdocs", "index.html"))
}

func TestBuild_DryRunWritesNothing(t *testing.T) {
	dir := newProject(t, `{{vars}}{{ $title }}`)

	require.NoError(t, run(t, "--config", filepath.Join(dir, "pagefactory.yaml"), "build", "--dry-run"))
	assert.NoDirExists(t, filepath.Join(dir, "htdocs"))
}

func TestBuild_Strict(t *testing.T) {
	dir := newProject(t, `{{vars}}{{ .Missing }}`)
	cfgPath := filepath.Join(dir, "pagefactory.yaml")

	require.NoError(t, run(t, "--config", cfgPath, "build"), "failures are contained without --strict")

	err := run(t, "--config", cfgPath, "build", "--strict")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryRender))
	assert.Equal(t, 11, foundationerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuild_MissingConfig(t *testing.T) {
	err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "build")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}

func TestBuildContext(t *testing.T) {
	bc, err := (&BuildCmd{}).buildContext("/unused")
	require.NoError(t, err)
	assert.Equal(t, incremental.ModeFull, bc.Mode())

	bc, err = (&BuildCmd{Changed: []string{"news/a.tmpl", "./index.tmpl"}}).buildContext("/unused")
	require.NoError(t, err)
	assert.Equal(t, incremental.ModeIncremental, bc.Mode())
	assert.Equal(t, []string{"index.tmpl", "news/a.tmpl"}, bc.Changed.IDs())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &build.PassResult{
		PassID:    "p1",
		Manifests: 1,
		Written:   2,
		Failed:    1,
		Failures: []build.Failure{{
			Manifest: "site.json",
			Template: "page",
			Page:     "b",
			Stage:    build.StageRender,
			Err:      assert.AnError,
		}},
	})
	out := buf.String()
	assert.Contains(t, out, "Pass p1 (full): partial")
	assert.Contains(t, out, "pages: 2 written, 0 unchanged, 0 skipped, 1 failed")
	assert.Contains(t, out, "! [render] site.json page/b: "+assert.AnError.Error())
}

func TestInit(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pagefactory.yaml")

	require.NoError(t, run(t, "--config", cfgPath, "init"))
	_, err := config.Load(cfgPath)
	require.NoError(t, err, "sample configuration must load")

	err = run(t, "--config", cfgPath, "init")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))

	require.NoError(t, run(t, "--config", cfgPath, "init", "--force"))
}

func TestManifests(t *testing.T) {
	dir := newProject(t, `{{vars}}`)
	require.NoError(t, run(t, "--config", filepath.Join(dir, "pagefactory.yaml"), "manifests", "--pages"))
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := setupLogging(&buf, config.LoggingConfig{Level: config.LogLevelWarn, Format: config.LogFormatJSON}, false)
	logger.Info("hidden")
	logger.Warn("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])

	buf.Reset()
	logger = setupLogging(&buf, config.LoggingConfig{Level: config.LogLevelError}, true)
	logger.Debug("debug forced by verbose")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestNewSink_WithoutNATS(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	require.NoError(t, err)

	sink, closeSink, err := newSink(cfg, nil)
	require.NoError(t, err)
	defer closeSink()
	assert.IsType(t, &events.LogSink{}, sink)
}

func TestClassifier_UsesResolvedPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Default(dir)
	require.NoError(t, err)

	c := classifier(cfg)
	assert.Equal(t, filepath.Join(dir, "factory"), c.Root)
	assert.Contains(t, c.Dirs(), filepath.Join(dir, "src"))
}

func TestPassFunc_OnlyChangedManifests(t *testing.T) {
	dir := newProject(t, `{{vars}}{{ $title }}`)
	writeFiles(t, dir, map[string]string{
		"factory/more.json": `{"page": {"about": {"title": "About"}}}`,
	})
	cfg, err := config.Default(dir)
	require.NoError(t, err)
	builder, err := newBuilder(afero.NewOsFs(), cfg, false)
	require.NoError(t, err)
	pass := passFunc(cfg, builder, slog.Default())

	require.NoError(t, pass(context.Background(), incremental.Full(),
		[]string{filepath.Join(dir, "factory", "more.json")}))
	assert.FileExists(t, filepath.Join(dir, "htdocs", "about.html"))
	assert.NoFileExists(t, filepath.Join(dir, "htdocs", "index.html"))

	require.NoError(t, pass(context.Background(), incremental.Full(),
		[]string{filepath.Join(dir, "factory", "gone.json")}))
	assert.NoFileExists(t, filepath.Join(dir, "htdocs", "index.html"))

	require.NoError(t, pass(context.Background(), incremental.Full(), nil))
	assert.FileExists(t, filepath.Join(dir, "htdocs", "index.html"))
}

func TestOnlyChanged(t *testing.T) {
	all := []string{"/site/factory/a.json", "/site/factory/b.json"}
	assert.Equal(t, []string{"/site/factory/b.json"}, onlyChanged(all, []string{"/site/factory/b.json", "/site/factory/c.json"}))
	assert.Empty(t, onlyChanged(all, []string{}))
}
