package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Sample(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, dir, Sample))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, filepath.Join(dir, "factory"), cfg.Root)
	assert.Equal(t, []string{filepath.Join(dir, "factory/**/*.json")}, cfg.Manifests)
	assert.Equal(t, filepath.Join(dir, "htdocs"), cfg.Dest)
	assert.Equal(t, filepath.Join(dir, "htdocs"), cfg.PublicRoot)
	assert.Empty(t, cfg.Partials)
	assert.Equal(t, ".tmpl", cfg.TemplateExt)
	assert.Equal(t, "{{vars}}", cfg.Marker)
	assert.Equal(t, "gotmpl", cfg.Render.Engine)
	assert.Equal(t, MissingKeyError, cfg.Render.MissingKey)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Watch.ViewingUpdate)
	assert.Equal(t, "pagefactory.files", cfg.Events.Subject)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, dir, cfg.BaseDir)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, dir, ""))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "src"), cfg.Src)
	assert.Equal(t, []string{filepath.Join(dir, "factory", "**", "*.json")}, cfg.Manifests)
	assert.Equal(t, DefaultManifestConcurrency, cfg.Build.ManifestConcurrency)
	assert.Equal(t, "lf", cfg.Post.LineFeed)
	assert.Equal(t, "utf8", cfg.Post.Charset)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestLoad_EnvExpansionAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PF_TEST_DEST", "public")
	t.Cleanup(func() { _ = os.Unsetenv("PF_TEST_CHARSET") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PF_TEST_DEST=ignored\nPF_TEST_CHARSET=shift_jis\n"), 0o600))

	cfg, err := Load(writeConfig(t, dir, `
dest: ${PF_TEST_DEST}
post:
  charset: ${PF_TEST_CHARSET}
  cache_buster_exts: [".CSS", js]
template_ext: tpl
`))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "public"), cfg.Dest, "process environment wins over .env")
	assert.Equal(t, "shift_jis", cfg.Post.Charset)
	assert.Equal(t, []string{"css", "js"}, cfg.Post.CacheBusterExts)
	assert.Equal(t, ".tpl", cfg.TemplateExt)
}

func TestLoad_AbsolutePathsKept(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	cfg, err := Load(writeConfig(t, dir, "dest: "+out+"\n"))
	require.NoError(t, err)
	assert.Equal(t, out, cfg.Dest)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		category foundationerrors.ErrorCategory
	}{
		{"unknown key", "destination: x\n", foundationerrors.CategoryConfig},
		{"bad yaml", "dest: [\n", foundationerrors.CategoryConfig},
		{"bad duration", "watch:\n  debounce: soon\n", foundationerrors.CategoryConfig},
		{"unknown engine", "render:\n  engine: mustache\n", foundationerrors.CategoryValidation},
		{"unknown missing key", "render:\n  missing_key: explode\n", foundationerrors.CategoryValidation},
		{"unknown line feed", "post:\n  line_feed: unix\n", foundationerrors.CategoryValidation},
		{"unknown charset", "post:\n  charset: klingon\n", foundationerrors.CategoryValidation},
		{"same extensions", "template_ext: .html\n", foundationerrors.CategoryValidation},
		{"negative concurrency", "build:\n  concurrency: -1\n", foundationerrors.CategoryValidation},
		{"rebuild too often", "watch:\n  full_rebuild_every: 10ms\n", foundationerrors.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.category, foundationerrors.GetCategory(err), err.Error())
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}

func TestNormalizeConfig_LoggingFallbacks(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "LOUD", Format: "JSON"}}
	res, err := NormalizeConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Len(t, res.Warnings, 1)
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, WriteSample(path, false))

	err := WriteSample(path, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))

	require.NoError(t, WriteSample(path, true))
}

func TestLogLevel_SlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.SlogLevel().String())
	assert.Equal(t, "WARN", NormalizeLogLevel("warning").SlogLevel().String())
	assert.Equal(t, "INFO", LogLevel("").SlogLevel().String())
}

func TestDefault(t *testing.T) {
	cfg, err := Default("/srv/site")
	require.NoError(t, err)
	assert.Equal(t, "/srv/site/htdocs", cfg.Dest)
	assert.Equal(t, "/srv/site/factory", cfg.Root)
}
