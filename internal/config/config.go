// Package config loads pagefactory.yaml.
//
// Loading expands ${VAR} references (after reading .env and .env.local next
// to the file without overriding the process environment), decodes the YAML
// strictly, normalizes enumerations, applies defaults, resolves relative
// paths against the config file's directory and validates the result.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// DefaultFile is the config file name looked up when none is given.
const DefaultFile = "pagefactory.yaml"

// Config is the complete pagefactory configuration.
type Config struct {
	Version string `yaml:"version"`
	// Root holds template sources: template key k resolves to <root>/<k><template_ext>.
	Root string `yaml:"root"`
	// Manifests are glob patterns ("**" allowed) selecting manifest files.
	Manifests []string `yaml:"manifests"`
	// Src is the source root changed-file identifiers are relative to.
	Src        string `yaml:"src"`
	Dest       string `yaml:"dest"`
	PublicRoot string `yaml:"public_root"`
	Partials   string `yaml:"partials,omitempty"`

	TemplateExt string `yaml:"template_ext"`
	OutputExt   string `yaml:"output_ext"`
	Marker      string `yaml:"marker"`

	Render  RenderConfig  `yaml:"render"`
	Post    PostConfig    `yaml:"post"`
	Build   BuildConfig   `yaml:"build"`
	Watch   WatchConfig   `yaml:"watch"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `yaml:"-"`
}

// RenderConfig selects the rendering engine.
type RenderConfig struct {
	Engine     string         `yaml:"engine"`
	MissingKey MissingKey     `yaml:"missing_key"`
	Options    map[string]any `yaml:"options,omitempty"` // global template data
}

// PostConfig configures the post-processing chain.
type PostConfig struct {
	RelativePath    bool     `yaml:"relative_path"`
	CacheBusterExts []string `yaml:"cache_buster_exts,omitempty"`
	LineFeed        string   `yaml:"line_feed"`
	Charset         string   `yaml:"charset"`
}

// BuildConfig bounds pass concurrency.
type BuildConfig struct {
	Concurrency         int  `yaml:"concurrency"` // 0 = NumCPU
	ManifestConcurrency int  `yaml:"manifest_concurrency"`
	DryRun              bool `yaml:"dry_run"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce         time.Duration `yaml:"debounce"`
	FullRebuildEvery time.Duration `yaml:"full_rebuild_every"`
	MetricsAddr      string        `yaml:"metrics_addr,omitempty"`
	// ViewingUpdate and ViewingUpdateTemplates make source-change passes
	// incremental: only pages whose sources changed are rendered.
	ViewingUpdate          bool `yaml:"viewing_update"`
	ViewingUpdateTemplates bool `yaml:"viewing_update_templates"`
}

// EventsConfig enables publishing file events to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, completes and validates the config file at path.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "resolve config path").Build()
	}
	baseDir := filepath.Dir(abs)

	if err := loadEnvFiles(baseDir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, foundationerrors.NewError(foundationerrors.CategoryNotFound, "configuration file not found").
				WithContext("path", abs).
				WithContext("hint", "run 'pagefactory init' to create one").
				Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", abs).
			Build()
	}

	cfg, err := Parse(data, baseDir)
	if err != nil {
		if classified, ok := foundationerrors.AsClassified(err); ok {
			return nil, classified.WithContext("path", abs)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data and completes it as Load does, resolving relative
// paths against baseDir. Environment references are expanded.
func Parse(data []byte, baseDir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").Build()
	}

	if err := complete(&cfg, baseDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when every key is omitted,
// resolved against baseDir.
func Default(baseDir string) (*Config, error) {
	var cfg Config
	if err := complete(&cfg, baseDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func complete(cfg *Config, baseDir string) error {
	if _, err := NormalizeConfig(cfg); err != nil {
		return err
	}
	applyDefaults(cfg)
	resolvePaths(cfg, baseDir)
	return ValidateConfig(cfg)
}

func resolvePaths(cfg *Config, baseDir string) {
	abs, err := filepath.Abs(baseDir)
	if err == nil {
		baseDir = abs
	}
	cfg.BaseDir = baseDir

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	cfg.Root = resolve(cfg.Root)
	cfg.Src = resolve(cfg.Src)
	cfg.Dest = resolve(cfg.Dest)
	cfg.PublicRoot = resolve(cfg.PublicRoot)
	cfg.Partials = resolve(cfg.Partials)
	for i, pat := range cfg.Manifests {
		cfg.Manifests[i] = resolve(pat)
	}
}
