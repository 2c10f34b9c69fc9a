package config

import (
	"path"
	"time"

	"git.home.luguber.info/inful/pagefactory/internal/events"
	"git.home.luguber.info/inful/pagefactory/internal/inject"
	"git.home.luguber.info/inful/pagefactory/internal/render"
)

// Defaults for omitted keys.
const (
	DefaultVersion             = "1"
	DefaultRoot                = "factory"
	DefaultSrc                 = "src"
	DefaultDest                = "htdocs"
	DefaultTemplateExt         = ".tmpl"
	DefaultOutputExt           = ".html"
	DefaultManifestConcurrency = 2
	DefaultDebounce            = 300 * time.Millisecond
	DefaultLineFeed            = "lf"
	DefaultCharset             = "utf8"
)

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if len(cfg.Manifests) == 0 {
		cfg.Manifests = []string{path.Join(cfg.Root, "**", "*.json")}
	}
	if cfg.Src == "" {
		cfg.Src = DefaultSrc
	}
	if cfg.Dest == "" {
		cfg.Dest = DefaultDest
	}
	if cfg.PublicRoot == "" {
		cfg.PublicRoot = cfg.Dest
	}
	if cfg.TemplateExt == "" {
		cfg.TemplateExt = DefaultTemplateExt
	}
	if cfg.OutputExt == "" {
		cfg.OutputExt = DefaultOutputExt
	}
	if cfg.Marker == "" {
		cfg.Marker = inject.DefaultMarker
	}

	if cfg.Render.Engine == "" {
		cfg.Render.Engine = render.TextEngineName
	}
	if cfg.Render.MissingKey == "" {
		cfg.Render.MissingKey = MissingKeyError
	}
	if cfg.Post.LineFeed == "" {
		cfg.Post.LineFeed = DefaultLineFeed
	}
	if cfg.Post.Charset == "" {
		cfg.Post.Charset = DefaultCharset
	}

	if cfg.Build.ManifestConcurrency == 0 {
		cfg.Build.ManifestConcurrency = DefaultManifestConcurrency
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = events.DefaultSubject
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
