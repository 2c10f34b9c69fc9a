package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/postprocess"
	"git.home.luguber.info/inful/pagefactory/internal/render"
)

// minFullRebuildInterval is the shortest accepted periodic rebuild interval.
const minFullRebuildInterval = time.Second

// ValidateConfig checks a normalized, defaulted configuration.
func ValidateConfig(cfg *Config) error {
	checks := []func(*Config) error{
		validatePaths,
		validateRender,
		validatePost,
		validateBuild,
		validateWatch,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if len(cfg.Manifests) == 0 {
		return validationError("manifests", "at least one manifest pattern is required")
	}
	for _, p := range cfg.Manifests {
		if strings.TrimSpace(p) == "" {
			return validationError("manifests", "manifest patterns must not be empty")
		}
	}
	if cfg.TemplateExt == cfg.OutputExt {
		return validationError("output_ext", fmt.Sprintf("must differ from template_ext %q", cfg.TemplateExt))
	}
	if strings.TrimSpace(cfg.Marker) == "" {
		return validationError("marker", "split marker must not be blank")
	}
	return nil
}

func validateRender(cfg *Config) error {
	if !slices.Contains(render.Engines(), cfg.Render.Engine) {
		return validationError("render.engine",
			fmt.Sprintf("unknown engine %q (available: %s)", cfg.Render.Engine, strings.Join(render.Engines(), ", ")))
	}
	return nil
}

func validatePost(cfg *Config) error {
	if _, err := postprocess.NormalizeLineFeed(cfg.Post.LineFeed); err != nil {
		return validationError("post.line_feed", err.Error())
	}
	if _, _, err := postprocess.LookupCharset(cfg.Post.Charset); err != nil {
		return validationError("post.charset", fmt.Sprintf("unknown charset %q", cfg.Post.Charset))
	}
	for _, ext := range cfg.Post.CacheBusterExts {
		if ext == "" {
			return validationError("post.cache_buster_exts", "extensions must not be empty")
		}
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.Concurrency < 0 {
		return validationError("build.concurrency", "must be >= 0")
	}
	if cfg.Build.ManifestConcurrency < 0 {
		return validationError("build.manifest_concurrency", "must be >= 0")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return validationError("watch.debounce", "must be >= 0")
	}
	if cfg.Watch.FullRebuildEvery < 0 {
		return validationError("watch.full_rebuild_every", "must be >= 0")
	}
	if cfg.Watch.FullRebuildEvery > 0 && cfg.Watch.FullRebuildEvery < minFullRebuildInterval {
		return validationError("watch.full_rebuild_every", fmt.Sprintf("must be at least %s", minFullRebuildInterval))
	}
	return nil
}

func validationError(field, message string) error {
	return foundationerrors.ValidationError(message).WithContext("field", field).Build()
}
