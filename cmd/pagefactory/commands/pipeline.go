package commands

import (
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagefactory/internal/build"
	"git.home.luguber.info/inful/pagefactory/internal/config"
	"git.home.luguber.info/inful/pagefactory/internal/discovery"
	"git.home.luguber.info/inful/pagefactory/internal/postprocess"
	"git.home.luguber.info/inful/pagefactory/internal/render"
	"git.home.luguber.info/inful/pagefactory/internal/watch"
)

// newBuilder assembles the engine, post-processing chain and builder
// described by cfg. dryRun is OR-ed with build.dry_run.
func newBuilder(fsys afero.Fs, cfg *config.Config, dryRun bool) (*build.Builder, error) {
	engine, err := render.New(cfg.Render.Engine, render.EngineConfig{
		Fs:          fsys,
		PartialsDir: cfg.Partials,
		Ext:         cfg.TemplateExt,
		MissingKey:  string(cfg.Render.MissingKey),
	})
	if err != nil {
		return nil, err
	}
	invoker := render.NewInvoker(engine, render.Options(cfg.Render.Options), render.DefaultMembers)

	chain, err := postprocess.NewChain(postprocess.Config{
		Fs:              fsys,
		PublicRoot:      cfg.PublicRoot,
		RelativePath:    cfg.Post.RelativePath,
		CacheBusterExts: cfg.Post.CacheBusterExts,
		LineFeed:        cfg.Post.LineFeed,
		Charset:         cfg.Post.Charset,
	})
	if err != nil {
		return nil, err
	}

	return build.NewBuilder(fsys, build.Options{
		TemplateRoot:        cfg.Root,
		Dest:                cfg.Dest,
		PublicRoot:          cfg.PublicRoot,
		TemplateExt:         cfg.TemplateExt,
		OutputExt:           cfg.OutputExt,
		Marker:              cfg.Marker,
		Concurrency:         cfg.Build.Concurrency,
		ManifestConcurrency: cfg.Build.ManifestConcurrency,
		DryRun:              cfg.Build.DryRun || dryRun,
	}, invoker, chain), nil
}

// discoverManifests expands the configured manifest patterns.
func discoverManifests(cfg *config.Config) ([]string, error) {
	return discovery.Manifests(cfg.BaseDir, cfg.Manifests)
}

func classifier(cfg *config.Config) watch.Classifier {
	return watch.Classifier{
		Root:            cfg.Root,
		Src:             cfg.Src,
		Dest:            cfg.Dest,
		PublicRoot:      cfg.PublicRoot,
		Partials:        cfg.Partials,
		TemplateExt:     cfg.TemplateExt,
		OutputExt:       cfg.OutputExt,
		Manifests:       cfg.Manifests,
		CacheBusterExts: cfg.Post.CacheBusterExts,
	}
}
