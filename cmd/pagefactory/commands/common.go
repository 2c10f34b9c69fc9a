// Package commands implements the pagefactory subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagefactory/internal/config"
)

// Global is bound into every command's Run.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pagefactory.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run one build pass over all discovered manifests"`
	Watch     WatchCmd     `cmd:"" help:"Build, then rebuild on manifest, template and source changes"`
	Init      InitCmd      `cmd:"" help:"Write a sample configuration file"`
	Manifests ManifestsCmd `cmd:"" help:"List the manifests the configuration discovers"`
}

// AfterApply runs after flag parsing; it installs a default logger until
// the config's logging section is known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = setupLogging(os.Stderr, config.LoggingConfig{}, c.Verbose)
	return nil
}

// loadConfig loads the config named by --config and applies its logging section.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = setupLogging(os.Stderr, cfg.Logging, c.Verbose)
	return cfg, nil
}

// setupLogging installs and returns the default logger. verbose forces debug.
func setupLogging(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := config.NormalizeLogLevel(string(lc.Level)).SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
