package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagefactory/internal/build"
	"git.home.luguber.info/inful/pagefactory/internal/config"
	"git.home.luguber.info/inful/pagefactory/internal/events"
	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/incremental"
	"git.home.luguber.info/inful/pagefactory/internal/logfields"
	"git.home.luguber.info/inful/pagefactory/internal/metrics"
	"git.home.luguber.info/inful/pagefactory/internal/util/sets"
	"git.home.luguber.info/inful/pagefactory/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides watch.metrics_addr)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if w.MetricsAddr != "" {
		cfg.Watch.MetricsAddr = w.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	builder, err := newBuilder(afero.NewOsFs(), cfg, false)
	if err != nil {
		return err
	}
	builder.WithLogger(g.Logger)

	sink, closeSink, err := newSink(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer closeSink()
	builder.WithSink(sink)

	if cfg.Watch.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		builder.WithRecorder(metrics.NewPrometheusRecorder(reg))
		stop := serveMetrics(cfg.Watch.MetricsAddr, reg, g.Logger)
		defer stop()
	}

	watcher := watch.New(watch.Options{
		Classifier:             classifier(cfg),
		Debounce:               cfg.Watch.Debounce,
		FullRebuildEvery:       cfg.Watch.FullRebuildEvery,
		ViewingUpdate:          cfg.Watch.ViewingUpdate,
		ViewingUpdateTemplates: cfg.Watch.ViewingUpdateTemplates,
	}, passFunc(cfg, builder, g.Logger))

	g.Logger.Info("Starting watch mode", slog.String("root", cfg.Root), slog.String("dest", cfg.Dest))
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	g.Logger.Info("Watch mode stopped")
	return nil
}

// passFunc rediscovers manifests before every pass so new files are picked
// up. A non-nil changed slice limits the pass to those manifests.
func passFunc(cfg *config.Config, builder *build.Builder, logger *slog.Logger) watch.PassFunc {
	return func(ctx context.Context, bc incremental.BuildContext, changed []string) error {
		manifests, err := discoverManifests(cfg)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "manifest discovery failed").Build()
		}
		if changed != nil {
			manifests = onlyChanged(manifests, changed)
			if len(manifests) == 0 {
				logger.Info("Changed manifests are gone, nothing to build", slog.Int("changed", len(changed)))
				return nil
			}
		}
		result, err := builder.Run(ctx, bc, manifests)
		if err != nil {
			return err
		}
		logger.Info("Pass complete",
			logfields.PassID(result.PassID),
			slog.String("mode", result.Mode.String()),
			slog.String("status", string(result.Status())),
			slog.Int("written", result.Written),
			slog.Int("unchanged", result.Unchanged),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed),
			logfields.DurationMS(float64(result.Duration.Milliseconds())))
		return nil
	}
}

// onlyChanged keeps the discovered manifests listed in changed, so deleted
// files and paths outside the patterns drop out.
func onlyChanged(manifests, changed []string) []string {
	keep := sets.New(changed...)
	var out []string
	for _, m := range manifests {
		if keep.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// newSink returns the log sink, fanned out to NATS when events.nats_url is set.
func newSink(cfg *config.Config, logger *slog.Logger) (events.Sink, func(), error) {
	logSink := events.NewLogSink(logger)
	if cfg.Events.NATSURL == "" {
		return logSink, func() {}, nil
	}

	natsSink, err := events.ConnectNATS(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Publishing file events to NATS", slog.String("subject", cfg.Events.Subject))
	return events.Multi{logSink, natsSink}, func() {
		if err := natsSink.Close(); err != nil {
			logger.Warn("Failed to close NATS connection", logfields.Error(err))
		}
	}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

