// Package watch runs build passes when manifests, templates, partials,
// assets or page sources change on disk.
//
// Events are classified and coalesced for a debounce window. A pass is
// full over every manifest when a template, partial or asset changed, and
// full over just the changed manifests when nothing else did. Otherwise it
// carries the changed source identifiers in its ChangedSet. Passes never
// overlap: changes arriving during a pass are collected for the next one,
// and events keep draining while a pass runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/incremental"
	"git.home.luguber.info/inful/pagefactory/internal/logfields"
	"git.home.luguber.info/inful/pagefactory/internal/util/sets"
)

// PassFunc runs one build pass. A nil manifests slice means every manifest.
type PassFunc func(ctx context.Context, bc incremental.BuildContext, manifests []string) error

type batch struct {
	bc        incremental.BuildContext
	manifests []string
}

// Options configures a Watcher.
type Options struct {
	Classifier Classifier
	// Debounce is the quiet window before a pass starts.
	Debounce time.Duration
	// FullRebuildEvery schedules periodic full passes; 0 disables them.
	FullRebuildEvery time.Duration
	// Viewing flags applied to source-change passes.
	ViewingUpdate          bool
	ViewingUpdateTemplates bool
}

// Watcher turns filesystem events into build passes.
type Watcher struct {
	opts   Options
	pass   PassFunc
	logger *slog.Logger

	mu        sync.Mutex
	full      bool
	changed   sets.Set[string]
	manifests sets.Set[string]
	timer     *time.Timer

	ready chan struct{}
}

// New creates a watcher that calls pass for every coalesced batch.
func New(opts Options, pass PassFunc) *Watcher {
	return &Watcher{
		opts:      opts,
		pass:      pass,
		logger:    slog.Default().With(logfields.Component("watch")),
		changed:   sets.New[string](),
		manifests: sets.New[string](),
		ready:     make(chan struct{}, 1),
	}
}

// Run performs the first full pass, then watches until ctx is done. An
// in-flight pass is waited for before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return foundationerrors.WatchError("fsnotify").WithCause(err).Build()
	}
	defer func() { _ = fsw.Close() }()

	for _, dir := range w.opts.Classifier.Dirs() {
		if err := addDirsRecursive(fsw, dir); err != nil {
			return err
		}
	}

	if w.opts.FullRebuildEvery > 0 {
		sched, err := w.schedule()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
	}

	var (
		running  bool
		pending  bool
		finished = make(chan struct{}, 1)
	)
	start := func(b batch) {
		running = true
		go func() {
			w.runPass(ctx, b)
			finished <- struct{}{}
		}()
	}
	stop := func() error {
		w.stopTimer()
		if running {
			<-finished
		}
		return nil
	}

	start(batch{bc: incremental.Full()})
	w.logger.Info("Watching for changes", slog.Int("dirs", len(fsw.WatchList())))

	for {
		select {
		case <-ctx.Done():
			return stop()
		case ev, ok := <-fsw.Events:
			if !ok {
				return stop()
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return stop()
			}
			w.handleError(err)
		case <-w.ready:
			if running {
				pending = true
				continue
			}
			if b, ok := w.take(); ok {
				start(b)
			}
		case <-finished:
			running = false
			if pending {
				pending = false
				if b, ok := w.take(); ok {
					start(b)
				}
			}
		}
	}
}

// handleError logs a watcher error. A queue overflow loses events, so it
// schedules a full pass.
func (w *Watcher) handleError(err error) {
	overflow := errors.Is(err, fsnotify.ErrEventOverflow)
	classified := foundationerrors.WatchError("watcher error").
		WithCause(err).
		Warning().
		WithContext("overflow", overflow).
		Build()
	w.logger.LogAttrs(context.Background(), slog.LevelWarn, classified.Message(),
		append(classified.LogAttrs(), logfields.Error(err))...)
	if overflow {
		w.RequestFull()
	}
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, foundationerrors.WatchError("failed to create gocron scheduler").WithCause(err).Build()
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.opts.FullRebuildEvery),
		gocron.NewTask(w.RequestFull),
		gocron.WithName("full-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, foundationerrors.WatchError("failed to create periodic full rebuild job").WithCause(err).Build()
	}
	return sched, nil
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fsw, ev.Name)
			return
		}
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	w.Notify(ev.Name)
}

// Notify records a change to path and restarts the debounce window.
func (w *Watcher) Notify(path string) {
	kind, id := w.opts.Classifier.Classify(path)
	if kind == KindIgnored {
		return
	}
	w.logger.Debug("File change detected", slog.String("path", path), slog.String("kind", kind.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case kind == KindManifest:
		w.manifests.Add(id)
	case kind.Full():
		w.full = true
	default:
		w.changed.Add(id)
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.signal)
}

// RequestFull schedules a full pass without waiting for the debounce window.
func (w *Watcher) RequestFull() {
	w.mu.Lock()
	w.full = true
	w.mu.Unlock()
	w.signal()
}

func (w *Watcher) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// take drains the pending changes into a batch. ok is false when nothing is
// pending.
func (w *Watcher) take() (batch, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.full && w.changed.Len() == 0 && w.manifests.Len() == 0 {
		return batch{}, false
	}
	var b batch
	switch {
	case w.full:
	case w.changed.Len() == 0:
		b.manifests = sets.Sorted(w.manifests)
	case w.manifests.Len() == 0:
		b.bc = incremental.BuildContext{
			ViewingUpdate:          w.opts.ViewingUpdate,
			ViewingUpdateTemplates: w.opts.ViewingUpdateTemplates,
			Changed:                incremental.NewChangedSet(sets.Sorted(w.changed)...),
		}
	}
	w.full = false
	w.changed = sets.New[string]()
	w.manifests = sets.New[string]()
	return b, true
}

func (w *Watcher) runPass(ctx context.Context, b batch) {
	if err := w.pass(ctx, b.bc, b.manifests); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("Build pass failed", logfields.Error(err))
	}
}

func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("watch directory does not exist", slog.String("dir", root))
			return nil
		}
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldIgnore(path) {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				slog.Warn("watch add failed", slog.String("dir", path), logfields.Error(err))
			}
		}
		return nil
	})
}
