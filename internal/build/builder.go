package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/events"
	"git.home.luguber.info/inful/pagefactory/internal/incremental"
	"git.home.luguber.info/inful/pagefactory/internal/inject"
	"git.home.luguber.info/inful/pagefactory/internal/logfields"
	"git.home.luguber.info/inful/pagefactory/internal/manifest"
	"git.home.luguber.info/inful/pagefactory/internal/metrics"
	"git.home.luguber.info/inful/pagefactory/internal/output"
	"git.home.luguber.info/inful/pagefactory/internal/postprocess"
	"git.home.luguber.info/inful/pagefactory/internal/render"
)

// DefaultManifestConcurrency is the number of manifests processed at once.
const DefaultManifestConcurrency = 2

// Options configures a Builder. Paths are used as given; callers resolve
// them before constructing the builder.
type Options struct {
	// TemplateRoot holds template sources, addressed as <root>/<key><TemplateExt>.
	TemplateRoot string
	// Dest is the output root pages are written under.
	Dest string
	// PublicRoot is the base of the page's RootPath member.
	PublicRoot  string
	TemplateExt string
	OutputExt   string
	Marker      string
	// Concurrency bounds the pages rendered at once across all manifests.
	Concurrency int
	// ManifestConcurrency bounds the manifests processed at once.
	ManifestConcurrency int
	DryRun              bool
}

// Builder runs passes. A Builder is safe for sequential reuse; passes must
// not overlap.
type Builder struct {
	opts     Options
	fs       afero.Fs
	invoker  *render.Invoker
	chain    *postprocess.Chain
	sink     events.Sink
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewBuilder creates a builder reading and writing through fsys.
func NewBuilder(fsys afero.Fs, opts Options, invoker *render.Invoker, chain *postprocess.Chain) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.ManifestConcurrency <= 0 {
		opts.ManifestConcurrency = DefaultManifestConcurrency
	}
	if opts.TemplateExt == "" {
		opts.TemplateExt = ".tmpl"
	}
	if opts.OutputExt == "" {
		opts.OutputExt = ".html"
	}
	if opts.PublicRoot == "" {
		opts.PublicRoot = opts.Dest
	}
	if chain == nil {
		chain = postprocess.NewChainOf()
	}
	return &Builder{
		opts:     opts,
		fs:       fsys,
		invoker:  invoker,
		chain:    chain,
		sink:     events.NewLogSink(nil),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithSink sets the error and file event sink.
func (b *Builder) WithSink(s events.Sink) *Builder {
	if s != nil {
		b.sink = s
	}
	return b
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithLogger sets the logger used for pass summaries.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// pass holds the state shared by the tasks of one Run.
type pass struct {
	bc     incremental.BuildContext
	result *PassResult
	writer *output.Writer
	pages  errgroup.Group
}

// Run executes one pass over the given manifest files. Manifest, template
// and page failures are recorded in the result, not returned. The error is
// non-nil only when ctx was cancelled before the pass completed; the result
// is valid in that case too.
func (b *Builder) Run(ctx context.Context, bc incremental.BuildContext, manifests []string) (*PassResult, error) {
	start := time.Now()
	p := &pass{
		bc: bc,
		result: &PassResult{
			PassID:    uuid.NewString(),
			Mode:      bc.Mode(),
			StartTime: start,
		},
	}
	ctx = events.WithPassID(ctx, p.result.PassID)
	p.writer = output.NewWriter(b.fs, output.WithNotifier(b.sink), output.WithDryRun(b.opts.DryRun))
	p.pages.SetLimit(b.opts.Concurrency)
	b.recorder.SetRenderConcurrency(b.opts.Concurrency)

	b.logger.Debug("Build pass started",
		logfields.PassID(p.result.PassID),
		slog.String("mode", p.result.Mode.String()),
		slog.Int("manifests", len(manifests)),
		slog.Int("changed", bc.Changed.Len()))

	var group errgroup.Group
	group.SetLimit(b.opts.ManifestConcurrency)
	for _, path := range manifests {
		group.Go(func() error {
			b.runManifest(ctx, p, path)
			return nil
		})
	}
	_ = group.Wait()
	_ = p.pages.Wait()

	res := p.result
	res.finish(start)
	b.recorder.ObservePassDuration(res.Mode.String(), res.Duration)
	b.recorder.IncPassOutcome(string(res.Status()))

	b.logger.Info("Build pass completed",
		logfields.PassID(res.PassID),
		slog.String("mode", res.Mode.String()),
		slog.String("status", string(res.Status())),
		slog.Int("written", res.Written),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("build pass interrupted: %w", err)
	}
	return res, nil
}

func (b *Builder) runManifest(ctx context.Context, p *pass, path string) {
	p.result.addManifest()

	m, err := manifest.Load(b.fs, path)
	if err != nil {
		b.recorder.IncManifestResult(false)
		b.fail(ctx, p, Failure{Manifest: path, Stage: StageManifest, Err: err}, 0)
		return
	}
	b.recorder.IncManifestResult(true)

	for _, group := range m.Groups {
		b.runTemplate(ctx, p, path, group)
	}
}

func (b *Builder) runTemplate(ctx context.Context, p *pass, manifestPath string, group manifest.PageGroup) {
	if group.Err != nil {
		b.fail(ctx, p, Failure{Manifest: manifestPath, Template: group.Template, Stage: StageTemplate, Err: group.Err}, 0)
		return
	}

	included := make([]manifest.Page, 0, len(group.Pages))
	for _, page := range group.Pages {
		if !p.bc.Include(incremental.SourceID(page.Key, b.opts.TemplateExt)) {
			b.skip(p, 1)
			continue
		}
		if page.Err != nil {
			b.fail(ctx, p, Failure{
				Manifest: manifestPath,
				Template: group.Template,
				Page:     page.Key,
				Stage:    StageVariables,
				Err:      page.Err,
			}, 1)
			continue
		}
		included = append(included, page)
	}
	if len(included) == 0 {
		return
	}

	tpl, err := b.loadTemplate(group.Template)
	if err != nil {
		b.fail(ctx, p, Failure{Manifest: manifestPath, Template: group.Template, Stage: StageTemplate, Err: err}, len(included))
		return
	}

	for _, page := range included {
		if ctx.Err() != nil {
			b.skip(p, 1)
			continue
		}
		p.pages.Go(func() error {
			b.runPage(ctx, p, manifestPath, group.Template, tpl, page)
			return nil
		})
	}
}

func (b *Builder) loadTemplate(key string) (*inject.Template, error) {
	path := filepath.Join(b.opts.TemplateRoot, filepath.FromSlash(key)+b.opts.TemplateExt)
	source, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "read template").
			WithContext("path", path).
			Build()
	}
	tpl, err := inject.Split(string(source), b.opts.Marker)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "invalid template").
			WithContext("path", path).
			Build()
	}
	return tpl, nil
}

func (b *Builder) runPage(ctx context.Context, p *pass, manifestPath, templateKey string, tpl *inject.Template, page manifest.Page) {
	if ctx.Err() != nil {
		b.skip(p, 1)
		return
	}
	failure := Failure{Manifest: manifestPath, Template: templateKey, Page: page.Key}

	dest, err := b.destination(page.Key)
	if err != nil {
		failure.Stage, failure.Err = StageWrite, err
		b.fail(ctx, p, failure, 1)
		return
	}
	rootPath, _ := postprocess.RootPrefix(b.opts.PublicRoot, dest)
	info := render.PageInfo{
		Manifest: manifestPath,
		Template: templateKey,
		Key:      page.Key,
		Source:   incremental.SourceID(page.Key, b.opts.TemplateExt),
		Dest:     dest,
		RootPath: rootPath,
	}

	source, err := tpl.Inject(page.Vars, b.invoker.Engine().Declare)
	if err != nil {
		failure.Stage = StageInject
		failure.Err = foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "variable injection failed").Build()
		b.fail(ctx, p, failure, 1)
		return
	}

	started := time.Now()
	out, err := b.invoker.Invoke(ctx, info, source)
	b.recorder.ObserveStageDuration(StageRender, time.Since(started))
	if err != nil {
		failure.Stage, failure.Err = StageRender, err
		b.fail(ctx, p, failure, 1)
		return
	}

	started = time.Now()
	out, err = b.chain.Apply(out, dest)
	b.recorder.ObserveStageDuration(StagePostProcess, time.Since(started))
	if err != nil {
		failure.Stage, failure.Err = StagePostProcess, err
		b.fail(ctx, p, failure, 1)
		return
	}

	started = time.Now()
	written, err := p.writer.WriteIfChanged(ctx, dest, out)
	b.recorder.ObserveStageDuration(StageWrite, time.Since(started))
	if err != nil {
		failure.Stage, failure.Err = StageWrite, err
		b.fail(ctx, p, failure, 1)
		return
	}

	p.result.addWritten(written == output.Written)
	if written == output.Written {
		b.recorder.IncPageResult(metrics.PageWritten)
	} else {
		b.recorder.IncPageResult(metrics.PageUnchanged)
	}
}

// destination maps a page key to its output path, refusing keys that
// resolve outside the destination root.
func (b *Builder) destination(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", foundationerrors.WrapError(ErrEmptyPageKey, foundationerrors.CategoryValidation, "invalid page key").Build()
	}
	root := filepath.Clean(b.opts.Dest)
	dest := filepath.Join(root, filepath.FromSlash(key)+b.opts.OutputExt)
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", foundationerrors.WrapError(ErrDestEscapesRoot, foundationerrors.CategoryValidation, "invalid page key").
			WithContext("page", key).
			Build()
	}
	return dest, nil
}

func (b *Builder) skip(p *pass, n int) {
	p.result.addSkipped(n)
	for range n {
		b.recorder.IncPageResult(metrics.PageSkipped)
	}
}

// fail records a contained failure and reports it to the sink with the
// manifest, template and page it belongs to.
func (b *Builder) fail(ctx context.Context, p *pass, f Failure, failedPages int) {
	f.Err = annotate(f)
	p.result.addFailure(f, failedPages)
	for range failedPages {
		b.recorder.IncPageResult(metrics.PageFailed)
	}
	b.sink.Error(ctx, Component, f.Err)
}

func annotate(f Failure) error {
	classified, ok := foundationerrors.AsClassified(f.Err)
	if !ok {
		classified = foundationerrors.WrapError(f.Err, foundationerrors.CategoryInternal, "build failure").Build()
	}
	for _, kv := range [][2]string{
		{logfields.KeyManifest, f.Manifest},
		{logfields.KeyTemplate, f.Template},
		{logfields.KeyPage, f.Page},
		{logfields.KeyStage, f.Stage},
	} {
		if kv[1] != "" {
			classified = classified.WithContext(kv[0], kv[1])
		}
	}
	return classified
}
