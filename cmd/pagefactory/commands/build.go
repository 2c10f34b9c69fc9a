package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagefactory/internal/build"
	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/incremental"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Changed        []string `help:"Source identifier (relative to src) that changed; repeatable. Enables an incremental pass."`
	ChangedFromGit bool     `name:"changed-from-git" help:"Take the changed set from the git worktree status of src"`
	Strict         bool     `help:"Exit non-zero when any page, template or manifest failed"`
	DryRun         bool     `name:"dry-run" help:"Report what would change without writing"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	bc, err := b.buildContext(cfg.Src)
	if err != nil {
		return err
	}

	builder, err := newBuilder(afero.NewOsFs(), cfg, b.DryRun)
	if err != nil {
		return err
	}
	builder.WithLogger(g.Logger)

	manifests, err := discoverManifests(cfg)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "manifest discovery failed").Build()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := builder.Run(ctx, bc, manifests)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "build interrupted").Build()
	}
	printSummary(os.Stdout, result)

	if b.Strict && result.HasFailures() {
		return foundationerrors.NewError(foundationerrors.CategoryRender, "build pass had failures").
			WithContext("status", string(result.Status())).
			WithContext("failed", result.Failed).
			Build()
	}
	return nil
}

// buildContext returns a full context unless a changed set was requested.
func (b *BuildCmd) buildContext(src string) (incremental.BuildContext, error) {
	if len(b.Changed) == 0 && !b.ChangedFromGit {
		return incremental.Full(), nil
	}

	changed := incremental.NewChangedSet(b.Changed...)
	if b.ChangedFromGit {
		fromGit, err := incremental.ChangedFromGit(src)
		if err != nil {
			return incremental.BuildContext{}, err
		}
		changed = changed.Union(fromGit)
	}
	return incremental.BuildContext{ViewingUpdate: true, Changed: changed}, nil
}

func printSummary(w io.Writer, r *build.PassResult) {
	_, _ = fmt.Fprintf(w, "Pass %s (%s): %s\n", r.PassID, r.Mode, r.Status())
	_, _ = fmt.Fprintf(w, "  manifests: %d (%d failed)\n", r.Manifests, r.ManifestsFailed)
	_, _ = fmt.Fprintf(w, "  pages: %d written, %d unchanged, %d skipped, %d failed\n",
		r.Written, r.Unchanged, r.Skipped, r.Failed)
	for _, f := range r.Failures {
		_, _ = fmt.Fprintf(w, "  ! %s\n", describeFailure(f))
	}
}

func describeFailure(f build.Failure) string {
	where := f.Manifest
	if f.Template != "" {
		where += " " + f.Template
	}
	if f.Page != "" {
		where += "/" + f.Page
	}
	return fmt.Sprintf("[%s] %s: %v", f.Stage, where, f.Err)
}
