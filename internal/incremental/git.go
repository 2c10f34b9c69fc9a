package incremental

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// ChangedFromGit returns the modified, added and untracked files of the git
// worktree containing srcDir, as identifiers relative to srcDir. Files
// outside srcDir are ignored.
func ChangedFromGit(srcDir string) (ChangedSet, error) {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return ChangedSet{}, fmt.Errorf("resolve src dir: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absSrc, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ChangedSet{}, foundationerrors.WrapError(err, foundationerrors.CategoryNotFound, "open git repository").
			WithContext("src", absSrc).
			Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ChangedSet{}, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to get git worktree").Build()
	}
	status, err := wt.Status()
	if err != nil {
		return ChangedSet{}, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to get git status").Build()
	}

	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return ChangedSet{}, fmt.Errorf("resolve worktree root: %w", err)
	}

	var ids []string
	for file, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		rel, err := filepath.Rel(absSrc, filepath.Join(root, filepath.FromSlash(file)))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ids = append(ids, rel)
	}
	return NewChangedSet(ids...), nil
}
