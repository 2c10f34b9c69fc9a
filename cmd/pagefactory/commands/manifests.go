package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/manifest"
)

// ManifestsCmd implements the 'manifests' command.
type ManifestsCmd struct {
	Pages bool `help:"Also list the pages of every manifest"`
}

func (m *ManifestsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	paths, err := discoverManifests(cfg)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "manifest discovery failed").Build()
	}

	fsys := afero.NewOsFs()
	for _, p := range paths {
		rel, err := filepath.Rel(cfg.BaseDir, p)
		if err != nil {
			rel = p
		}
		if !m.Pages {
			fmt.Println(rel)
			continue
		}

		parsed, err := manifest.Load(fsys, p)
		if err != nil {
			fmt.Printf("%s: %v\n", rel, err)
			continue
		}
		fmt.Printf("%s (%d pages)\n", rel, parsed.PageCount())
		for _, group := range parsed.Groups {
			if group.Err != nil {
				fmt.Printf("  %s: %v\n", group.Template, group.Err)
				continue
			}
			for _, page := range group.Pages {
				if page.Err != nil {
					fmt.Printf("  %s <- %s: %v\n", page.Key, group.Template, page.Err)
					continue
				}
				fmt.Printf("  %s <- %s\n", page.Key, group.Template)
			}
		}
	}
	return nil
}
