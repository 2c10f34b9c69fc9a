package manifest

import (
	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// Load reads and parses the manifest at path.
func Load(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryManifest, "read manifest").
			WithContext("manifest", path).
			Build()
	}

	m, err := Parse(data)
	if err != nil {
		if classified, ok := foundationerrors.AsClassified(err); ok {
			return nil, classified.WithContext("manifest", path)
		}
		return nil, err
	}
	return m, nil
}
