package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// envFiles are read in order; earlier files win because existing variables
// are never overridden.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the env files present in dir. The process environment
// takes precedence over file values.
func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "stat env file").
				WithContext("path", path).
				Build()
		}
		if err := godotenv.Load(path); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load env file").
				WithContext("path", path).
				Build()
		}
	}
	return nil
}
