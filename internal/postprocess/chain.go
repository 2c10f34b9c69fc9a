// Package postprocess transforms rendered page output before it is written:
// relative-path rewriting, cache-busting, line-ending normalization and
// character-encoding conversion, applied in that order.
package postprocess

import (
	"fmt"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// Stage is one post-processing step. dest is the absolute destination path
// of the page the buffer belongs to.
type Stage interface {
	Name() string
	Apply(buf []byte, dest string) ([]byte, error)
}

// Config selects and configures the stages of a Chain.
type Config struct {
	// Fs is used to read assets referenced by cache-busted links.
	Fs afero.Fs
	// PublicRoot is the directory root-relative references resolve against.
	PublicRoot string
	// RelativePath enables rewriting of root-relative references.
	RelativePath bool
	// CacheBusterExts lists asset extensions that receive a version token.
	CacheBusterExts []string
	// LineFeed is one of lf, crlf, cr or keep. Empty means lf.
	LineFeed string
	// Charset is the output encoding label. Empty means utf-8.
	Charset string
	// DigestCacheSize bounds the cache-buster digest cache.
	DigestCacheSize int
}

// Chain applies its stages in order. A Chain is safe for concurrent use.
type Chain struct {
	stages []Stage
}

// NewChain builds the chain described by cfg. Unknown line-feed modes and
// charsets are rejected here rather than per page.
func NewChain(cfg Config) (*Chain, error) {
	var stages []Stage

	if cfg.RelativePath {
		stages = append(stages, NewRelativePath(cfg.PublicRoot))
	}
	if len(cfg.CacheBusterExts) > 0 {
		cb, err := NewCacheBuster(cfg.Fs, cfg.PublicRoot, cfg.CacheBusterExts, cfg.DigestCacheSize)
		if err != nil {
			return nil, err
		}
		stages = append(stages, cb)
	}

	lf, err := NewLineFeed(cfg.LineFeed)
	if err != nil {
		return nil, err
	}
	if lf != nil {
		stages = append(stages, lf)
	}

	enc, err := NewCharset(cfg.Charset)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		stages = append(stages, enc)
	}

	return &Chain{stages: stages}, nil
}

// NewChainOf builds a chain from explicit stages.
func NewChainOf(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Stages returns the stage names in application order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Apply runs every stage over buf. Failures are classified errors carrying
// the stage name and destination.
func (c *Chain) Apply(buf []byte, dest string) ([]byte, error) {
	var err error
	for _, stage := range c.stages {
		buf, err = stage.Apply(buf, dest)
		if err != nil {
			if classified, ok := foundationerrors.AsClassified(err); ok {
				return nil, classified.WithContext("stage", stage.Name()).WithContext("dest", dest)
			}
			return nil, foundationerrors.PostProcessError(fmt.Sprintf("%s failed", stage.Name())).
				WithCause(err).
				WithContext("stage", stage.Name()).
				WithContext("dest", dest).
				Build()
		}
	}
	return buf, nil
}
