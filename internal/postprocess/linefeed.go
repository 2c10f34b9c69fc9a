package postprocess

import (
	"bytes"

	"git.home.luguber.info/inful/pagefactory/internal/foundation/normalization"
)

// LineFeedMode selects the line terminator written to output files.
type LineFeedMode string

const (
	LineFeedLF   LineFeedMode = "lf"
	LineFeedCRLF LineFeedMode = "crlf"
	LineFeedCR   LineFeedMode = "cr"
	LineFeedKeep LineFeedMode = "keep"
)

var lineFeedModes = normalization.NewNormalizer("line_feed", map[string]LineFeedMode{
	"lf":   LineFeedLF,
	"crlf": LineFeedCRLF,
	"cr":   LineFeedCR,
	"keep": LineFeedKeep,
}, LineFeedLF)

// NormalizeLineFeed resolves a configured line-feed mode.
func NormalizeLineFeed(mode string) (LineFeedMode, error) {
	return lineFeedModes.NormalizeWithError(mode)
}

// LineFeed rewrites every CRLF, CR and LF to one terminator.
type LineFeed struct {
	eol []byte
}

// NewLineFeed returns the normalizer for mode, or nil for keep.
func NewLineFeed(mode string) (*LineFeed, error) {
	m, err := NormalizeLineFeed(mode)
	if err != nil {
		return nil, err
	}
	switch m {
	case LineFeedCRLF:
		return &LineFeed{eol: []byte("\r\n")}, nil
	case LineFeedCR:
		return &LineFeed{eol: []byte("\r")}, nil
	case LineFeedKeep:
		return nil, nil
	default:
		return &LineFeed{eol: []byte("\n")}, nil
	}
}

// Name implements Stage.
func (l *LineFeed) Name() string { return "line_feed" }

// Apply implements Stage.
func (l *LineFeed) Apply(buf []byte, _ string) ([]byte, error) {
	if !bytes.ContainsAny(buf, "\r\n") {
		return buf, nil
	}
	lf := bytes.ReplaceAll(buf, []byte("\r\n"), []byte("\n"))
	lf = bytes.ReplaceAll(lf, []byte("\r"), []byte("\n"))
	if l.eol[0] == '\n' {
		return lf, nil
	}
	return bytes.ReplaceAll(lf, []byte("\n"), l.eol), nil
}
