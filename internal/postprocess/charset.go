package postprocess

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

var supportedCharsets = []string{
	"utf-8",
	"shift_jis",
	"euc-jp",
	"iso-2022-jp",
	"euc-kr",
	"gbk",
	"gb18030",
	"big5",
	"windows-1252",
	"iso-8859-2",
	"koi8-r",
}

// Supported lists the charset labels the encoder is tested with. Any other
// WHATWG label known to htmlindex is accepted as well.
func Supported() []string {
	return append([]string(nil), supportedCharsets...)
}

// Charset converts UTF-8 output to another encoding.
type Charset struct {
	label string
	enc   encoding.Encoding
}

// LookupCharset resolves a label. isUTF8 is true for every spelling of UTF-8.
func LookupCharset(label string) (enc encoding.Encoding, isUTF8 bool, err error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return encoding.Nop, true, nil
	}
	enc, err = htmlindex.Get(label)
	if err != nil {
		return nil, false, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "unsupported charset").
			WithContext("charset", label).
			Build()
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, false, fmt.Errorf("charset %q: %w", label, err)
	}
	return enc, name == "utf-8", nil
}

// NewCharset returns the encoder for label, or nil when the output stays UTF-8.
func NewCharset(label string) (*Charset, error) {
	enc, isUTF8, err := LookupCharset(label)
	if err != nil {
		return nil, err
	}
	if isUTF8 {
		return nil, nil
	}
	return &Charset{label: strings.ToLower(strings.TrimSpace(label)), enc: enc}, nil
}

// Name implements Stage.
func (c *Charset) Name() string { return "charset" }

// Apply implements Stage. Runes the target charset cannot represent are an
// error, not replaced.
func (c *Charset) Apply(buf []byte, _ string) ([]byte, error) {
	out, err := c.enc.NewEncoder().Bytes(buf)
	if err != nil {
		return nil, foundationerrors.EncodingError("cannot encode output").
			WithCause(err).
			WithContext("charset", c.label).
			Build()
	}
	return out, nil
}
