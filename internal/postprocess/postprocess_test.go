package postprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

func TestRootPrefix(t *testing.T) {
	tests := []struct {
		dest   string
		prefix string
		ok     bool
	}{
		{"/out/index.html", "./", true},
		{"/out/a/index.html", "../", true},
		{"/out/a/b/index.html", "../../", true},
		{"/elsewhere/index.html", "", false},
		{"/index.html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			prefix, ok := RootPrefix("/out", tt.dest)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestRelativePath(t *testing.T) {
	r := NewRelativePath("/out")
	in := `<html><head><link rel="stylesheet" href="/assets/app.css"></head>` +
		`<body><a href="//cdn.example.com/x.js">cdn</a><a href="https://example.com/">abs</a>` +
		`<a HREF='/docs/?q=1#top'>docs</a><img src=/img/a.png alt="/not/a/ref">` +
		`<img srcset="/a.png 1x, /b.png 2x"><form action="/search"></form>` +
		`<p>see /assets/app.css</p><a href="rel/page.html">rel</a></body></html>`

	out, err := r.Apply([]byte(in), "/out/a/b/index.html")
	require.NoError(t, err)

	want := `<html><head><link rel="stylesheet" href="../../assets/app.css"></head>` +
		`<body><a href="//cdn.example.com/x.js">cdn</a><a href="https://example.com/">abs</a>` +
		`<a HREF='../../docs/?q=1#top'>docs</a><img src=../../img/a.png alt="/not/a/ref">` +
		`<img srcset="../../a.png 1x, ../../b.png 2x"><form action="../../search"></form>` +
		`<p>see /assets/app.css</p><a href="rel/page.html">rel</a></body></html>`
	assert.Equal(t, want, string(out))
}

func TestRelativePath_OnlyRewritesReferenceAttributes(t *testing.T) {
	r := NewRelativePath("/out")
	in := `<img alt='see src="/a.png" here' src="/b.png" title="href=/c">` +
		`<a data-x='href="/d"' href="/e">e</a><input disabled src=/f.png />`

	out, err := r.Apply([]byte(in), "/out/a/b/index.html")
	require.NoError(t, err)

	want := `<img alt='see src="/a.png" here' src="../../b.png" title="href=/c">` +
		`<a data-x='href="/d"' href="../../e">e</a><input disabled src=../../f.png />`
	assert.Equal(t, want, string(out))
}

func TestRelativePath_CSSURLs(t *testing.T) {
	r := NewRelativePath("/out")
	in := `<style>body{background:url("/img/bg.png")} .a{background:url( /img/a.png )}` +
		` .b{background:url(//cdn.example.com/b.png)}</style>` +
		`<div style="background:url('/img/c.png')">url(/not/css)</div>`

	out, err := r.Apply([]byte(in), "/out/a/index.html")
	require.NoError(t, err)

	want := `<style>body{background:url("../img/bg.png")} .a{background:url( ../img/a.png )}` +
		` .b{background:url(//cdn.example.com/b.png)}</style>` +
		`<div style="background:url('../img/c.png')">url(/not/css)</div>`
	assert.Equal(t, want, string(out))
}

func TestRelativePath_RootPage(t *testing.T) {
	r := NewRelativePath("/out")
	out, err := r.Apply([]byte(`<link href="/assets/app.css"><a href="/">home</a>`), "/out/index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="./assets/app.css"><a href="./">home</a>`, string(out))
}

func TestRelativePath_LeavesScriptsAndForeignPages(t *testing.T) {
	r := NewRelativePath("/out")

	script := `<script>var s = '<a href="/x">';</script>`
	out, err := r.Apply([]byte(script), "/out/a/index.html")
	require.NoError(t, err)
	assert.Equal(t, script, string(out))

	page := `<a href="/x">x</a>`
	out, err = r.Apply([]byte(page), "/elsewhere/index.html")
	require.NoError(t, err)
	assert.Equal(t, page, string(out))
}

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:TokenLength]
}

func TestCacheBuster(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/assets/app.css", []byte("body{}"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/out/js/app.js", []byte("run()"), 0o644))

	cb, err := NewCacheBuster(fsys, "/out", []string{"css", ".JS"}, 0)
	require.NoError(t, err)

	in := `<link href="/assets/app.css?v=old&amp;x=1"><script src="js/app.js"></script>` +
		`<link href="/missing.css"><img src="/assets/logo.png">`
	out, err := cb.Apply([]byte(in), "/out/index.html")
	require.NoError(t, err)

	want := `<link href="/assets/app.css?x=1&amp;v=` + digest("body{}") + `">` +
		`<script src="js/app.js?v=` + digest("run()") + `"></script>` +
		`<link href="/missing.css"><img src="/assets/logo.png">`
	assert.Equal(t, want, string(out))

	again, err := cb.Apply([]byte(in), "/out/index.html")
	require.NoError(t, err)
	assert.Equal(t, want, string(again), "identical assets produce identical output")

	require.NoError(t, afero.WriteFile(fsys, "/out/assets/app.css", []byte("body{color:red}"), 0o644))
	changed, err := cb.Apply([]byte(`<link href="/assets/app.css">`), "/out/index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="/assets/app.css?v=`+digest("body{color:red}")+`">`, string(changed))
}

func TestCacheBuster_IgnoresOtherAttributesAndBustsCSS(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/app.css", []byte("body{}"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/out/bg.css", []byte("x"), 0o644))

	cb, err := NewCacheBuster(fsys, "/out", []string{"css"}, 0)
	require.NoError(t, err)

	in := `<link title='href="/app.css"' href="/app.css"><style>@import url("/bg.css");</style>`
	out, err := cb.Apply([]byte(in), "/out/index.html")
	require.NoError(t, err)

	want := `<link title='href="/app.css"' href="/app.css?v=` + digest("body{}") + `">` +
		`<style>@import url("/bg.css?v=` + digest("x") + `");</style>`
	assert.Equal(t, want, string(out))
}

func TestWithVersion(t *testing.T) {
	assert.Equal(t, "v=abc", withVersion("", "abc"))
	assert.Equal(t, "a=1&b=2&v=abc", withVersion("a=1&v=old&b=2", "abc"))
	assert.Equal(t, "v=abc", withVersion("v", "abc"))
}

func TestLineFeed(t *testing.T) {
	in := []byte("a\r\nb\rc\nd")

	tests := []struct {
		mode string
		want string
	}{
		{"", "a\nb\nc\nd"},
		{"lf", "a\nb\nc\nd"},
		{"CRLF", "a\r\nb\r\nc\r\nd"},
		{"cr", "a\rb\rc\rd"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			lf, err := NewLineFeed(tt.mode)
			require.NoError(t, err)
			out, err := lf.Apply(in, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}

	keep, err := NewLineFeed("keep")
	require.NoError(t, err)
	assert.Nil(t, keep)

	_, err = NewLineFeed("unix")
	require.Error(t, err)
}

func TestCharset_RoundTrip(t *testing.T) {
	samples := map[string]string{
		"shift_jis":    "日本語のページ",
		"euc-jp":       "日本語のページ",
		"iso-2022-jp":  "日本語のページ",
		"euc-kr":       "한국어",
		"gbk":          "中文页面",
		"gb18030":      "中文页面",
		"big5":         "中文頁面",
		"windows-1252": "café",
		"iso-8859-2":   "zażółć",
		"koi8-r":       "страница",
		"utf-8":        "日本語 café",
	}

	for _, label := range Supported() {
		t.Run(label, func(t *testing.T) {
			enc, _, err := LookupCharset(label)
			require.NoError(t, err)

			text := "<p>Hello, world 123</p>\n" + samples[label]
			encoded, err := enc.NewEncoder().Bytes([]byte(text))
			require.NoError(t, err)
			decoded, err := enc.NewDecoder().Bytes(encoded)
			require.NoError(t, err)
			assert.Equal(t, text, string(decoded))
		})
	}
}

func TestCharset(t *testing.T) {
	utf8, err := NewCharset("utf8")
	require.NoError(t, err)
	assert.Nil(t, utf8)

	sjis, err := NewCharset("Shift_JIS")
	require.NoError(t, err)
	out, err := sjis.Apply([]byte("日本"), "")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x93, 0xfa, 0x96, 0x7b}, out)

	latin, err := NewCharset("windows-1252")
	require.NoError(t, err)
	_, err = latin.Apply([]byte("日本"), "")
	require.Error(t, err)
	classified, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryEncoding, classified.Category())
	assert.Equal(t, foundationerrors.RetryUserAction, classified.RetryStrategy())
	label, _ := classified.Context().GetString("charset")
	assert.Equal(t, "windows-1252", label)

	_, err = NewCharset("klingon")
	require.Error(t, err)
}

func TestChain(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/assets/app.css", []byte("body{}"), 0o644))

	chain, err := NewChain(Config{
		Fs:              fsys,
		PublicRoot:      "/out",
		RelativePath:    true,
		CacheBusterExts: []string{"css"},
		LineFeed:        "crlf",
		Charset:         "shift_jis",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"relative_path", "cache_buster", "line_feed", "charset"}, chain.Stages())

	out, err := chain.Apply([]byte("<link href=\"/assets/app.css\">\n"), "/out/a/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<link href=\"../assets/app.css?v="+digest("body{}")+"\">\r\n", string(out))

	_, err = chain.Apply([]byte("\U0001F600"), "/out/a/index.html")
	require.Error(t, err)
	classified, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryEncoding, classified.Category())
	stage, _ := classified.Context().GetString("stage")
	assert.Equal(t, "charset", stage)
}

func TestChain_Defaults(t *testing.T) {
	chain, err := NewChain(Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"line_feed"}, chain.Stages())
}

type failingStage struct{}

func (failingStage) Name() string { return "failing" }
func (failingStage) Apply([]byte, string) ([]byte, error) {
	return nil, assert.AnError
}

func TestChain_ClassifiesPlainErrors(t *testing.T) {
	_, err := NewChainOf(failingStage{}).Apply([]byte("x"), "/out/x.html")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryPostProcess))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, foundationerrors.SeverityError, foundationerrors.GetSeverity(err))
	assert.Contains(t, err.Error(), "failing failed")
}
