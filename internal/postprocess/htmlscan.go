package postprocess

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// tagAttr matches one attribute inside the raw bytes of a tag. Every
// attribute is matched so the values of other attributes are consumed and
// never scanned for references.
// Submatches: 1 attribute name, 2 double-quoted, 3 single-quoted, 4 unquoted value.
var tagAttr = regexp.MustCompile(`\s([^\s"'>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+)))?`)

// cssURL matches a url(...) reference in CSS text.
// Submatches: 1 double-quoted, 2 single-quoted, 3 bare reference.
var cssURL = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]+))\s*\)`)

// refAttrs are the attributes whose values are references.
var refAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"action": true,
	"poster": true,
	"data":   true,
	"srcset": true,
}

// rewriteFunc returns the replacement for one reference and whether it changed.
type rewriteFunc func(ref string) (string, bool)

// rewriteRefs applies fn to every reference attribute of every start tag in
// buf, and to CSS url(...) references in style attributes and <style>
// elements. Other text, comments and doctypes are copied unchanged.
func rewriteRefs(buf []byte, fn rewriteFunc) []byte {
	z := html.NewTokenizer(bytes.NewReader(buf))
	out := make([]byte, 0, len(buf))
	consumed := 0
	changed := false

	inStyle := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		consumed += len(raw)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tag, ok := rewriteTag(raw, fn)
			changed = changed || ok
			out = append(out, tag...)
			name, _ := z.TagName()
			inStyle = tt == html.StartTagToken && string(name) == "style"
		case html.TextToken:
			if !inStyle {
				out = append(out, raw...)
				continue
			}
			text, ok := rewriteCSS(string(raw), fn)
			changed = changed || ok
			out = append(out, text...)
		default:
			inStyle = false
			out = append(out, raw...)
		}
	}

	if !changed {
		return buf
	}
	// Bytes the tokenizer could not finish (an unterminated tag at EOF).
	if consumed < len(buf) {
		out = append(out, buf[consumed:]...)
	}
	return out
}

func rewriteTag(raw []byte, fn rewriteFunc) ([]byte, bool) {
	matches := tagAttr.FindAllSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, false
	}

	var out []byte
	last := 0
	changed := false
	for _, m := range matches {
		name := strings.ToLower(string(raw[m[2]:m[3]]))
		if !refAttrs[name] && name != "style" {
			continue
		}
		// The value is whichever of groups 2..4 participated.
		start, end, quoted := -1, -1, 0
		for g := 2; g <= 4; g++ {
			if m[2*g] >= 0 {
				start, end, quoted = m[2*g], m[2*g+1], g
				break
			}
		}
		if start < 0 {
			continue
		}

		value := html.UnescapeString(string(raw[start:end]))
		var replaced string
		var ok bool
		switch name {
		case "srcset":
			replaced, ok = rewriteSrcset(value, fn)
		case "style":
			replaced, ok = rewriteCSS(value, fn)
		default:
			replaced, ok = fn(value)
		}
		if !ok {
			continue
		}

		out = append(out, raw[last:start]...)
		out = append(out, escapeAttr(replaced, quoted)...)
		last = end
		changed = true
	}
	if !changed {
		return raw, false
	}
	return append(out, raw[last:]...), true
}

// rewriteCSS applies fn to every url(...) reference in css, keeping its quotes.
func rewriteCSS(css string, fn rewriteFunc) (string, bool) {
	matches := cssURL.FindAllStringSubmatchIndex(css, -1)
	if len(matches) == 0 {
		return css, false
	}

	var b strings.Builder
	last := 0
	changed := false
	for _, m := range matches {
		for g := 1; g <= 3; g++ {
			start, end := m[2*g], m[2*g+1]
			if start < 0 {
				continue
			}
			replaced, ok := fn(css[start:end])
			if ok {
				b.WriteString(css[last:start])
				b.WriteString(replaced)
				last = end
				changed = true
			}
			break
		}
	}
	if !changed {
		return css, false
	}
	b.WriteString(css[last:])
	return b.String(), true
}

// rewriteSrcset applies fn to the URL of each image candidate.
func rewriteSrcset(value string, fn rewriteFunc) (string, bool) {
	candidates := strings.Split(value, ",")
	changed := false
	for i, c := range candidates {
		trimmed := strings.TrimSpace(c)
		url, descriptor, _ := strings.Cut(trimmed, " ")
		replaced, ok := fn(url)
		if !ok {
			continue
		}
		changed = true
		lead := c[:len(c)-len(strings.TrimLeft(c, " \t\n"))]
		if descriptor != "" {
			candidates[i] = lead + replaced + " " + descriptor
		} else {
			candidates[i] = lead + replaced
		}
	}
	return strings.Join(candidates, ","), changed
}

var (
	doubleQuotedEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&#34;")
	singleQuotedEscaper = strings.NewReplacer(`&`, "&amp;", `'`, "&#39;")
	unquotedEscaper     = strings.NewReplacer(`&`, "&amp;", `"`, "&#34;", `'`, "&#39;")
)

// escapeAttr escapes s for the quoting of the value it replaces: group 2 of
// tagAttr is double-quoted, 3 single-quoted, 4 unquoted.
func escapeAttr(s string, group int) string {
	switch group {
	case 2:
		return doubleQuotedEscaper.Replace(s)
	case 3:
		return singleQuotedEscaper.Replace(s)
	default:
		return unquotedEscaper.Replace(s)
	}
}

// splitRef separates the path of a reference from its query and fragment.
func splitRef(ref string) (path, query, fragment string) {
	path = ref
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path, fragment = path[:i], path[i+1:]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i+1:]
	}
	return path, query, fragment
}

func joinRef(path, query, fragment string) string {
	var b strings.Builder
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	if fragment != "" {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String()
}

// hasScheme reports whether ref starts with a URL scheme such as https: or mailto:.
func hasScheme(ref string) bool {
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c == ':':
			return i > 0
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}
