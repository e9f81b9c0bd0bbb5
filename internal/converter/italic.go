package converter

import "strings"

// replaceItalic wraps delim-delimited spans in <i>. The content may not
// contain delim, '\n' or '<' (a '<' means we would run into a tag inserted
// by an earlier stage). The opening delimiter must not follow an ASCII word
// character and the closing one must not precede one, so snake_case and
// 2*3*4 stay as they are.
//
// RE2 has no lookaround, so this is a hand scanner. Scanning bytes is safe:
// every byte of a multi-byte UTF-8 sequence is >= 0x80 and never equals an
// ASCII delimiter.
func replaceItalic(s string, delim byte) string {
	if strings.IndexByte(s, delim) < 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] != delim {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		j := i + 1
		for j < len(s) && s[j] != delim && s[j] != '\n' && s[j] != '<' {
			j++
		}
		if j == i+1 || j >= len(s) || s[j] != delim {
			continue
		}
		if j+1 < len(s) && isWordByte(s[j+1]) {
			continue
		}
		if last == 0 {
			b.Grow(len(s) + 16)
		}
		b.WriteString(s[last:i])
		b.WriteString("<i>")
		b.WriteString(s[i+1 : j])
		b.WriteString("</i>")
		last = j + 1
		i = j
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// isWordByte matches the ASCII \w class: [A-Za-z0-9_].
func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
