package tghtml

import "github.com/riverfjs/tghtml/internal/converter"

// EscapeHTML replaces & with &amp;, < with &lt; and > with &gt;.
// Empty input yields an empty string; no other characters are modified.
func EscapeHTML(text string) string {
	return converter.EscapeHTML(text)
}
