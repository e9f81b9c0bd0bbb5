package converter

import "strings"

// htmlEscaper 顺序很重要：& 必须最先替换，否则会把刚插入的实体再转义一次。
// strings.Replacer 对每个位置只替换一次，效果与依次替换相同。
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes &, < and > for Telegram's HTML parse mode.
// No other characters are modified.
func EscapeHTML(text string) string {
	if text == "" {
		return ""
	}
	return htmlEscaper.Replace(text)
}
