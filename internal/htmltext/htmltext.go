// Package htmltext turns Telegram HTML fragments back into plain text.
//
// It is the fallback used when Telegram rejects a chunk's markup: tags are
// dropped, entities decoded, and anchors keep their target as "label (url)".
// The result is never longer than the input, so a chunk that fit the length
// limit as HTML still fits as text.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// ToPlain strips tags from fragment and decodes its entities.
func ToPlain(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	z := html.NewTokenizer(strings.NewReader(fragment))

	var (
		b     strings.Builder
		links []anchor
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF，或片段在标签中间被截断
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			links = append(links, anchor{href: hrefAttr(z, hasAttr), start: b.Len()})
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || len(links) == 0 {
				continue
			}
			a := links[len(links)-1]
			links = links[:len(links)-1]
			label := b.String()[a.start:]
			// " (url)" 总比 <a href="url"></a> 短
			if a.href != "" && label != a.href {
				b.WriteString(" (" + a.href + ")")
			}
		}
	}
}

type anchor struct {
	href  string
	start int
}

func hrefAttr(z *html.Tokenizer, hasAttr bool) string {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "href" {
			return string(val)
		}
	}
	return ""
}
