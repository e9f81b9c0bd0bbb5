package converter

import (
	"regexp"
	"strings"
)

var (
	// 已有的受支持标签（可带属性），原样保留
	allowedTagRe = regexp.MustCompile(`<(/?(b|i|s|u|code|pre|a)\b[^>]*)>`)

	// ```lang\n ... ``` 围栏代码块
	fencedCodeRe = regexp.MustCompile("```\\w*\\n([\\s\\S]*?)```")

	// `...` 行内代码，不跨行
	inlineCodeRe = regexp.MustCompile("`([^`\\n]+)`")

	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldStarRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__(.+?)__`)
	strikeRe      = regexp.MustCompile(`~~(.+?)~~`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+)$`)
	bulletRe      = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Stage is one rewriting pass over a Document.
type Stage struct {
	Name  string
	Apply func(d *Document)
}

// Pipeline lists the stages in the order they must run. The protection
// stages come before EscapeText, and EscapeText comes before any stage that
// inserts markup.
var Pipeline = []Stage{
	{Name: "protect_tags", Apply: ProtectTags},
	{Name: "fenced_code", Apply: ExtractFencedCode},
	{Name: "inline_code", Apply: ExtractInlineCode},
	{Name: "escape", Apply: EscapeText},
	{Name: "links", Apply: ConvertLinks},
	{Name: "bold", Apply: ConvertBold},
	{Name: "italic", Apply: ConvertItalic},
	{Name: "strikethrough", Apply: ConvertStrikethrough},
	{Name: "headings", Apply: ConvertHeadings},
	{Name: "bullets", Apply: ConvertBullets},
	{Name: "restore", Apply: Restore},
}

// Transcode runs every stage of Pipeline over markdown.
func Transcode(markdown string) string {
	if markdown == "" {
		return ""
	}
	d := NewDocument(markdown)
	for _, stage := range Pipeline {
		stage.Apply(d)
	}
	return d.Text
}

// ProtectTags replaces pre-existing allowed tags with tokens.
func ProtectTags(d *Document) {
	d.Text = allowedTagRe.ReplaceAllStringFunc(d.Text, func(tag string) string {
		return d.Protect(tag, tag)
	})
}

// ExtractFencedCode turns fenced code blocks into protected <pre> elements.
func ExtractFencedCode(d *Document) {
	d.Text = replaceSubmatches(fencedCodeRe, d.Text, func(m []string) string {
		code := strings.TrimSuffix(d.ExpandRaw(m[1]), "\n")
		return d.Protect("<pre>"+EscapeHTML(code)+"</pre>", d.ExpandRaw(m[0]))
	})
}

// ExtractInlineCode turns single-backtick spans into protected <code> elements.
func ExtractInlineCode(d *Document) {
	d.Text = replaceSubmatches(inlineCodeRe, d.Text, func(m []string) string {
		return d.Protect("<code>"+EscapeHTML(d.ExpandRaw(m[1]))+"</code>", d.ExpandRaw(m[0]))
	})
}

// EscapeText escapes whatever is left outside tokens. Tokens consist of the
// sentinel and digits only, so escaping never touches them.
func EscapeText(d *Document) {
	d.Text = EscapeHTML(d.Text)
}

// ConvertLinks rewrites [label](url) as an anchor.
func ConvertLinks(d *Document) {
	d.Text = linkRe.ReplaceAllString(d.Text, `<a href="${2}">${1}</a>`)
}

// ConvertBold rewrites **x** and then __x__.
func ConvertBold(d *Document) {
	d.Text = boldStarRe.ReplaceAllString(d.Text, `<b>${1}</b>`)
	d.Text = boldUnderRe.ReplaceAllString(d.Text, `<b>${1}</b>`)
}

// ConvertItalic rewrites *x* and then _x_.
func ConvertItalic(d *Document) {
	d.Text = replaceItalic(d.Text, '*')
	d.Text = replaceItalic(d.Text, '_')
}

// ConvertStrikethrough rewrites ~~x~~.
func ConvertStrikethrough(d *Document) {
	d.Text = strikeRe.ReplaceAllString(d.Text, `<s>${1}</s>`)
}

// ConvertHeadings turns "# title" lines into bold lines. Levels are not kept.
func ConvertHeadings(d *Document) {
	d.Text = headingRe.ReplaceAllString(d.Text, `<b>${1}</b>`)
}

// ConvertBullets replaces "-" and "*" list markers with a bullet.
// Numbered lists already read fine as plain text and are left alone.
func ConvertBullets(d *Document) {
	d.Text = bulletRe.ReplaceAllString(d.Text, "• ")
}

// Restore writes protected content back in place of the tokens.
func Restore(d *Document) {
	d.Text = d.Restore(d.Text)
}

// StripComments removes <!-- ... --> comments; Telegram's HTML parser
// rejects them.
func StripComments(html string) string {
	if !strings.Contains(html, "<!--") {
		return html
	}
	return htmlCommentRe.ReplaceAllString(html, "")
}

// replaceSubmatches is ReplaceAllStringFunc with access to capture groups.
func replaceSubmatches(re *regexp.Regexp, s string, fn func(m []string) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
