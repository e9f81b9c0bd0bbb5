package converter

import (
	"strconv"
	"strings"
)

// Document 是一次转码过程的工作状态
//
// 受保护的内容（已有标签、代码块、行内代码）保存在旁路表中，
// 工作文本里只留下一个不透明的 token：sentinel + 十进制序号 + sentinel。
// sentinel 是按文档挑选的私有区字符，保证不出现在源文本中，
// 因此 token 永远不会与正文内容冲突。
type Document struct {
	Text string

	protected []string // token 序号 -> 恢复时写回的内容
	raw       []string // token 序号 -> 源文本中的原始片段
	sentinel  rune
}

// NewDocument creates a Document for source.
func NewDocument(source string) *Document {
	return &Document{
		Text:     source,
		sentinel: pickSentinel(source),
	}
}

// Protect records content in the side table and returns the token that
// stands in for it. raw is the source text the token replaces.
func (d *Document) Protect(content, raw string) string {
	token := d.token(len(d.protected))
	d.protected = append(d.protected, content)
	d.raw = append(d.raw, raw)
	return token
}

// Len returns the number of protected entries.
func (d *Document) Len() int {
	return len(d.protected)
}

// Sentinel returns the delimiter rune used by this document's tokens.
func (d *Document) Sentinel() rune {
	return d.sentinel
}

// Restore replaces every token in s with its protected content.
func (d *Document) Restore(s string) string {
	return d.replaceTokens(s, d.protected)
}

// ExpandRaw replaces every token in s with the source text it replaced.
// Code stages use it so that a protected tag inside a code span is shown
// literally instead of as markup.
func (d *Document) ExpandRaw(s string) string {
	return d.replaceTokens(s, d.raw)
}

func (d *Document) token(i int) string {
	sep := string(d.sentinel)
	return sep + strconv.Itoa(i) + sep
}

func (d *Document) replaceTokens(s string, table []string) string {
	if len(table) == 0 || !strings.ContainsRune(s, d.sentinel) {
		return s
	}
	sep := string(d.sentinel)
	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, sep)
		if start < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		rest := s[start+len(sep):]
		end := strings.Index(rest, sep)
		if end < 0 {
			b.WriteString(s[start:])
			break
		}
		idx, err := strconv.Atoi(rest[:end])
		if err != nil || idx < 0 || idx >= len(table) {
			// 不是我们的 token，原样保留起始 sentinel 继续扫描
			b.WriteString(sep)
			s = rest
			continue
		}
		b.WriteString(table[idx])
		s = rest[end+len(sep):]
	}
	return b.String()
}

// pickSentinel returns the first private-use rune absent from source.
func pickSentinel(source string) rune {
	for r := rune(0xE000); r <= 0x10FFFD; r++ {
		if r == 0xF900 {
			// BMP 私有区用尽，跳到补充私有区 A
			r = 0xF0000
		}
		if !strings.ContainsRune(source, r) {
			return r
		}
	}
	return 0
}
