package tghtml

import (
	"github.com/riverfjs/tghtml/internal/converter"
)

// MarkdownToHTML 将 Markdown 转换为 Telegram 支持的 HTML 子集
//
// 支持：围栏代码块、行内代码、链接、粗体、斜体、删除线、标题、无序列表。
// 输入中已有的 <b> <i> <s> <u> <code> <pre> <a> 标签原样保留，
// 其余文本全部转义。畸形的 Markdown 不报错，按字面输出。
//
// 参数:
//   - markdown: 原始 Markdown 文本
//
// 返回:
//   - string: 只包含受支持标签的 HTML
func MarkdownToHTML(markdown string) string {
	return converter.Transcode(markdown)
}

// StripHTMLComments removes <!-- ... --> comments, which Telegram's HTML
// parser does not accept.
func StripHTMLComments(html string) string {
	return converter.StripComments(html)
}
