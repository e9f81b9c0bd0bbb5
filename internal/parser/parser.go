package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// StandardOptions goldmark 扩展配置：GFM（表格、删除线、任务列表）
var StandardOptions = []goldmark.Option{
	goldmark.WithExtensions(
		extension.GFM,
		extension.DefinitionList,
		extension.Footnote,
	),
}

var md = goldmark.New(StandardOptions...)

// ParseAST 仅解析为 AST，不遍历
func ParseAST(markdown string) (ast.Node, []byte) {
	source := []byte(markdown)
	return md.Parser().Parse(text.NewReader(source)), source
}

// PlainText 将 Markdown 渲染为不带任何标记的纯文本
//
// 用于通知列表的摘要，以及 Telegram 拒绝 HTML 时的兜底展示。
// 链接渲染为 "label (url)"，列表保留项目符号和序号，代码原样保留。
func PlainText(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	node, source := ParseAST(markdown)
	walker := NewPlainWalker(source)
	_ = ast.Walk(node, walker.Walk)
	return walker.Result()
}
