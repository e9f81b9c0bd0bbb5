package parser

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/riverfjs/tghtml/internal/buffer"
)

// PlainWalker 遍历 goldmark AST 并生成纯文本
type PlainWalker struct {
	buf    *buffer.TextBuffer
	source []byte

	listStack []*int // nil=unordered, *int=ordered(next number)

	// 链接：结束时若 label 与 URL 不同，追加 " (url)"
	linkStack []linkScope

	inTableCell bool
	cellParts   []string
	currentRow  []string
}

type linkScope struct {
	url   string
	start int
}

// NewPlainWalker creates a walker over source.
func NewPlainWalker(source []byte) *PlainWalker {
	return &PlainWalker{
		buf:    buffer.New(),
		source: source,
	}
}

// Result returns the rendered text without surrounding whitespace.
func (w *PlainWalker) Result() string {
	return strings.TrimSpace(w.buf.String())
}

// Walk is an ast.Walker.
func (w *PlainWalker) Walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Text:
		if entering {
			s := string(n.Segment.Value(w.source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				if w.inTableCell {
					s += " "
				} else {
					s += "\n"
				}
			}
			w.write(s)
		}

	case *ast.String:
		if entering {
			w.write(string(n.Value))
		}

	case *ast.CodeSpan:
		if entering {
			w.write(codeSpanText(n, w.source))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if entering {
			w.linkStack = append(w.linkStack, linkScope{url: string(n.Destination), start: w.buf.Len()})
		} else {
			w.endLink()
		}

	case *ast.AutoLink:
		if entering {
			w.write(string(n.URL(w.source)))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Paragraph:
		if entering {
			if len(w.listStack) == 0 {
				w.buf.EnsureBlankLine()
			}
		} else if len(w.listStack) > 0 {
			w.buf.EnsureNewline()
		}

	case *ast.Heading:
		if entering {
			w.buf.EnsureBlankLine()
		}

	case *ast.Blockquote:
		if entering {
			w.buf.EnsureBlankLine()
		}

	case *ast.List:
		if entering {
			if len(w.listStack) == 0 {
				w.buf.EnsureBlankLine()
			}
			if n.IsOrdered() {
				start := n.Start
				w.listStack = append(w.listStack, &start)
			} else {
				w.listStack = append(w.listStack, nil)
			}
		} else if len(w.listStack) > 0 {
			w.listStack = w.listStack[:len(w.listStack)-1]
		}

	case *ast.ListItem:
		if entering {
			w.startItem()
		} else {
			w.buf.EnsureNewline()
		}

	case *east.TaskCheckBox:
		if entering {
			if n.IsChecked {
				w.write("[x] ")
			} else {
				w.write("[ ] ")
			}
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.buf.EnsureBlankLine()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				w.write(string(line.Value(w.source)))
			}
			return ast.WalkSkipChildren, nil
		}

	case *ast.ThematicBreak:
		if entering {
			w.buf.EnsureBlankLine()
			w.write("————————")
		}

	case *ast.HTMLBlock, *ast.RawHTML:
		// 原始 HTML 不进入纯文本
		return ast.WalkSkipChildren, nil

	case *east.Table:
		if entering {
			w.buf.EnsureBlankLine()
		}

	case *east.TableHeader, *east.TableRow:
		if entering {
			w.currentRow = w.currentRow[:0]
		} else {
			w.buf.EnsureNewline()
			w.write(strings.Join(w.currentRow, " | "))
			w.write("\n")
		}

	case *east.TableCell:
		if entering {
			w.inTableCell = true
			w.cellParts = w.cellParts[:0]
		} else {
			w.inTableCell = false
			w.currentRow = append(w.currentRow, strings.TrimSpace(strings.Join(w.cellParts, "")))
		}
	}
	return ast.WalkContinue, nil
}

func (w *PlainWalker) write(s string) {
	if w.inTableCell {
		w.cellParts = append(w.cellParts, s)
		return
	}
	w.buf.Write(s)
}

func (w *PlainWalker) startItem() {
	w.buf.EnsureNewline()
	depth := len(w.listStack)
	if depth == 0 {
		return
	}
	indent := strings.Repeat("  ", depth-1)
	if next := w.listStack[depth-1]; next != nil {
		w.write(fmt.Sprintf("%s%d. ", indent, *next))
		*next++
		return
	}
	w.write(indent + "• ")
}

func (w *PlainWalker) endLink() {
	if len(w.linkStack) == 0 {
		return
	}
	scope := w.linkStack[len(w.linkStack)-1]
	w.linkStack = w.linkStack[:len(w.linkStack)-1]
	if scope.url == "" {
		return
	}
	label := w.buf.String()[scope.start:]
	if w.inTableCell || label == scope.url {
		return
	}
	w.write(" (" + scope.url + ")")
}

func codeSpanText(n *ast.CodeSpan, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			_, _ = b.Write(t.Segment.Value(source))
		}
	}
	return b.String()
}
