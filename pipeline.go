package tghtml

import (
	"go.uber.org/zap"
)

// Format 完整管道：markdown → 可按顺序发送的 HTML 分块
//
// 步骤：
//  1. MarkdownToHTML 转换为 Telegram HTML 子集
//  2. 去除 HTML 注释（默认开启，WithStripComments(false) 关闭）
//  3. SmartSplit 按 MaxLength 拆分（默认 4096）
//
// 只有当 MaxLength 非正数时返回错误（ErrInvalidMaxLength）。
func Format(markdown string, opts ...Option) ([]string, error) {
	return formatRendered(MarkdownToHTML(markdown), applyOptions(opts...))
}

// FormatHTML runs the same pipeline as Format on text that is already
// Telegram HTML, skipping the markdown transcoder.
func FormatHTML(html string, opts ...Option) ([]string, error) {
	return formatRendered(html, applyOptions(opts...))
}

func formatRendered(html string, options *FormatOptions) ([]string, error) {
	if options.StripComments {
		html = StripHTMLComments(html)
	}
	chunks, err := SmartSplit(html, options.MaxLength)
	if err != nil {
		return nil, err
	}
	Logger.Debug("formatted message",
		zap.Int("utf16_len", UTF16Len(html)),
		zap.Int("chunks", len(chunks)),
		zap.Int("max_length", options.MaxLength),
	)
	return chunks, nil
}
