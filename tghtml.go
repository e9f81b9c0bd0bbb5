// Package tghtml 将助手输出的 Markdown 转换为 Telegram HTML 并安全拆分
//
// Telegram Bot API 的 parse_mode=HTML 只支持很小的标签子集，
// 单条消息最长 4096 个 UTF-16 code unit。这个包负责：
//   - EscapeHTML(): 转义 &、<、>
//   - MarkdownToHTML(): 受限 Markdown → b/i/s/u/code/pre/a 标签子集
//   - StripHTMLComments(): 去掉 Telegram 不支持的 <!-- --> 注释
//   - SmartSplit(): 按段落 > 换行 > 句子 > 空格优先拆分长消息
//   - Format(): 以上步骤组成的完整管道
//
// 所有函数都是纯函数，可以并发调用。
//
// 示例：
//
//	chunks, err := tghtml.Format(markdown)
//	if err != nil {
//	    return err
//	}
//	for _, chunk := range chunks {
//	    // 依次以 parse_mode=HTML 发送
//	}
package tghtml
