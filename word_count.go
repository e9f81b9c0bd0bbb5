package tghtml

// CountText 计算文本在分块时占用的长度（UTF-16 code units）
//
// 拆分针对的是发送出去的 HTML 字符串本身，标签和实体也计入长度，
// 因此计数就是整个字符串的 UTF-16 长度，比 Telegram 解析后的可见长度略大，
// 分块永远不会超限。
func CountText(text string) int {
	return UTF16Len(text)
}
