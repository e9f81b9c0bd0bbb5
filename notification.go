package tghtml

import (
	"fmt"
	"strings"
)

// JobNotification describes the outcome of a background job that is
// reported to a chat.
type JobNotification struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	PRURL   string `json:"pr_url"`
}

// ShortID returns the first 8 characters of the job ID.
func (n JobNotification) ShortID() string {
	runes := []rune(n.JobID)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return string(runes)
}

// Status returns "complete" for a successful job and "had issues" otherwise.
func (n JobNotification) Status() string {
	if n.Success {
		return "complete"
	}
	return "had issues"
}

// Format 生成 Telegram HTML 格式的通知消息
//
// 摘要会被转义，PR 链接作为属性值转义；链接为空时省略链接行。
func (n JobNotification) Format() string {
	emoji := "⚠️"
	if n.Success {
		emoji = "✅"
	}
	msg := fmt.Sprintf("%s <b>Job %s</b> %s\n\n%s", emoji, EscapeHTML(n.ShortID()), n.Status(), EscapeHTML(n.Summary))
	if n.PRURL != "" {
		href := strings.ReplaceAll(EscapeHTML(n.PRURL), `"`, "&quot;")
		msg += fmt.Sprintf("\n\n<a href=\"%s\">View PR</a>", href)
	}
	return msg
}
