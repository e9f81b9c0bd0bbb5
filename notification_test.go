package tghtml

import "testing"

// TestJobNotification_Format 测试任务通知格式
func TestJobNotification_Format(t *testing.T) {
	tests := []struct {
		name string
		job  JobNotification
		want string
	}{
		{
			name: "success with PR",
			job: JobNotification{
				JobID:   "abcdef1234567",
				Success: true,
				Summary: "Done <ok>",
				PRURL:   `https://e.com/pr?a=1&b="2"`,
			},
			want: "✅ <b>Job abcdef12</b> complete\n\nDone &lt;ok&gt;\n\n<a href=\"https://e.com/pr?a=1&amp;b=&quot;2&quot;\">View PR</a>",
		},
		{
			name: "failure without PR",
			job:  JobNotification{JobID: "xyz"},
			want: "⚠️ <b>Job xyz</b> had issues\n\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestJobNotification_ShortID 按字符截取前 8 位
func TestJobNotification_ShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", ""},
		{"short", "short"},
		{"12345678", "12345678"},
		{"123456789abc", "12345678"},
		{"任务一二三四五六七八", "任务一二三四五六"},
	}
	for _, tt := range tests {
		if got := (JobNotification{JobID: tt.id}).ShortID(); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
