package telegram

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram 的 typing 状态约 5 秒后消失，在 5.5-8 秒内随机重发
const (
	typingMinInterval = 5500 * time.Millisecond
	typingJitter      = 2500 * time.Millisecond
)

// StartTyping shows "typing" in the chat until the returned stop function is
// called or ctx ends. stop is safe to call more than once.
func (c *Client) StartTyping(ctx context.Context, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			if err := c.SendChatAction(ctx, chatID, tgbotapi.ChatTyping); err != nil && ctx.Err() == nil {
				c.logger.Debug("telegram typing failed", zap.Int64("chat_id", chatID), zap.Error(err))
			}
			timer := time.NewTimer(typingDelay())
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()

	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func typingDelay() time.Duration {
	return typingMinInterval + rand.N(typingJitter)
}
