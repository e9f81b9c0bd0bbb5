// Package telegram is a thin Bot API client for outbound notifications.
//
// A Client is built once per bot token and handed to whoever needs it; no
// package-level bot instance is kept.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultReaction    = "👍"
	maxDownloadBytes   = 20 * 1024 * 1024
)

// Options configures a Client.
type Options struct {
	Token string
	// APIEndpoint is a format string taking the token and the method name.
	// Defaults to tgbotapi.APIEndpoint.
	APIEndpoint string
	// FileEndpoint is a format string taking the token and the file path.
	// Defaults to tgbotapi.FileEndpoint.
	FileEndpoint string
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client sends messages and bot commands for a single bot token.
type Client struct {
	bot          *tgbotapi.BotAPI
	http         *http.Client
	fileEndpoint string
	logger       *zap.Logger
}

// New connects to the Bot API (getMe) and returns a ready Client.
func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	apiEndpoint := strings.TrimSpace(opts.APIEndpoint)
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	fileEndpoint := strings.TrimSpace(opts.FileEndpoint)
	if fileEndpoint == "" {
		fileEndpoint = tgbotapi.FileEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	logger.Debug("telegram bot connected", zap.String("username", bot.Self.UserName))

	return &Client{
		bot:          bot,
		http:         httpClient,
		fileEndpoint: fileEndpoint,
		logger:       logger,
	}, nil
}

// Username returns the bot's username as reported by getMe.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SendHTML sends one message with parse_mode=HTML.
func (c *Client) SendHTML(ctx context.Context, chatID int64, html string, disablePreview bool) (tgbotapi.Message, error) {
	return c.send(ctx, chatID, html, tgbotapi.ModeHTML, disablePreview)
}

// SendText sends one message without a parse mode.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, disablePreview bool) (tgbotapi.Message, error) {
	return c.send(ctx, chatID, text, "", disablePreview)
}

func (c *Client) send(ctx context.Context, chatID int64, text, parseMode string, disablePreview bool) (tgbotapi.Message, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.Message{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = disablePreview
	sent, err := c.bot.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("telegram sendMessage: %w", err)
	}
	return sent, nil
}

// SendChatAction shows a chat action such as "typing" to the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	action = strings.TrimSpace(action)
	if action == "" {
		action = tgbotapi.ChatTyping
	}
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return fmt.Errorf("telegram sendChatAction: %w", err)
	}
	return nil
}

// SetWebhook points the bot at url. secretToken is sent back by Telegram in
// the X-Telegram-Bot-Api-Secret-Token header when set.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("telegram setWebhook: url is required")
	}
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", url)
	params.AddNonEmpty("secret_token", strings.TrimSpace(secretToken))
	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("telegram setWebhook: %w", err)
	}
	return nil
}

type reactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// React sets an emoji reaction on a message. An empty emoji means 👍.
func (c *Client) React(ctx context.Context, chatID int64, messageID int, emoji string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if messageID == 0 {
		return fmt.Errorf("telegram setMessageReaction: missing message_id")
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = defaultReaction
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	if err := params.AddInterface("reaction", []reactionType{{Type: "emoji", Emoji: emoji}}); err != nil {
		return err
	}
	if _, err := c.bot.MakeRequest("setMessageReaction", params); err != nil {
		return fmt.Errorf("telegram setMessageReaction: %w", err)
	}
	return nil
}

// IsParseError reports whether err is Telegram refusing a message's markup.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest && isParseMessage(apiErr.Message)
	}
	return isParseMessage(err.Error())
}

func isParseMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "can't parse entities")
}

type botLogger struct {
	l *zap.SugaredLogger
}

// SetLibraryLogger routes the tgbotapi package's own log output (it keeps a
// single package-level logger) into logger. Call it once during startup; nil
// is ignored.
func SetLibraryLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	_ = tgbotapi.SetLogger(botLogger{l: logger.Sugar()})
}

func (b botLogger) Println(v ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (b botLogger) Printf(format string, v ...interface{}) {
	b.l.Debugf(strings.TrimSpace(format), v...)
}
