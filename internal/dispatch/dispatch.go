// Package dispatch delivers formatted messages to chats.
//
// A message is formatted once and its chunks are sent one after another, each
// send finishing before the next starts. Sends to the same chat share a rate
// limiter so long messages and bursts of notifications stay under Telegram's
// per-chat limits.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/riverfjs/tghtml"
	"github.com/riverfjs/tghtml/internal/htmltext"
	"github.com/riverfjs/tghtml/internal/parser"
	"github.com/riverfjs/tghtml/internal/store"
	"github.com/riverfjs/tghtml/internal/telegram"
)

// ErrEmptyMessage is returned for a message with no visible text.
var ErrEmptyMessage = errors.New("dispatch: empty message")

const (
	defaultRatePerSecond = 1.0
	defaultBurst         = 5
	defaultConcurrency   = 4
)

// Sender delivers a single chunk. *telegram.Client implements it.
type Sender interface {
	SendHTML(ctx context.Context, chatID int64, html string, disablePreview bool) (tgbotapi.Message, error)
	SendText(ctx context.Context, chatID int64, text string, disablePreview bool) (tgbotapi.Message, error)
}

// Recorder keeps a history of delivered messages. *store.Store implements it.
type Recorder interface {
	Add(ctx context.Context, notification string, payload any) (store.Notification, error)
}

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	RatePerSecond  float64
	Burst          int
	Concurrency    int
	DisablePreview bool
	Format         []tghtml.Option
	Recorder       Recorder
	Logger         *zap.Logger
}

// Result describes a delivered message.
type Result struct {
	ChatID     int64            `json:"chat_id"`
	MessageIDs []int            `json:"message_ids"`
	Last       tgbotapi.Message `json:"-"`
}

// Chunks returns the number of chunks delivered.
func (r Result) Chunks() int {
	return len(r.MessageIDs)
}

// ChunkError reports the chunk that failed. Chunks before Index were
// delivered; chunks after it were not attempted.
type ChunkError struct {
	ChatID int64
	Index  int
	Total  int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("dispatch: chat %d: chunk %d of %d: %v", e.ChatID, e.Index+1, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Dispatcher sends messages through a Sender.
type Dispatcher struct {
	sender   Sender
	opts     Options
	logger   *zap.Logger
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// New returns a Dispatcher using sender.
func New(sender Sender, opts Options) *Dispatcher {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRatePerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender:   sender,
		opts:     opts,
		logger:   logger,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// SendOption adjusts a single Send call.
type SendOption func(*sendOptions)

type sendOptions struct {
	disablePreview bool
	format         []tghtml.Option
	record         bool
}

// WithDisablePreview overrides the link preview setting for one message.
func WithDisablePreview(disable bool) SendOption {
	return func(o *sendOptions) {
		o.disablePreview = disable
	}
}

// WithFormat appends format options for one message.
func WithFormat(opts ...tghtml.Option) SendOption {
	return func(o *sendOptions) {
		o.format = append(o.format, opts...)
	}
}

// WithoutRecord skips the Recorder for one message.
func WithoutRecord() SendOption {
	return func(o *sendOptions) {
		o.record = false
	}
}

func (d *Dispatcher) sendOptions(opts []SendOption) sendOptions {
	so := sendOptions{
		disablePreview: d.opts.DisablePreview,
		format:         append([]tghtml.Option(nil), d.opts.Format...),
		record:         d.opts.Recorder != nil,
	}
	for _, opt := range opts {
		opt(&so)
	}
	return so
}

// Send formats markdown and delivers it to chatID.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, markdown string, opts ...SendOption) (Result, error) {
	if strings.TrimSpace(markdown) == "" {
		return Result{ChatID: chatID}, ErrEmptyMessage
	}
	so := d.sendOptions(opts)
	chunks, err := tghtml.Format(markdown, so.format...)
	if err != nil {
		return Result{ChatID: chatID}, fmt.Errorf("dispatch: format: %w", err)
	}

	res, err := d.deliver(ctx, chatID, chunks, so)
	if err != nil {
		return res, err
	}
	d.record(ctx, so, parser.PlainText(markdown), notificationPayload{
		ChatID:     chatID,
		Chunks:     res.Chunks(),
		MessageIDs: res.MessageIDs,
	})
	return res, nil
}

// Broadcast sends markdown to every chat in chatIDs. Chats are served
// concurrently; each chat still receives its chunks in order. A chat listed
// more than once receives the message once. Every chat is attempted and the
// failures are joined.
func (d *Dispatcher) Broadcast(ctx context.Context, chatIDs []int64, markdown string, opts ...SendOption) (map[int64]Result, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, ErrEmptyMessage
	}
	chatIDs = uniqueChats(chatIDs)
	so := d.sendOptions(opts)
	chunks, err := tghtml.Format(markdown, so.format...)
	if err != nil {
		return nil, fmt.Errorf("dispatch: format: %w", err)
	}
	plain := parser.PlainText(markdown)

	var (
		mu      sync.Mutex
		results = make(map[int64]Result, len(chatIDs))
		errs    []error
	)
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, chatID := range chatIDs {
		g.Go(func() error {
			res, err := d.deliver(ctx, chatID, chunks, so)
			mu.Lock()
			results[chatID] = res
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
			if err == nil {
				d.record(ctx, so, plain, notificationPayload{
					ChatID:     chatID,
					Chunks:     res.Chunks(),
					MessageIDs: res.MessageIDs,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// SendJobNotification delivers the HTML rendering of job to chatID.
func (d *Dispatcher) SendJobNotification(ctx context.Context, chatID int64, job tghtml.JobNotification, opts ...SendOption) (Result, error) {
	so := d.sendOptions(opts)
	html := job.Format()
	chunks, err := tghtml.FormatHTML(html, so.format...)
	if err != nil {
		return Result{ChatID: chatID}, fmt.Errorf("dispatch: format: %w", err)
	}

	res, err := d.deliver(ctx, chatID, chunks, so)
	if err != nil {
		return res, err
	}
	d.record(ctx, so, htmltext.ToPlain(html), notificationPayload{
		ChatID:     chatID,
		Chunks:     res.Chunks(),
		MessageIDs: res.MessageIDs,
		Job:        &job,
	})
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, chatID int64, chunks []string, so sendOptions) (Result, error) {
	res := Result{ChatID: chatID, MessageIDs: make([]int, 0, len(chunks))}
	limiter := d.limiter(chatID)

	for i, chunk := range chunks {
		// 前导空白可能产生空块，Telegram 会拒收空消息
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return res, &ChunkError{ChatID: chatID, Index: i, Total: len(chunks), Err: err}
		}

		msg, err := d.sender.SendHTML(ctx, chatID, chunk, so.disablePreview)
		if err != nil && telegram.IsParseError(err) {
			d.logger.Warn("telegram rejected html, resending as plain text",
				zap.Int64("chat_id", chatID),
				zap.Int("chunk", i),
				zap.Error(err),
			)
			msg, err = d.sender.SendText(ctx, chatID, htmltext.ToPlain(chunk), so.disablePreview)
		}
		if err != nil {
			return res, &ChunkError{ChatID: chatID, Index: i, Total: len(chunks), Err: err}
		}
		res.MessageIDs = append(res.MessageIDs, msg.MessageID)
		res.Last = msg
	}

	if len(res.MessageIDs) == 0 {
		return res, ErrEmptyMessage
	}
	d.logger.Debug("message delivered",
		zap.Int64("chat_id", chatID),
		zap.Int("chunks", len(res.MessageIDs)),
	)
	return res, nil
}

// uniqueChats 去重并保持首次出现的顺序；同一个 chat 的两次并发投递会交错分块
func uniqueChats(chatIDs []int64) []int64 {
	seen := make(map[int64]struct{}, len(chatIDs))
	out := make([]int64, 0, len(chatIDs))
	for _, id := range chatIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (d *Dispatcher) limiter(chatID int64) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.opts.RatePerSecond), d.opts.Burst)
		d.limiters[chatID] = l
	}
	return l
}

type notificationPayload struct {
	ChatID     int64                   `json:"chat_id"`
	Chunks     int                     `json:"chunks"`
	MessageIDs []int                   `json:"message_ids"`
	Job        *tghtml.JobNotification `json:"job,omitempty"`
}

// record 写入失败只记日志，消息已经送达
func (d *Dispatcher) record(ctx context.Context, so sendOptions, text string, payload notificationPayload) {
	if !so.record || d.opts.Recorder == nil {
		return
	}
	if _, err := d.opts.Recorder.Add(ctx, text, payload); err != nil {
		d.logger.Warn("record notification failed",
			zap.Int64("chat_id", payload.ChatID),
			zap.Error(err),
		)
	}
}
