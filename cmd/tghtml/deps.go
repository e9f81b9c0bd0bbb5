package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/riverfjs/tghtml"
	"github.com/riverfjs/tghtml/internal/config"
	"github.com/riverfjs/tghtml/internal/dispatch"
	"github.com/riverfjs/tghtml/internal/logutil"
	"github.com/riverfjs/tghtml/internal/store"
	"github.com/riverfjs/tghtml/internal/telegram"
)

// app 一次命令执行所需的依赖
type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *telegram.Client
	store  *store.Store
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

type appNeeds struct {
	telegram bool
	store    bool
}

func newApp(needs appNeeds) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logutil.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	tghtml.SetLogger(logger.Named("format"))
	telegram.SetLibraryLogger(logger.Named("tgbotapi"))

	a := &app{cfg: cfg, logger: logger}
	if needs.telegram {
		if err := cfg.RequireToken(); err != nil {
			a.Close()
			return nil, err
		}
		a.client, err = telegram.New(telegram.Options{
			Token:        cfg.Telegram.BotToken,
			APIEndpoint:  cfg.Telegram.APIEndpoint,
			FileEndpoint: cfg.Telegram.FileEndpoint,
			Logger:       logger.Named("telegram"),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	if needs.store && cfg.Store.Path != "" {
		a.store, err = store.Open(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) dispatcher() *dispatch.Dispatcher {
	opts := dispatch.Options{
		RatePerSecond:  a.cfg.Telegram.RatePerSecond,
		Burst:          a.cfg.Telegram.Burst,
		DisablePreview: a.cfg.Telegram.DisablePreview,
		Format:         a.cfg.Format.Options(),
		Logger:         a.logger.Named("dispatch"),
	}
	// 避免把 nil *store.Store 装进接口
	if a.store != nil {
		opts.Recorder = a.store
	}
	return dispatch.New(a.client, opts)
}

// readInput 读取位置参数指定的文件；无参数或 "-" 时读 stdin
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func requireChatID(cmd *cobra.Command) (int64, error) {
	id, _ := cmd.Flags().GetInt64("chat-id")
	if id == 0 {
		return 0, fmt.Errorf("missing --chat-id")
	}
	return id, nil
}

// requireChatIDs 读取可重复的 --chat-id，重复的 id 只保留一次
func requireChatIDs(cmd *cobra.Command) ([]int64, error) {
	ids, _ := cmd.Flags().GetInt64Slice("chat-id")
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if id == 0 {
			return nil, fmt.Errorf("invalid --chat-id 0")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("missing --chat-id")
	}
	return out, nil
}

func printLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
