// Package config loads tghtml settings from flags, environment and an
// optional config file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/riverfjs/tghtml"
)

// EnvPrefix 环境变量前缀，例如 TGHTML_TELEGRAM_BOT_TOKEN
const EnvPrefix = "TGHTML"

// Config is the resolved configuration.
type Config struct {
	Telegram Telegram
	Format   Format
	Store    Store
	Server   Server
	Logging  Logging
	Include  Include
}

type Telegram struct {
	BotToken       string
	APIEndpoint    string
	FileEndpoint   string
	DisablePreview bool
	RatePerSecond  float64
	Burst          int
}

type Format struct {
	MaxMessageLength int
	StripComments    bool
}

// Options returns the format settings as library options.
func (f Format) Options() []tghtml.Option {
	return []tghtml.Option{
		tghtml.WithMaxLength(f.MaxMessageLength),
		tghtml.WithStripComments(f.StripComments),
	}
}

type Store struct {
	Path string
}

type Server struct {
	Listen string
	APIKey string
}

type Logging struct {
	Level  string
	Format string
}

type Include struct {
	Root string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.file_endpoint", "")
	v.SetDefault("telegram.disable_preview", false)
	v.SetDefault("telegram.rate_per_second", 1.0)
	v.SetDefault("telegram.burst", 5)

	v.SetDefault("format.max_message_length", tghtml.MaxMessageLength)
	v.SetDefault("format.strip_comments", true)

	v.SetDefault("store.path", "data/notifications.db")

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("include.root", ".")
}

// BindEnv makes every key readable from TGHTML_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// ReadFile reads path into v when path is non-empty. The format follows the
// file extension.
func ReadFile(v *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Telegram: Telegram{
			BotToken:       strings.TrimSpace(v.GetString("telegram.bot_token")),
			APIEndpoint:    strings.TrimSpace(v.GetString("telegram.api_endpoint")),
			FileEndpoint:   strings.TrimSpace(v.GetString("telegram.file_endpoint")),
			DisablePreview: v.GetBool("telegram.disable_preview"),
			RatePerSecond:  v.GetFloat64("telegram.rate_per_second"),
			Burst:          v.GetInt("telegram.burst"),
		},
		Format: Format{
			MaxMessageLength: v.GetInt("format.max_message_length"),
			StripComments:    v.GetBool("format.strip_comments"),
		},
		Store: Store{
			Path: strings.TrimSpace(v.GetString("store.path")),
		},
		Server: Server{
			Listen: strings.TrimSpace(v.GetString("server.listen")),
			APIKey: v.GetString("server.api_key"),
		},
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Include: Include{
			Root: strings.TrimSpace(v.GetString("include.root")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a send.
func (c Config) Validate() error {
	var errs []error
	if c.Format.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("format.max_message_length must be positive, got %d", c.Format.MaxMessageLength))
	}
	if c.Format.MaxMessageLength > tghtml.MaxMessageLength {
		errs = append(errs, fmt.Errorf("format.max_message_length must not exceed %d, got %d", tghtml.MaxMessageLength, c.Format.MaxMessageLength))
	}
	if c.Telegram.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("telegram.rate_per_second must be positive, got %v", c.Telegram.RatePerSecond))
	}
	if c.Telegram.Burst <= 0 {
		errs = append(errs, fmt.Errorf("telegram.burst must be positive, got %d", c.Telegram.Burst))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RequireToken reports a missing bot token for commands that talk to Telegram.
func (c Config) RequireToken() error {
	if c.Telegram.BotToken == "" {
		return errors.New("config: telegram.bot_token is required (flag, TGHTML_TELEGRAM_BOT_TOKEN or config file)")
	}
	return nil
}
