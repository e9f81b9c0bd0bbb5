package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/riverfjs/tghtml/internal/config"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tghtml",
		Short:        "Format markdown for Telegram and deliver it",
		SilenceUsage: true,
	}

	config.SetDefaults(viper.GetViper())
	cobra.OnInitialize(initConfig)

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file path (optional, yaml/toml/json).")
	pf.String("bot-token", "", "Telegram bot token (telegram.bot_token).")
	pf.String("store-path", "", "SQLite notification store path; empty disables history (store.path).")
	pf.String("log-level", "", "Log level: debug, info, warn, error (logging.level).")
	pf.String("log-format", "", "Log format: console or json (logging.format).")
	_ = viper.BindPFlag("config", pf.Lookup("config"))
	_ = viper.BindPFlag("telegram.bot_token", pf.Lookup("bot-token"))
	_ = viper.BindPFlag("store.path", pf.Lookup("store-path"))
	_ = viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", pf.Lookup("log-format"))

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newNotifyJobCmd())
	cmd.AddCommand(newWebhookCmd())
	cmd.AddCommand(newReactCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newIncludeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newNotificationsCmd())

	return cmd
}

func initConfig() {
	config.BindEnv(viper.GetViper())

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if err := config.ReadFile(viper.GetViper(), cfgFile); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}
