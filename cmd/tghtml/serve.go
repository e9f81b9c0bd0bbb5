package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/riverfjs/tghtml/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP notification service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appNeeds{telegram: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("telegram_bot", zap.String("username", a.client.Username()))
			if a.cfg.Server.APIKey == "" {
				a.logger.Warn("server.api_key is empty; notify endpoints are unauthenticated")
			}

			opts := server.Options{
				Notifier: a.dispatcher(),
				APIKey:   a.cfg.Server.APIKey,
				Logger:   a.logger.Named("server"),
			}
			if a.store != nil {
				opts.History = a.store
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(opts).ListenAndServe(ctx, a.cfg.Server.Listen)
		},
	}
	cmd.Flags().String("listen", "", "Listen address (server.listen).")
	cmd.Flags().String("api-key", "", "Shared secret required in X-Api-Key (server.api_key).")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("server.api_key", cmd.Flags().Lookup("api-key"))
	return cmd
}
