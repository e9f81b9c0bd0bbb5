package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the bot webhook",
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Point the bot at a webhook URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			secret, _ := cmd.Flags().GetString("secret")
			if strings.TrimSpace(url) == "" {
				return fmt.Errorf("missing --url")
			}

			a, err := newApp(appNeeds{telegram: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.SetWebhook(cmd.Context(), url, secret); err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), "webhook set: %s", url)
			return nil
		},
	}
	set.Flags().String("url", "", "Public HTTPS URL Telegram should call.")
	set.Flags().String("secret", "", "Secret echoed in X-Telegram-Bot-Api-Secret-Token (optional).")

	cmd.AddCommand(set)
	return cmd
}

func newReactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "react",
		Short: "Set an emoji reaction on a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := requireChatID(cmd)
			if err != nil {
				return err
			}
			messageID, _ := cmd.Flags().GetInt("message-id")
			emoji, _ := cmd.Flags().GetString("emoji")

			a, err := newApp(appNeeds{telegram: true})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.client.React(cmd.Context(), chatID, messageID, emoji)
		},
	}
	cmd.Flags().Int64("chat-id", 0, "Chat id.")
	cmd.Flags().Int("message-id", 0, "Message id to react to.")
	cmd.Flags().String("emoji", "👍", "Reaction emoji.")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a file sent to the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, _ := cmd.Flags().GetString("file-id")
			outDir, _ := cmd.Flags().GetString("out")

			a, err := newApp(appNeeds{telegram: true})
			if err != nil {
				return err
			}
			defer a.Close()

			data, name, err := a.client.DownloadFile(cmd.Context(), fileID)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), "saved %s (%d bytes)", path, len(data))
			return nil
		},
	}
	cmd.Flags().String("file-id", "", "Telegram file_id.")
	cmd.Flags().String("out", ".", "Output directory.")
	return cmd
}
