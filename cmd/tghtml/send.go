package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riverfjs/tghtml"
	"github.com/riverfjs/tghtml/internal/dispatch"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [file|-]",
		Short: "Format markdown and send it to a chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatIDs, err := requireChatIDs(cmd)
			if err != nil {
				return err
			}
			markdown, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			a, err := newApp(appNeeds{telegram: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []dispatch.SendOption
			if cmd.Flags().Changed("disable-preview") {
				v, _ := cmd.Flags().GetBool("disable-preview")
				opts = append(opts, dispatch.WithDisablePreview(v))
			}
			if cmd.Flags().Changed("max-length") {
				n, _ := cmd.Flags().GetInt("max-length")
				opts = append(opts, dispatch.WithFormat(tghtml.WithMaxLength(n)))
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(chatIDs) > 1 {
				// 多个 chat 走广播，每个 chat 各自保持分块顺序
				results, err := a.dispatcher().Broadcast(ctx, chatIDs, markdown, opts...)
				for _, id := range chatIDs {
					if res, ok := results[id]; ok && res.Chunks() > 0 {
						printLine(out, "chat %d: sent %d chunk(s): %v", id, res.Chunks(), res.MessageIDs)
					}
				}
				return err
			}

			chatID := chatIDs[0]
			if typing, _ := cmd.Flags().GetBool("typing"); typing {
				stop := a.client.StartTyping(ctx, chatID)
				defer stop()
			}

			res, err := a.dispatcher().Send(ctx, chatID, markdown, opts...)
			if err != nil {
				return err
			}
			printLine(out, "sent %d chunk(s): %v", res.Chunks(), res.MessageIDs)
			return nil
		},
	}
	cmd.Flags().Int64Slice("chat-id", nil, "Target chat id; repeat or comma-separate to send to several chats.")
	cmd.Flags().Bool("disable-preview", false, "Disable link previews (telegram.disable_preview).")
	cmd.Flags().Int("max-length", tghtml.MaxMessageLength, "Maximum chunk length in UTF-16 code units.")
	cmd.Flags().Bool("typing", false, "Show the typing indicator while sending (single chat only).")
	return cmd
}

func newNotifyJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify-job",
		Short: "Send a job completion notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := requireChatID(cmd)
			if err != nil {
				return err
			}
			var job tghtml.JobNotification
			job.JobID, _ = cmd.Flags().GetString("job-id")
			job.Success, _ = cmd.Flags().GetBool("success")
			job.Summary, _ = cmd.Flags().GetString("summary")
			job.PRURL, _ = cmd.Flags().GetString("pr-url")
			if job.JobID == "" {
				return fmt.Errorf("missing --job-id")
			}

			a, err := newApp(appNeeds{telegram: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.dispatcher().SendJobNotification(cmd.Context(), chatID, job)
			if err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), "sent %d chunk(s): %v", res.Chunks(), res.MessageIDs)
			return nil
		},
	}
	cmd.Flags().Int64("chat-id", 0, "Target chat id.")
	cmd.Flags().String("job-id", "", "Job id (first 8 characters are shown).")
	cmd.Flags().Bool("success", false, "Job finished successfully.")
	cmd.Flags().String("summary", "", "Job summary text.")
	cmd.Flags().String("pr-url", "", "Pull request URL (optional).")
	return cmd
}
