package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect the delivered notification history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent notifications as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appNeeds{store: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return fmt.Errorf("store.path is empty")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			items, err := a.store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			unread, err := a.store.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"notifications": items, "unread": unread})
		},
	}
	list.Flags().Int("limit", 20, "Maximum number of notifications.")

	read := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark one notification, or all of them, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appNeeds{store: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return fmt.Errorf("store.path is empty")
			}

			if len(args) == 1 {
				if err := a.store.MarkRead(cmd.Context(), args[0]); err != nil {
					return err
				}
				printLine(cmd.OutOrStdout(), "marked %s read", args[0])
				return nil
			}
			n, err := a.store.MarkAllRead(cmd.Context())
			if err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), "marked %d notification(s) read", n)
			return nil
		},
	}

	cmd.AddCommand(list, read)
	return cmd
}
