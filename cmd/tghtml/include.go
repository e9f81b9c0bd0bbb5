package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riverfjs/tghtml/internal/mdinclude"
)

func newIncludeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "include <file>",
		Short: "Render {{file.md}} includes and {{datetime}} in a markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appNeeds{})
			if err != nil {
				return err
			}
			defer a.Close()

			root := a.cfg.Include.Root
			if cmd.Flags().Changed("root") {
				root, _ = cmd.Flags().GetString("root")
			}
			out, err := mdinclude.New(root, a.logger.Named("include")).Render(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("root", ".", "Directory includes are resolved against (include.root).")
	return cmd
}
