package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riverfjs/tghtml"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Print the Telegram HTML chunks for a markdown file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appNeeds{})
			if err != nil {
				return err
			}
			defer a.Close()

			markdown, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts := a.cfg.Format.Options()
			if cmd.Flags().Changed("max-length") {
				n, _ := cmd.Flags().GetInt("max-length")
				opts = append(opts, tghtml.WithMaxLength(n))
			}
			chunks, err := tghtml.Format(markdown, opts...)
			if err != nil {
				return err
			}

			sep, _ := cmd.Flags().GetString("separator")
			out := cmd.OutOrStdout()
			for i, chunk := range chunks {
				if i > 0 {
					_, _ = fmt.Fprint(out, strings.ReplaceAll(sep, `\n`, "\n"))
				}
				_, _ = fmt.Fprint(out, chunk)
			}
			_, _ = fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().Int("max-length", tghtml.MaxMessageLength, "Maximum chunk length in UTF-16 code units.")
	cmd.Flags().String("separator", `\n-----\n`, "Printed between chunks.")
	return cmd
}
