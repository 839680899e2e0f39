package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration",
		Long: `Get or set kaishaku configuration, stored in the repository's git config.

Keys:
  confirm.exit   ask before exit discards changes (default 1)
  auto.stash     stash changes on exit (default 0)
  auto.save      commit changes on exit (default 0)`,
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value as 0 or 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.ConfigGet{Key: args[0]}, func(cmd *cobra.Command, res *session.Result) error {
				fmt.Fprintln(cmd.OutOrStdout(), res.Value)
				return nil
			})
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (0/1, true/false, yes/no)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.ConfigSet{Key: args[0], Value: args[1]}, nil)
		},
	}
}
