package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
)

func newCleanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean [<session>]",
		Short: "Remove inactive sessions",
		Long: `Remove a session's records from .git/kaishaku/.

With <session>, removes that session. Without it, removes every session except
the active one, corrupted sessions included. The active session is never
removed; use 'kaishaku abort' for that.

Branches and commits are not touched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := session.Clean{DryRun: dryRun}
			if len(args) == 1 {
				c.Session = args[0]
			}
			return run(cmd, c, renderClean(dryRun))
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be removed")

	return cmd
}

func renderClean(dryRun bool) func(*cobra.Command, *session.Result) error {
	return func(cmd *cobra.Command, res *session.Result) error {
		w := cmd.OutOrStdout()
		s := newOutputStyles(w)
		if dryRun {
			for _, name := range res.Removed {
				fmt.Fprintf(w, "  %s\n", name)
			}
		}
		fmt.Fprintln(w, s.render(s.green, res.Message))
		return nil
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an inactive session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.Rename{Old: args[0], New: args[1]}, nil)
		},
	}
}
