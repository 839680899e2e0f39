package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <session> [<commit>]",
		Short: "Start a new session detached at a commit",
		Long: `Start a new session detached at <commit> (default: HEAD).

The current branch is remembered as the session's original branch; exit and
save return to it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := session.Checkout{Session: args[0]}
			if len(args) == 2 {
				c.Commit = args[1]
			}
			return run(cmd, c, nil)
		},
	}
}

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <session>",
		Short: "Switch to an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.Switch{Session: args[0]}, nil)
		},
	}
}

func newBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch <name>",
		Short: "Create a branch from the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.Branch{Branch: args[0]}, nil)
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <branch>",
		Short: "Merge the active session into its original branch",
		Long: `Merge the active session's commits into its original branch.

<branch> names a temporary branch created at the session's HEAD. It is merged
into the original branch and deleted. If the merge conflicts, the merge is
aborted and <branch> is left checked out so nothing is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.Save{Branch: args[0]}, nil)
		},
	}
}

// exitFlags maps exit's mutually exclusive flags to policy flags.
var exitFlags = []struct {
	name string
	flag policy.Flag
}{
	{"force", policy.FlagForce},
	{"keep", policy.FlagKeep},
	{"save", policy.FlagSave},
	{"no-save", policy.FlagNoSave},
}

// exitFlagFrom returns the policy flag selected on fs, or FlagNone.
func exitFlagFrom(fs *pflag.FlagSet) (policy.Flag, error) {
	for _, f := range exitFlags {
		set, err := fs.GetBool(f.name)
		if err != nil {
			return policy.FlagNone, err
		}
		if set {
			return f.flag, nil
		}
	}
	return policy.FlagNone, nil
}

func newExitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exit",
		Short: "Leave the active session and return to the original branch",
		Long: `Leave the active session and return to its original branch.

Uncommitted changes are handled by the first rule that applies:

  kaishaku.auto.save on (unless --no-save)   commit them
  --save / --keep / --force / --no-save      commit / stash / discard / discard
  kaishaku.auto.stash on (unless --force)    stash them
  kaishaku.confirm.exit on                   ask before discarding
  otherwise                                  discard them

The session is kept; use 'kaishaku switch' to return to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flag, err := exitFlagFrom(cmd.Flags())
			if err != nil {
				return err
			}

			err = run(cmd, session.Exit{Flag: flag}, nil)
			if session.IsDeclined(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "Exit cancelled.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Discard uncommitted changes without asking")
	cmd.Flags().BoolP("keep", "k", false, "Stash uncommitted changes")
	cmd.Flags().BoolP("save", "s", false, "Commit uncommitted changes")
	cmd.Flags().Bool("no-save", false, "Never commit, even when auto.save is on")
	cmd.MarkFlagsMutuallyExclusive("force", "keep", "save", "no-save")

	return cmd
}

func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort [<session>]",
		Short: "Delete a session, returning to its branch if it is active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := session.Abort{}
			if len(args) == 1 {
				a.Session = args[0]
			}
			return run(cmd, a, nil)
		},
	}
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover <session>",
		Short: "Re-activate a session, recreating its original branch if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, session.Recover{Session: args[0]}, nil)
		},
	}
}
