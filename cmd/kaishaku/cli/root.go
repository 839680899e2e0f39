// Package cli implements the kaishaku command-line interface.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/kaishaku/cli/cmd/kaishaku/cli.Version=...".
var Version = "dev"

// NewRootCmd builds the kaishaku command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kaishaku",
		Short: "Experiment on a detached HEAD without committing to the wrong branch",
		Long: `kaishaku manages named sessions anchored at a detached commit.

Start a session, experiment freely (commit, switch away, come back), then fold the
result back into a branch or throw it away:

  kaishaku checkout spike            start a session at HEAD
  kaishaku save spike-result         merge the session's work into the original branch
  kaishaku exit --keep               stash leftovers and return to the original branch

Session state lives in .git/kaishaku/ and configuration in the repository's git config.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		newCheckoutCmd(),
		newSwitchCmd(),
		newBranchCmd(),
		newSaveCmd(),
		newExitCmd(),
		newAbortCmd(),
		newStatusCmd(),
		newListCmd(),
		newCleanCmd(),
		newRecoverCmd(),
		newRenameCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the kaishaku version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kaishaku %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
