package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/paths"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// openController discovers the repository around the working directory and
// wires a controller for it. The returned cleanup closes the log file.
func openController(cmd *cobra.Command) (*session.Controller, func(), error) {
	ctx := logging.WithComponent(commandContext(cmd), "cli")

	root, err := paths.RepoRoot("")
	if err != nil {
		if errors.Is(err, paths.ErrNotRepository) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Not a git repository. Run kaishaku from inside a git working tree.")
			return nil, nil, NewSilentError(err)
		}
		return nil, nil, err
	}
	regDir, err := paths.RegistryDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("locating session registry: %w", err)
	}

	cleanup := func() {}
	// Logging is best effort; a read-only git dir must not block the command.
	if err := logging.Init(regDir); err == nil {
		cleanup = logging.Close
	}

	store, err := settings.OpenGitConfigStore(root)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cfg, err := settings.Load(ctx, store)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logging.Debug(ctx, "opened repository",
		slog.String("root", root),
		slog.String("registry", regDir),
	)

	c := session.New(registry.NewOSStore(regDir), vcs.New(vcs.NewExecGateway(root)), cfg)
	c.Settings = store
	c.Confirm = HuhConfirmer{Out: cmd.ErrOrStderr()}
	c.Changes = func() ([]vcs.FileChange, error) { return vcs.WorktreeChanges(root) }
	c.ErrOut = cmd.ErrOrStderr()
	return c, cleanup, nil
}

// run opens the controller, executes one command and renders its result.
func run(cmd *cobra.Command, command session.Command, render func(*cobra.Command, *session.Result) error) error {
	c, cleanup, err := openController(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := c.Execute(commandContext(cmd), command)
	if err != nil {
		return err
	}
	if render == nil {
		render = renderMessage
	}
	return render(cmd, res)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// renderMessage prints notes and the summary line.
func renderMessage(cmd *cobra.Command, res *session.Result) error {
	w := cmd.OutOrStdout()
	s := newOutputStyles(w)
	for _, n := range res.Notes {
		fmt.Fprintln(w, s.render(s.yellow, n))
	}
	if res.Message != "" {
		fmt.Fprintln(w, s.render(s.green, res.Message))
	}
	return nil
}
