// Package session implements the kaishaku session lifecycle.
//
// A repository is either dormant (no Active Marker) or has exactly one active
// session. Every operation runs its load-bearing git commands before touching
// the registry, so a failed checkout never leaves records describing a state
// the working tree is not in. Best-effort follow-ups that fail are reported
// as warnings and the operation still succeeds.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// Controller executes commands against one repository.
type Controller struct {
	Store registry.Store
	Git   *vcs.Git
	// Config is the configuration loaded at startup. ConfigSet updates it.
	Config settings.Config
	// Settings persists ConfigSet. Nil means changes only last for this run.
	Settings settings.Store
	// Confirm is asked before exit discards changes. Nil declines.
	Confirm policy.Confirmer
	// Changes lists uncommitted changes for status. Nil omits them.
	Changes func() ([]vcs.FileChange, error)
	// ErrOut receives warnings.
	ErrOut io.Writer
	// Now is the clock used for session timestamps.
	Now func() time.Time
}

// New returns a controller with warnings discarded and the wall clock.
func New(store registry.Store, git *vcs.Git, cfg settings.Config) *Controller {
	return &Controller{
		Store:  store,
		Git:    git,
		Config: cfg,
		ErrOut: io.Discard,
		Now:    time.Now,
	}
}

// Result is what a successful command reports back to the CLI.
type Result struct {
	// Message is the one-line summary of what happened.
	Message string
	// Notes are informational lines printed before Message.
	Notes []string
	// Entries is filled by List.
	Entries []ListEntry
	// Status is filled by Status.
	Status *StatusReport
	// Value is filled by ConfigGet.
	Value string
	// Removed names the sessions Clean removed, or would remove on a dry run.
	Removed []string
}

// Execute runs cmd.
func (c *Controller) Execute(ctx context.Context, cmd Command) (*Result, error) {
	ctx = logging.WithComponent(ctx, "session")
	start := time.Now()

	var (
		res *Result
		err error
	)
	switch cmd := cmd.(type) {
	case Checkout:
		res, err = c.checkout(ctx, cmd)
	case Switch:
		res, err = c.switchTo(ctx, cmd)
	case Branch:
		res, err = c.branch(ctx, cmd)
	case Save:
		res, err = c.save(ctx, cmd)
	case Exit:
		res, err = c.exit(ctx, cmd)
	case Abort:
		res, err = c.abort(ctx, cmd)
	case Recover:
		res, err = c.recoverSession(ctx, cmd)
	case Rename:
		res, err = c.rename(ctx, cmd)
	case Clean:
		res, err = c.clean(ctx, cmd)
	case List:
		res, err = c.list(ctx)
	case Status:
		res, err = c.status(ctx)
	case ConfigGet:
		res, err = c.configGet(cmd)
	case ConfigSet:
		res, err = c.configSet(ctx, cmd)
	default:
		return nil, kerrors.E(kerrors.Op("session.Execute"), kerrors.KindInvalid, fmt.Sprintf("unknown command %T", cmd))
	}

	if err != nil {
		logging.LogDuration(ctx, slog.LevelError, "command failed", start,
			slog.String("command", cmd.Name()),
			slog.String("op", string(kerrors.GetOp(err))),
			slog.String("kind", kerrors.GetKind(err).String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	logging.LogDuration(ctx, slog.LevelInfo, "command completed", start, slog.String("command", cmd.Name()))
	return res, nil
}

// warn reports a best-effort failure without failing the command.
func (c *Controller) warn(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Warn(ctx, msg)
	fmt.Fprintf(c.ErrOut, "Warning: %s\n", msg)
}

// requireActive returns the active session name or InvalidState.
func (c *Controller) requireActive(op kerrors.Op) (string, error) {
	name, ok, err := c.Store.Active()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", kerrors.E(op, kerrors.KindInvalidState, "no active kaishaku session")
	}
	return name, nil
}

// activeName returns the active session name, or "" when dormant.
func (c *Controller) activeName() (string, error) {
	name, _, err := c.Store.Active()
	return name, err
}

// wellFormed loads name and fails with kind if a required record is missing.
func (c *Controller) wellFormed(op kerrors.Op, kind kerrors.Kind, name string) (*registry.Session, error) {
	sess, err := c.Store.Get(name)
	if err != nil {
		return nil, err
	}
	if sess.IsCorrupted() {
		return nil, corrupted(op, kind, sess)
	}
	return sess, nil
}

func corrupted(op kerrors.Op, kind kerrors.Kind, sess *registry.Session) error {
	return kerrors.E(op, kind,
		fmt.Sprintf("session '%s' is corrupted (missing %v); use 'kaishaku recover %s' or 'kaishaku clean %s'",
			sess.Name, sess.Missing(), sess.Name, sess.Name))
}

// checkoutTarget is the ref to detach at for a stored head.
func checkoutTarget(sess *registry.Session) string {
	if sess.TracksLiveHead() {
		return registry.HeadMarker
	}
	return sess.HeadRef
}

// activate writes the Active Marker and touches the timestamp.
func (c *Controller) activate(name string) error {
	if err := c.Store.SetActive(name); err != nil {
		return err
	}
	return c.Store.PutTimestamp(name, c.Now())
}
