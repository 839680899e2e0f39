package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// SaveCommitMessage is the commit message exit --save uses.
func SaveCommitMessage(session string) string {
	return fmt.Sprintf("[kaishaku] Save changes from session '%s'", session)
}

// StashMessage is the stash message exit --keep uses.
func StashMessage(session string) string {
	return fmt.Sprintf("kaishaku: auto-stash from session '%s'", session)
}

func (c *Controller) checkout(ctx context.Context, cmd Checkout) (*Result, error) {
	const op kerrors.Op = "session.Checkout"
	ctx = logging.WithSession(ctx, cmd.Session)

	if err := registry.ValidateName(cmd.Session); err != nil {
		return nil, err
	}
	if c.Store.Exists(cmd.Session) {
		return nil, kerrors.E(op, kerrors.KindAlreadyExists,
			fmt.Sprintf("session '%s' already exists; use 'kaishaku switch %s'", cmd.Session, cmd.Session))
	}
	if c.Store.Taken(cmd.Session) {
		return nil, kerrors.E(op, kerrors.KindAlreadyExists,
			fmt.Sprintf("registry entry '%s' exists but is not a session; remove it from .git/kaishaku first", cmd.Session))
	}

	original, err := c.Git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if original == vcs.DetachedBranch {
		// Starting a session from inside another keeps the real branch as
		// the place to return to.
		original, err = c.inheritedBranch()
		if err != nil {
			return nil, err
		}
	}

	var commit string
	if cmd.Commit == "" {
		commit, err = c.Git.CurrentCommit(ctx)
	} else {
		commit, err = c.Git.ResolveCommit(ctx, cmd.Commit)
	}
	if err != nil {
		return nil, err
	}

	if err := c.Git.CheckoutDetached(ctx, commit); err != nil {
		return nil, err
	}

	if err := c.Store.Create(cmd.Session); err != nil {
		return nil, err
	}
	if err := c.Store.PutOriginalBranch(cmd.Session, original); err != nil {
		return nil, err
	}
	if err := c.Store.PutHeadRef(cmd.Session, commit); err != nil {
		return nil, err
	}
	if err := c.activate(cmd.Session); err != nil {
		return nil, err
	}

	logging.Info(ctx, "session started",
		slog.String("original_branch", original),
		slog.String("head", commit),
	)
	return &Result{Message: fmt.Sprintf("Session '%s' started at %s", cmd.Session, commit)}, nil
}

// inheritedBranch is the original branch of the active session, used when
// HEAD is already detached.
func (c *Controller) inheritedBranch() (string, error) {
	const op kerrors.Op = "session.Checkout"
	errDetached := kerrors.E(op, kerrors.KindInvalidState,
		"HEAD is detached; check out a branch before starting a session")

	active, err := c.activeName()
	if err != nil {
		return "", err
	}
	if active == "" {
		return "", errDetached
	}
	if !c.Store.Exists(active) {
		return "", staleMarker(op, active)
	}
	sess, err := c.Store.Get(active)
	if err != nil || sess.OriginalBranch == "" {
		return "", errDetached
	}
	return sess.OriginalBranch, nil
}

func (c *Controller) switchTo(ctx context.Context, cmd Switch) (*Result, error) {
	const op kerrors.Op = "session.Switch"
	ctx = logging.WithSession(ctx, cmd.Session)

	// A partial session cannot be entered, so switch reports it as not found.
	sess, err := c.wellFormed(op, kerrors.KindNotFound, cmd.Session)
	if err != nil {
		return nil, err
	}
	if err := c.Git.CheckoutDetached(ctx, checkoutTarget(sess)); err != nil {
		return nil, err
	}
	if err := c.activate(cmd.Session); err != nil {
		return nil, err
	}

	logging.Info(ctx, "switched session", slog.String("head", sess.HeadRef))
	return &Result{Message: fmt.Sprintf("Switched to session '%s'", cmd.Session)}, nil
}

func (c *Controller) branch(ctx context.Context, cmd Branch) (*Result, error) {
	const op kerrors.Op = "session.Branch"
	name, err := c.requireActive(op)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSession(ctx, name)

	if !c.Store.Exists(name) {
		return nil, staleMarker(op, name)
	}
	if err := c.Git.CreateBranch(ctx, cmd.Branch); err != nil {
		return nil, err
	}
	if err := c.Store.PutHeadRef(name, registry.HeadMarker); err != nil {
		return nil, err
	}
	if err := c.Store.PutTimestamp(name, c.Now()); err != nil {
		return nil, err
	}

	logging.Info(ctx, "created branch from session", slog.String("branch", cmd.Branch))
	return &Result{Message: fmt.Sprintf("Created branch '%s' from session '%s'", cmd.Branch, name)}, nil
}

func (c *Controller) save(ctx context.Context, cmd Save) (*Result, error) {
	const op kerrors.Op = "session.Save"
	name, err := c.requireActive(op)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSession(ctx, name)

	sess, err := c.wellFormed(op, kerrors.KindCorrupted, name)
	if err != nil {
		return nil, err
	}

	if err := c.Git.CreateBranch(ctx, cmd.Branch); err != nil {
		return nil, fmt.Errorf("failed to create branch '%s': %w", cmd.Branch, err)
	}
	if err := c.Git.Checkout(ctx, sess.OriginalBranch); err != nil {
		return nil, fmt.Errorf("failed to return to original branch '%s': %w", sess.OriginalBranch, err)
	}
	if err := c.Git.Merge(ctx, cmd.Branch); err != nil {
		if abortErr := c.Git.MergeAbort(ctx); abortErr != nil {
			c.warn(ctx, "failed to abort merge: %v", abortErr)
		}
		if coErr := c.Git.Checkout(ctx, cmd.Branch); coErr != nil {
			c.warn(ctx, "failed to check out branch '%s': %v", cmd.Branch, coErr)
		}
		return nil, kerrors.E(op, kerrors.KindMergeConflict,
			fmt.Sprintf("failed to merge '%s' into '%s'; your work is on branch '%s', resolve the conflicts manually",
				cmd.Branch, sess.OriginalBranch, cmd.Branch),
			err)
	}

	if err := c.Git.DeleteBranch(ctx, cmd.Branch); err != nil {
		c.warn(ctx, "failed to delete temporary branch '%s'", cmd.Branch)
	}
	if err := c.Store.PutHeadRef(name, registry.HeadMarker); err != nil {
		return nil, err
	}
	if err := c.Store.PutTimestamp(name, c.Now()); err != nil {
		return nil, err
	}

	logging.Info(ctx, "saved session",
		slog.String("branch", cmd.Branch),
		slog.String("original_branch", sess.OriginalBranch),
	)
	return &Result{Message: fmt.Sprintf("Saved changes from session '%s' to branch '%s'", name, sess.OriginalBranch)}, nil
}

func (c *Controller) exit(ctx context.Context, cmd Exit) (*Result, error) {
	const op kerrors.Op = "session.Exit"
	name, err := c.requireActive(op)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSession(ctx, name)

	sess, err := c.Store.Get(name)
	if err != nil {
		if kerrors.Is(err, kerrors.KindNotFound) {
			return nil, staleMarker(op, name)
		}
		return nil, err
	}
	if sess.OriginalBranch == "" {
		return nil, kerrors.E(op, kerrors.KindCorrupted,
			fmt.Sprintf("original branch not found for session '%s'", name))
	}

	hasChanges, err := c.Git.HasChanges(ctx)
	if err != nil {
		return nil, err
	}
	action, err := policy.Resolve(ctx, cmd.Flag, c.Config, hasChanges, c.Confirm)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	switch {
	case !hasChanges:
		if cmd.Flag == policy.FlagSave || cmd.Flag == policy.FlagKeep {
			res.Notes = append(res.Notes, "No changes to save or stash.")
		}
	case action == policy.Save:
		if err := c.Git.CommitAll(ctx, SaveCommitMessage(name)); err != nil {
			return nil, fmt.Errorf("failed to save changes: %w", err)
		}
		res.Notes = append(res.Notes, "Changes saved.")
	case action == policy.Stash:
		if err := c.Git.Stash(ctx, StashMessage(name)); err != nil {
			c.warn(ctx, "%v; continuing without stashing changes", err)
		} else {
			res.Notes = append(res.Notes, "Changes stashed. Use 'git stash list' to see them.")
		}
	case action == policy.Discard:
		if err := c.Git.ResetHard(ctx); err != nil {
			return nil, err
		}
		res.Notes = append(res.Notes, "Changes discarded.")
	}

	if err := c.Git.Checkout(ctx, sess.OriginalBranch); err != nil {
		return nil, fmt.Errorf("%w (the session is still active; use 'kaishaku recover' or check out the branch manually)", err)
	}
	if err := c.Store.ClearActive(); err != nil {
		return nil, err
	}

	logging.Info(ctx, "exited session",
		slog.String("action", action.String()),
		slog.String("original_branch", sess.OriginalBranch),
	)
	res.Message = fmt.Sprintf("Returned to branch '%s' from session '%s'", sess.OriginalBranch, name)
	return res, nil
}

func (c *Controller) abort(ctx context.Context, cmd Abort) (*Result, error) {
	const op kerrors.Op = "session.Abort"
	active, err := c.activeName()
	if err != nil {
		return nil, err
	}

	target := cmd.Session
	if target == "" {
		if active == "" {
			return nil, kerrors.E(op, kerrors.KindInvalidState, "no active session to abort")
		}
		target = active
	}
	ctx = logging.WithSession(ctx, target)

	if err := registry.ValidateName(target); err != nil {
		return nil, err
	}
	if !c.Store.Exists(target) {
		if target != active {
			return nil, kerrors.E(op, kerrors.KindNotFound, fmt.Sprintf("session '%s' not found", target))
		}
		// The marker outlived its records; clearing it is all that is left to do.
		if err := c.Store.ClearActive(); err != nil {
			return nil, err
		}
		logging.Info(ctx, "cleared stale active marker")
		return &Result{Message: fmt.Sprintf("Cleared active marker for missing session '%s'", target)}, nil
	}

	if target == active {
		sess, err := c.Store.Get(target)
		if err != nil {
			return nil, err
		}
		switch {
		case sess.OriginalBranch == "":
			c.warn(ctx, "session '%s' has no original branch; staying on the current commit", target)
			if err := c.Store.ClearActive(); err != nil {
				return nil, err
			}
		default:
			if err := c.Git.Checkout(ctx, sess.OriginalBranch); err != nil {
				c.warn(ctx, "failed to return to original branch '%s': %v", sess.OriginalBranch, err)
			} else if err := c.Store.ClearActive(); err != nil {
				return nil, err
			}
		}
	}

	del, err := c.Store.Delete(target)
	if err != nil {
		return nil, err
	}
	if !del.DirRemoved {
		c.warn(ctx, "session directory '%s' not removed; unexpected files: %v", target, del.Leftover)
	}

	logging.Info(ctx, "aborted session")
	return &Result{Message: fmt.Sprintf("Aborted session '%s'", target)}, nil
}

func (c *Controller) recoverSession(ctx context.Context, cmd Recover) (*Result, error) {
	const op kerrors.Op = "session.Recover"
	ctx = logging.WithSession(ctx, cmd.Session)

	sess, err := c.Store.Get(cmd.Session)
	if err != nil {
		return nil, err
	}
	active, err := c.activeName()
	if err != nil {
		return nil, err
	}
	if active == cmd.Session {
		return nil, kerrors.E(op, kerrors.KindInvalidState, fmt.Sprintf("session '%s' is already active", cmd.Session))
	}
	if sess.IsCorrupted() {
		return nil, kerrors.E(op, kerrors.KindCorrupted,
			fmt.Sprintf("session '%s' is corrupted; missing required files %v", cmd.Session, sess.Missing()))
	}

	if !c.Git.RefExists(ctx, sess.OriginalBranch) {
		c.warn(ctx, "original branch '%s' not found; creating it from the current commit", sess.OriginalBranch)
		if err := c.Git.CreateBranch(ctx, sess.OriginalBranch); err != nil {
			return nil, fmt.Errorf("failed to create branch '%s': %w", sess.OriginalBranch, err)
		}
	}
	if err := c.Git.CheckoutDetached(ctx, checkoutTarget(sess)); err != nil {
		return nil, fmt.Errorf("failed to check out session head: %w", err)
	}
	if err := c.activate(cmd.Session); err != nil {
		return nil, err
	}

	logging.Info(ctx, "recovered session", slog.String("head", sess.HeadRef))
	return &Result{Message: fmt.Sprintf("Recovered session '%s'", cmd.Session)}, nil
}

// staleMarker is the error for an Active Marker naming a session that no
// longer exists.
func staleMarker(op kerrors.Op, name string) error {
	return kerrors.E(op, kerrors.KindNotFound,
		fmt.Sprintf("active session '%s' not found; run 'kaishaku abort' to clear it", name))
}

// IsDeclined reports whether err means the user cancelled an exit.
func IsDeclined(err error) bool {
	return errors.Is(err, policy.ErrDeclined)
}
