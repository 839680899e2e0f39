package vcs

import (
	"context"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
)

// DetachedBranch is what CurrentBranch reports when HEAD is detached.
const DetachedBranch = "HEAD"

// Git provides typed git operations over a Gateway. Every failing mutation
// returns a VcsFailure error whose message is the gateway diagnostic.
type Git struct {
	gw Gateway
}

// New returns typed helpers over gw.
func New(gw Gateway) *Git {
	return &Git{gw: gw}
}

func (g *Git) run(ctx context.Context, op kerrors.Op, args ...string) (string, error) {
	out := g.gw.Run(ctx, args...)
	if !out.OK {
		return "", kerrors.E(op, kerrors.KindVcsFailure, out.Diagnostic)
	}
	return out.FirstLine, nil
}

// CurrentBranch returns the short name of the checked out branch, or
// DetachedBranch when HEAD is detached.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "vcs.CurrentBranch", "rev-parse", "--abbrev-ref", "HEAD")
}

// CurrentCommit returns the full hash of HEAD.
func (g *Git) CurrentCommit(ctx context.Context) (string, error) {
	return g.run(ctx, "vcs.CurrentCommit", "rev-parse", "HEAD")
}

// ResolveCommit verifies that rev names a commit and returns its hash.
func (g *Git) ResolveCommit(ctx context.Context, rev string) (string, error) {
	out := g.gw.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if !out.OK || out.FirstLine == "" {
		return "", kerrors.E(kerrors.Op("vcs.ResolveCommit"), kerrors.KindVcsFailure, "invalid commit: "+rev)
	}
	return out.FirstLine, nil
}

// RefExists reports whether ref resolves.
func (g *Git) RefExists(ctx context.Context, ref string) bool {
	return g.gw.Run(ctx, "rev-parse", "--verify", "--quiet", ref).OK
}

// HasChanges reports whether the working tree has staged, unstaged or
// untracked changes.
func (g *Git) HasChanges(ctx context.Context) (bool, error) {
	line, err := g.run(ctx, "vcs.HasChanges", "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return line != "", nil
}

// CheckoutDetached detaches HEAD at ref.
func (g *Git) CheckoutDetached(ctx context.Context, ref string) error {
	_, err := g.run(ctx, "vcs.CheckoutDetached", "checkout", "--detach", ref)
	return err
}

// Checkout switches to an existing branch.
func (g *Git) Checkout(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "vcs.Checkout", "checkout", branch)
	return err
}

// CreateBranch creates branch at HEAD and checks it out.
func (g *Git) CreateBranch(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "vcs.CreateBranch", "checkout", "-b", branch)
	return err
}

// Merge merges branch into the current branch without opening an editor.
func (g *Git) Merge(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "vcs.Merge", "merge", "--no-edit", branch)
	return err
}

// MergeAbort abandons an in-progress merge.
func (g *Git) MergeAbort(ctx context.Context) error {
	_, err := g.run(ctx, "vcs.MergeAbort", "merge", "--abort")
	return err
}

// DeleteBranch force deletes branch.
func (g *Git) DeleteBranch(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "vcs.DeleteBranch", "branch", "-D", branch)
	return err
}

// CommitAll stages every change, untracked files included, and commits.
func (g *Git) CommitAll(ctx context.Context, message string) error {
	const op kerrors.Op = "vcs.CommitAll"
	if _, err := g.run(ctx, op, "add", "-A"); err != nil {
		return err
	}
	_, err := g.run(ctx, op, "commit", "-m", message)
	return err
}

// Stash stashes all changes, untracked files included.
func (g *Git) Stash(ctx context.Context, message string) error {
	_, err := g.run(ctx, "vcs.Stash", "stash", "push", "--include-untracked", "-m", message)
	return err
}

// ResetHard discards tracked changes and removes untracked files.
func (g *Git) ResetHard(ctx context.Context) error {
	const op kerrors.Op = "vcs.ResetHard"
	if _, err := g.run(ctx, op, "reset", "--hard"); err != nil {
		return err
	}
	_, err := g.run(ctx, op, "clean", "-fd")
	return err
}

// OneLineLog returns the one-line summary of the commit at HEAD.
func (g *Git) OneLineLog(ctx context.Context) (string, error) {
	return g.run(ctx, "vcs.OneLineLog", "log", "--oneline", "-1")
}
