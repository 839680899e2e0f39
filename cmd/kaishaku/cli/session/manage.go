package session

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// ListEntry is one session as shown by list.
type ListEntry struct {
	Session *registry.Session
	Active  bool
	// Corrupted is true when a required record is missing. Ref checks are
	// skipped for corrupted sessions.
	Corrupted bool
	// BranchMissing is true when the original branch no longer resolves.
	BranchMissing bool
	// HeadMissing is true when the stored commit no longer resolves.
	HeadMissing bool
}

// NeedsRecovery reports whether list should suggest recover.
func (e ListEntry) NeedsRecovery() bool {
	return e.Corrupted || e.BranchMissing || e.HeadMissing
}

// StatusReport describes the active session.
type StatusReport struct {
	// Session is nil when no session is active.
	Session *registry.Session
	// CurrentHead is the one-line log of HEAD.
	CurrentHead string
	Changes     []vcs.FileChange
	Config      settings.Config
}

func (c *Controller) rename(ctx context.Context, cmd Rename) (*Result, error) {
	const op kerrors.Op = "session.Rename"
	active, err := c.activeName()
	if err != nil {
		return nil, err
	}
	if active != "" && active == cmd.Old {
		return nil, kerrors.E(op, kerrors.KindInvalidState,
			fmt.Sprintf("cannot rename active session '%s'; exit the session first", cmd.Old))
	}
	if err := c.Store.Rename(cmd.Old, cmd.New); err != nil {
		return nil, err
	}

	logging.Info(ctx, "renamed session", slog.String("old", cmd.Old), slog.String("new", cmd.New))
	return &Result{Message: fmt.Sprintf("Renamed session '%s' to '%s'", cmd.Old, cmd.New)}, nil
}

func (c *Controller) clean(ctx context.Context, cmd Clean) (*Result, error) {
	const op kerrors.Op = "session.Clean"
	active, err := c.activeName()
	if err != nil {
		return nil, err
	}

	var targets []string
	if cmd.Session != "" {
		if cmd.Session == active {
			return nil, kerrors.E(op, kerrors.KindInvalidState,
				fmt.Sprintf("cannot clean active session '%s'; exit the session first", active))
		}
		if err := registry.ValidateName(cmd.Session); err != nil {
			return nil, err
		}
		if !c.Store.Exists(cmd.Session) {
			return nil, kerrors.E(op, kerrors.KindNotFound, fmt.Sprintf("session '%s' not found", cmd.Session))
		}
		targets = []string{cmd.Session}
	} else {
		for name, err := range c.Store.List() {
			if err != nil {
				return nil, err
			}
			if name == active || !c.Store.Exists(name) {
				continue
			}
			targets = append(targets, name)
		}
	}

	if cmd.DryRun {
		return &Result{
			Message: fmt.Sprintf("Would clean %d session(s).", len(targets)),
			Removed: targets,
		}, nil
	}

	res := &Result{}
	for _, name := range targets {
		del, err := c.Store.Delete(name)
		if err != nil {
			if cmd.Session != "" {
				return nil, err
			}
			c.warn(ctx, "failed to clean session '%s': %v", name, err)
			continue
		}
		if !del.DirRemoved {
			c.warn(ctx, "session directory '%s' not removed; unexpected files: %v", name, del.Leftover)
		}
		res.Removed = append(res.Removed, name)
	}

	logging.Info(ctx, "cleaned sessions", slog.Int("count", len(res.Removed)))
	if cmd.Session != "" {
		res.Message = fmt.Sprintf("Session '%s' cleaned.", cmd.Session)
	} else {
		res.Message = fmt.Sprintf("%d session(s) cleaned.", len(res.Removed))
	}
	return res, nil
}

// Entries yields a ListEntry for every registry entry. Each range re-reads
// the registry.
func (c *Controller) Entries(ctx context.Context) iter.Seq2[ListEntry, error] {
	return func(yield func(ListEntry, error) bool) {
		active, err := c.activeName()
		if err != nil {
			yield(ListEntry{}, err)
			return
		}
		for name, err := range c.Store.List() {
			if err != nil {
				yield(ListEntry{}, err)
				return
			}
			sess, err := c.Store.Get(name)
			if err != nil {
				if kerrors.Is(err, kerrors.KindNotFound) {
					// Stray file in the registry root.
					continue
				}
				if !yield(ListEntry{}, err) {
					return
				}
				continue
			}
			if !yield(c.entry(ctx, sess, active), nil) {
				return
			}
		}
	}
}

func (c *Controller) entry(ctx context.Context, sess *registry.Session, active string) ListEntry {
	e := ListEntry{
		Session:   sess,
		Active:    sess.Name == active,
		Corrupted: sess.IsCorrupted(),
	}
	if e.Corrupted {
		return e
	}
	e.BranchMissing = !c.Git.RefExists(ctx, sess.OriginalBranch)
	if !sess.TracksLiveHead() {
		e.HeadMissing = !c.Git.RefExists(ctx, sess.HeadRef)
	}
	return e
}

func (c *Controller) list(ctx context.Context) (*Result, error) {
	res := &Result{}
	for e, err := range c.Entries(ctx) {
		if err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

func (c *Controller) status(ctx context.Context) (*Result, error) {
	report := &StatusReport{Config: c.Config}

	name, ok, err := c.Store.Active()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Status: report}, nil
	}
	ctx = logging.WithSession(ctx, name)

	sess, err := c.Store.Get(name)
	switch {
	case err == nil:
		report.Session = sess
	case kerrors.Is(err, kerrors.KindNotFound):
		report.Session = &registry.Session{Name: name}
	default:
		return nil, err
	}

	if line, err := c.Git.OneLineLog(ctx); err != nil {
		c.warn(ctx, "failed to read current HEAD: %v", err)
	} else {
		report.CurrentHead = line
	}
	if c.Changes != nil {
		changes, err := c.Changes()
		if err != nil {
			c.warn(ctx, "failed to list uncommitted changes: %v", err)
		}
		report.Changes = changes
	}
	return &Result{Status: report}, nil
}

func (c *Controller) configGet(cmd ConfigGet) (*Result, error) {
	key, err := settings.ParseKey(cmd.Key)
	if err != nil {
		return nil, err
	}
	return &Result{Value: settings.FormatValue(c.Config.Get(key))}, nil
}

func (c *Controller) configSet(ctx context.Context, cmd ConfigSet) (*Result, error) {
	key, err := settings.ParseKey(cmd.Key)
	if err != nil {
		return nil, err
	}
	v, err := settings.ParseValue(cmd.Value)
	if err != nil {
		return nil, err
	}
	c.Config = c.Config.With(key, v)

	if c.Settings != nil {
		if err := c.Settings.Set(key, settings.FormatValue(v)); err != nil {
			c.warn(ctx, "failed to save config: %v", err)
		}
	}

	logging.Info(ctx, "config updated", slog.String("key", string(key)), slog.Bool("value", v))
	return &Result{Message: fmt.Sprintf("Set %s = %s", key, settings.FormatValue(v))}, nil
}
