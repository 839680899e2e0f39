// Package policy decides what happens to uncommitted changes when a session
// exits. Resolve is pure apart from the Confirmer, which is consulted only
// when confirm.exit would otherwise discard changes.
package policy

import (
	"context"
	"errors"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
)

// Flag is the exit option given on the command line.
type Flag int

const (
	FlagNone Flag = iota
	FlagForce
	FlagKeep
	FlagSave
	FlagNoSave
)

func (f Flag) String() string {
	switch f {
	case FlagForce:
		return "force"
	case FlagKeep:
		return "keep"
	case FlagSave:
		return "save"
	case FlagNoSave:
		return "no-save"
	default:
		return "none"
	}
}

// Action is what exit does with uncommitted changes.
type Action int

const (
	NoOp Action = iota
	Save
	Stash
	Discard
)

func (a Action) String() string {
	switch a {
	case Save:
		return "save"
	case Stash:
		return "stash"
	case Discard:
		return "discard"
	default:
		return "none"
	}
}

// ErrDeclined is returned when the user refuses to discard changes.
var ErrDeclined = errors.New("exit cancelled")

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// DiscardPrompt is the question asked before discarding changes.
const DiscardPrompt = "You have uncommitted changes. Discard them?"

// Resolve picks the exit action. The first matching rule wins:
//
//  0. no changes and the flag is not save/keep: NoOp
//  1. auto.save and the flag is not no-save: Save
//  2. an explicit flag: save=Save, keep=Stash, force and no-save=Discard
//  3. auto.stash and the flag is not force: Stash
//  4. no changes: NoOp
//  5. confirm.exit: ask, Discard if accepted, ErrDeclined otherwise
//  6. Discard
func Resolve(ctx context.Context, flag Flag, cfg settings.Config, hasChanges bool, confirm Confirmer) (Action, error) {
	if !hasChanges && flag != FlagSave && flag != FlagKeep {
		return NoOp, nil
	}
	if cfg.AutoSave && flag != FlagNoSave {
		return Save, nil
	}
	switch flag {
	case FlagSave:
		return Save, nil
	case FlagKeep:
		return Stash, nil
	case FlagForce, FlagNoSave:
		return Discard, nil
	}
	if cfg.AutoStash && flag != FlagForce {
		return Stash, nil
	}
	if !hasChanges {
		return NoOp, nil
	}
	if cfg.ConfirmExit {
		if confirm == nil {
			return NoOp, ErrDeclined
		}
		ok, err := confirm.Confirm(ctx, DiscardPrompt)
		if err != nil {
			return NoOp, err
		}
		if !ok {
			return NoOp, ErrDeclined
		}
	}
	return Discard, nil
}
