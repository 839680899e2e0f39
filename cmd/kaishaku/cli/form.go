package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
)

// AccessibleEnvVar switches prompts to plain line-based input.
const AccessibleEnvVar = "ACCESSIBLE"

// isAccessibleMode reports whether prompts should avoid the interactive TUI:
// when requested explicitly or when stdin is not a terminal.
func isAccessibleMode() bool {
	if os.Getenv(AccessibleEnvVar) != "" {
		return true
	}
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// NewAccessibleForm builds a huh form that honours accessible mode.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithAccessible(isAccessibleMode())
}

// HuhConfirmer asks yes/no questions with a huh confirm field.
type HuhConfirmer struct {
	// Out receives the prompt in accessible mode.
	Out io.Writer
	// In, when set, supplies answers line by line and forces accessible mode.
	In io.Reader
}

var _ policy.Confirmer = HuhConfirmer{}

func (h HuhConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	var confirmed bool
	form := NewAccessibleForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes, discard").
				Negative("No").
				Value(&confirmed),
		),
	)
	if h.Out != nil {
		form = form.WithOutput(h.Out)
	}
	if h.In != nil {
		form = form.WithInput(h.In).WithAccessible(true)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return confirmed, nil
}
