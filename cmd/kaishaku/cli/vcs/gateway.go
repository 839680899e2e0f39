// Package vcs drives git for the session controller.
//
// Gateway is the narrow capability the controller depends on: run one git
// command and report whether it succeeded, its first line of output, and a
// diagnostic on failure. Git layers typed queries and mutations on top of a
// Gateway so callers never assemble argv by hand.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
)

// Outcome is the result of one git invocation.
type Outcome struct {
	OK        bool
	FirstLine string
	// Diagnostic describes the failure; empty when OK.
	Diagnostic string
}

// Gateway runs git commands.
type Gateway interface {
	Run(ctx context.Context, args ...string) Outcome
	// LastDiagnostic returns the diagnostic of the most recent failed Run.
	LastDiagnostic() string
}

// ExecGateway runs the git binary in Dir. Arguments are passed as argv,
// never through a shell.
type ExecGateway struct {
	Dir string

	mu   sync.Mutex
	last string
}

var _ Gateway = (*ExecGateway)(nil)

// NewExecGateway returns a gateway rooted at the repository directory dir.
func NewExecGateway(dir string) *ExecGateway {
	return &ExecGateway{Dir: dir}
}

func (g *ExecGateway) Run(ctx context.Context, args ...string) Outcome {
	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	out := Outcome{OK: err == nil, FirstLine: firstLine(stdout.String())}
	if err != nil {
		out.Diagnostic = diagnostic(args, err, firstLine(stderr.String()))
		g.mu.Lock()
		g.last = out.Diagnostic
		g.mu.Unlock()
	}

	logging.LogDuration(ctx, slog.LevelDebug, "git",
		start,
		slog.String("args", strings.Join(args, " ")),
		slog.Bool("ok", out.OK),
	)
	return out
}

func (g *ExecGateway) LastDiagnostic() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func diagnostic(args []string, err error, stderrLine string) string {
	status := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status = exitErr.ExitCode()
	}

	var b strings.Builder
	if status >= 0 {
		fmt.Fprintf(&b, "command failed with status %d: git %s", status, strings.Join(args, " "))
	} else {
		fmt.Fprintf(&b, "command failed: git %s: %v", strings.Join(args, " "), err)
	}
	if stderrLine != "" {
		b.WriteString(": ")
		b.WriteString(stderrLine)
	}
	return b.String()
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
