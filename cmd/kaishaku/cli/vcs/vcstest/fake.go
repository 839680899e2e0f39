// Package vcstest provides a scripted vcs.Gateway for tests.
package vcstest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// Gateway answers git commands from a script keyed by the space-joined
// argv. Unscripted commands succeed with no output. Every call is recorded.
type Gateway struct {
	mu     sync.Mutex
	script map[string][]vcs.Outcome
	calls  []string
	last   string
}

var _ vcs.Gateway = (*Gateway)(nil)

// New returns an empty scripted gateway.
func New() *Gateway {
	return &Gateway{script: make(map[string][]vcs.Outcome)}
}

// Reply makes cmd succeed with firstLine as its output. Replies for the same
// command are consumed in order; the last one repeats.
func (g *Gateway) Reply(cmd, firstLine string) *Gateway {
	return g.push(cmd, vcs.Outcome{OK: true, FirstLine: firstLine})
}

// Fail makes cmd fail with exit status 1.
func (g *Gateway) Fail(cmd string) *Gateway {
	return g.push(cmd, vcs.Outcome{Diagnostic: fmt.Sprintf("command failed with status 1: git %s", cmd)})
}

func (g *Gateway) push(cmd string, out vcs.Outcome) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.script[cmd] = append(g.script[cmd], out)
	return g
}

func (g *Gateway) Run(_ context.Context, args ...string) vcs.Outcome {
	cmd := strings.Join(args, " ")

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, cmd)

	out := vcs.Outcome{OK: true}
	if queue := g.script[cmd]; len(queue) > 0 {
		out = queue[0]
		if len(queue) > 1 {
			g.script[cmd] = queue[1:]
		}
	}
	if !out.OK {
		g.last = out.Diagnostic
	}
	return out
}

func (g *Gateway) LastDiagnostic() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Calls returns every command run so far, in order.
func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Called reports whether cmd was run.
func (g *Gateway) Called(cmd string) bool {
	for _, c := range g.Calls() {
		if c == cmd {
			return true
		}
	}
	return false
}

// Mutations returns the calls that change repository state, skipping
// read-only queries.
func (g *Gateway) Mutations() []string {
	var out []string
	for _, c := range g.Calls() {
		if isQuery(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isQuery(cmd string) bool {
	for _, prefix := range []string{"rev-parse ", "status ", "log "} {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}
