//go:build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/paths"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

// TestEnv is an isolated repository with a controller wired to real git.
type TestEnv struct {
	T       *testing.T
	RepoDir string
	// Branch is the branch the initial commit landed on.
	Branch string
}

// NewRepoWithCommit initializes a repository with one committed file.
func NewRepoWithCommit(t *testing.T) *TestEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	// Resolve symlinks on macOS where /var -> /private/var
	repoDir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(repoDir); err == nil {
		repoDir = resolved
	}

	env := &TestEnv{T: t, RepoDir: repoDir}
	env.initRepo()
	env.WriteFile("README.md", "# test\n")
	env.commitWithGoGit("initial commit", "README.md")
	env.Branch = env.CurrentBranch()
	return env
}

func (env *TestEnv) initRepo() {
	env.T.Helper()

	repo, err := git.PlainInit(env.RepoDir, false)
	if err != nil {
		env.T.Fatalf("failed to init git repo: %v", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		env.T.Fatalf("failed to get repo config: %v", err)
	}
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"

	// Disable GPG signing for test commits
	if cfg.Raw == nil {
		cfg.Raw = config.New()
	}
	cfg.Raw.Section("commit").SetOption("gpgsign", "false")

	if err := repo.SetConfig(cfg); err != nil {
		env.T.Fatalf("failed to set repo config: %v", err)
	}
}

func (env *TestEnv) commitWithGoGit(message string, files ...string) {
	env.T.Helper()

	repo, err := git.PlainOpen(env.RepoDir)
	if err != nil {
		env.T.Fatalf("failed to open git repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		env.T.Fatalf("failed to get worktree: %v", err)
	}
	for _, f := range files {
		if _, err := worktree.Add(f); err != nil {
			env.T.Fatalf("failed to add file %s: %v", f, err)
		}
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		env.T.Fatalf("failed to commit: %v", err)
	}
}

// Controller wires a controller the same way the CLI does, with an optional
// confirmer for exit prompts.
func (env *TestEnv) Controller(confirm policy.Confirmer) *session.Controller {
	env.T.Helper()

	regDir, err := paths.RegistryDir(env.RepoDir)
	if err != nil {
		env.T.Fatalf("failed to locate registry: %v", err)
	}
	store, err := settings.OpenGitConfigStore(env.RepoDir)
	if err != nil {
		env.T.Fatalf("failed to open config store: %v", err)
	}
	cfg, err := settings.Load(context.Background(), store)
	if err != nil {
		env.T.Fatalf("failed to load config: %v", err)
	}

	c := session.New(registry.NewOSStore(regDir), vcs.New(vcs.NewExecGateway(env.RepoDir)), cfg)
	c.Settings = store
	c.Confirm = confirm
	c.Changes = func() ([]vcs.FileChange, error) { return vcs.WorktreeChanges(env.RepoDir) }
	return c
}

// Run executes cmd and fails the test on error.
func (env *TestEnv) Run(c *session.Controller, cmd session.Command) *session.Result {
	env.T.Helper()
	res, err := c.Execute(context.Background(), cmd)
	if err != nil {
		env.T.Fatalf("%s failed: %v", cmd.Name(), err)
	}
	return res
}

// Git runs git in the repository and returns trimmed stdout.
func (env *TestEnv) Git(args ...string) string {
	env.T.Helper()

	//nolint:gosec // test code, args are from test setup
	cmd := exec.CommandContext(context.Background(), "git", args...)
	cmd.Dir = env.RepoDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		env.T.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// CurrentBranch returns the checked-out branch, or "HEAD" when detached.
func (env *TestEnv) CurrentBranch() string {
	env.T.Helper()
	return env.Git("rev-parse", "--abbrev-ref", "HEAD")
}

// WriteFile creates a file in the repository.
func (env *TestEnv) WriteFile(path, content string) {
	env.T.Helper()

	fullPath := filepath.Join(env.RepoDir, path)
	//nolint:gosec // test code, permissions are intentionally standard
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		env.T.Fatalf("failed to create directory: %v", err)
	}
	//nolint:gosec // test code, permissions are intentionally standard
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		env.T.Fatalf("failed to write file %s: %v", path, err)
	}
}

// FileExists reports whether a file exists in the repository.
func (env *TestEnv) FileExists(path string) bool {
	_, err := os.Stat(filepath.Join(env.RepoDir, path))
	return err == nil
}

// ReadFile reads a file from the repository.
func (env *TestEnv) ReadFile(path string) string {
	env.T.Helper()

	data, err := os.ReadFile(filepath.Join(env.RepoDir, path))
	if err != nil {
		env.T.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}
