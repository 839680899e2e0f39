// Package paths resolves where kaishaku keeps its state inside a repository.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RegistryDirName is the registry directory inside the git dir.
const RegistryDirName = "kaishaku"

// ErrNotRepository is returned when no git repository encloses the directory.
var ErrNotRepository = errors.New("not a git repository")

// RepoRoot returns the top-level directory of the working tree enclosing dir.
// An empty dir means the current working directory.
func RepoRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", ErrNotRepository
		}
		return "", fmt.Errorf("opening repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to experiment in.
		return "", fmt.Errorf("%w: %w", ErrNotRepository, err)
	}
	return wt.Filesystem.Root(), nil
}

// GitDir returns the git directory for the working tree at worktreePath.
// For the main worktree this is <worktreePath>/.git. For a linked worktree
// (where .git is a file) it is the per-worktree directory named by the
// "gitdir:" line, so each worktree keeps its own sessions.
func GitDir(worktreePath string) (string, error) {
	gitPath := filepath.Join(worktreePath, ".git")

	info, err := os.Stat(gitPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat .git: %w", err)
	}
	if info.IsDir() {
		return gitPath, nil
	}

	gitdir, err := readGitdirFile(gitPath)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(worktreePath, gitdir)
	}
	return filepath.Clean(gitdir), nil
}

// RegistryDir returns the session registry root for the working tree.
func RegistryDir(worktreePath string) (string, error) {
	gitDir, err := GitDir(worktreePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, RegistryDirName), nil
}

// readGitdirFile parses a linked worktree's .git file: "gitdir: <path>".
func readGitdirFile(gitPath string) (string, error) {
	content, err := os.ReadFile(gitPath) //nolint:gosec // gitPath is constructed from worktreePath + ".git"
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return "", fmt.Errorf("invalid .git file format: %s", line)
	}
	return strings.TrimPrefix(line, "gitdir: "), nil
}
