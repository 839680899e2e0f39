package vcs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
)

// FileChange is one entry of the working tree status.
type FileChange struct {
	Path string
	// Code is the two-letter porcelain code, e.g. "M ", " M", "??".
	Code string
}

func (c FileChange) String() string {
	return c.Code + " " + c.Path
}

// WorktreeChanges lists uncommitted changes in the repository at repoRoot,
// sorted by path. Untracked files are included.
func WorktreeChanges(repoRoot string) ([]FileChange, error) {
	repo, err := git.PlainOpenWithOptions(repoRoot, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	changes := make([]FileChange, 0, len(status))
	for file, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		changes = append(changes, FileChange{
			Path: file,
			Code: string([]byte{byte(st.Staging), byte(st.Worktree)}),
		})
	}
	slices.SortFunc(changes, func(a, b FileChange) int {
		return strings.Compare(a.Path, b.Path)
	})
	return changes, nil
}
