package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/format/config"
)

// GitConfigStore reads values the way "git config --get" does, local config
// first, then global, then system, and writes them to the repository-local
// config. "confirm.exit" lives at kaishaku.confirm.exit:
//
//	[kaishaku "confirm"]
//		exit = 1
type GitConfigStore struct {
	repo *git.Repository
	// scopes are consulted in order after the local config.
	scopes []gitconfig.Scope
}

var _ Store = (*GitConfigStore)(nil)

// OpenGitConfigStore opens the repository enclosing dir.
func OpenGitConfigStore(dir string) (*GitConfigStore, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return NewGitConfigStore(repo), nil
}

// NewGitConfigStore wraps an already opened repository.
func NewGitConfigStore(repo *git.Repository) *GitConfigStore {
	return &GitConfigStore{
		repo:   repo,
		scopes: []gitconfig.Scope{gitconfig.GlobalScope, gitconfig.SystemScope},
	}
}

func (s *GitConfigStore) Get(key Key) (string, bool, error) {
	cfg, err := s.repo.Config()
	if err != nil {
		return "", false, fmt.Errorf("failed to read git config: %w", err)
	}
	sub, opt := split(key)
	if v, ok := lookup(cfg.Raw, sub, opt); ok {
		return v, true, nil
	}

	for _, scope := range s.scopes {
		scoped, err := gitconfig.LoadConfig(scope)
		if err != nil {
			return "", false, fmt.Errorf("failed to read git config: %w", err)
		}
		if v, ok := lookup(scoped.Raw, sub, opt); ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func lookup(raw *config.Config, sub, opt string) (string, bool) {
	if raw == nil || !raw.HasSection(Section) {
		return "", false
	}
	sec := raw.Section(Section)
	if !sec.HasSubsection(sub) {
		return "", false
	}
	ss := sec.Subsection(sub)
	if !ss.HasOption(opt) {
		return "", false
	}
	return ss.Option(opt), true
}

func (s *GitConfigStore) Set(key Key, value string) error {
	cfg, err := s.repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read git config: %w", err)
	}
	if cfg.Raw == nil {
		cfg.Raw = config.New()
	}
	sub, opt := split(key)
	cfg.Raw.Section(Section).Subsection(sub).SetOption(opt, value)
	if err := s.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write git config: %w", err)
	}
	return nil
}

// split turns "confirm.exit" into subsection "confirm" and option "exit".
func split(key Key) (string, string) {
	sub, opt, _ := strings.Cut(string(key), ".")
	return sub, opt
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu     sync.Mutex
	values map[Key]string
	// SetErr, when non-nil, is returned by every Set.
	SetErr error
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns a store preloaded with values.
func NewMemStore(values map[Key]string) *MemStore {
	m := &MemStore{values: make(map[Key]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemStore) Get(key Key) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemStore) Set(key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}
