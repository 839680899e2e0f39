package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
)

// stores returns one in-memory and one on-disk store so every test covers both.
func stores(t *testing.T) map[string]*FileStore {
	t.Helper()
	return map[string]*FileStore{
		"memfs": NewMemStore(),
		"osfs":  NewOSStore(filepath.Join(t.TempDir(), "kaishaku")),
	}
}

func collect(t *testing.T, s Store) []string {
	t.Helper()
	var names []string
	for name, err := range s.List() {
		require.NoError(t, err)
		names = append(names, name)
	}
	return names
}

func TestFileStore_CreateGetRoundTrip(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, s.Create("session1"))
			require.NoError(t, s.PutOriginalBranch("session1", "main"))
			require.NoError(t, s.PutHeadRef("session1", "abc123"))
			ts := time.Unix(1700000000, 0)
			require.NoError(t, s.PutTimestamp("session1", ts))

			sess, err := s.Get("session1")
			require.NoError(t, err)
			assert.Equal(t, "session1", sess.Name)
			assert.Equal(t, "main", sess.OriginalBranch)
			assert.Equal(t, "abc123", sess.HeadRef)
			assert.True(t, sess.LastModified.Equal(ts))
			assert.False(t, sess.IsCorrupted())
		})
	}
}

func TestFileStore_RecordFormat(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("exp"))
	require.NoError(t, s.PutOriginalBranch("exp", "main"))
	require.NoError(t, s.PutHeadRef("exp", HeadMarker))
	require.NoError(t, s.SetActive("exp"))

	data, err := util.ReadFile(s.Filesystem(), "exp/session")
	require.NoError(t, err)
	assert.Equal(t, "main\n", string(data))

	data, err = util.ReadFile(s.Filesystem(), "exp/head")
	require.NoError(t, err)
	assert.Equal(t, "HEAD\n", string(data))

	data, err = util.ReadFile(s.Filesystem(), ActiveFile)
	require.NoError(t, err)
	assert.Equal(t, "exp\n", string(data))
}

func TestFileStore_CreateTwice(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("a"))
	err := s.Create("a")
	require.ErrorIs(t, err, kerrors.ErrAlreadyExists)
}

func TestFileStore_StrayFileIsTakenNotSession(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, util.WriteFile(s.Filesystem(), "exp", []byte("x"), 0o644))

			assert.False(t, s.Exists("exp"))
			assert.True(t, s.Taken("exp"))
			assert.False(t, s.Taken("other"))

			err := s.Create("exp")
			require.ErrorIs(t, err, kerrors.ErrAlreadyExists)
			assert.Contains(t, err.Error(), "not a session directory")
		})
	}
}

func TestFileStore_GetNotFound(t *testing.T) {
	t.Parallel()
	_, err := NewMemStore().Get("nope")
	require.ErrorIs(t, err, kerrors.ErrNotFound)
}

func TestFileStore_GetPartialIsNotAnError(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("broken"))
	require.NoError(t, s.PutOriginalBranch("broken", "main"))

	sess, err := s.Get("broken")
	require.NoError(t, err)
	assert.True(t, sess.IsCorrupted())
	assert.Equal(t, []string{HeadFile}, sess.Missing())
	assert.True(t, sess.LastModified.IsZero())
}

func TestFileStore_EmptyRecordCountsAsMissing(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("x"))
	require.NoError(t, util.WriteFile(s.Filesystem(), "x/head", []byte("\n"), 0o644))
	require.NoError(t, util.WriteFile(s.Filesystem(), "x/session", []byte("dev\r\nextra\n"), 0o644))

	sess, err := s.Get("x")
	require.NoError(t, err)
	assert.Empty(t, sess.HeadRef)
	assert.Equal(t, "dev", sess.OriginalBranch)
}

func TestFileStore_PutHeadRefRejectsEmpty(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("x"))
	require.ErrorIs(t, s.PutHeadRef("x", ""), kerrors.ErrInvalid)
}

func TestFileStore_PutOnMissingSession(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.ErrorIs(t, s.PutOriginalBranch("ghost", "main"), kerrors.ErrNotFound)
}

func TestFileStore_ListSkipsDotfilesAndRestarts(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			assert.Empty(t, collect(t, s), "empty registry lists nothing")

			for _, n := range []string{"zeta", "alpha", "mid"} {
				require.NoError(t, s.Create(n))
			}
			require.NoError(t, s.SetActive("alpha"))
			require.NoError(t, s.Filesystem().MkdirAll(".logs", 0o755))

			assert.Equal(t, []string{"alpha", "mid", "zeta"}, collect(t, s))

			require.NoError(t, s.Create("beta"))
			assert.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, collect(t, s), "second range re-reads the directory")
		})
	}
}

func TestFileStore_ListStopsEarly(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(n))
	}
	var seen []string
	for name := range s.List() {
		seen = append(seen, name)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, s.Create("s1"))
			require.NoError(t, s.PutOriginalBranch("s1", "main"))
			require.NoError(t, s.PutHeadRef("s1", "abc"))
			require.NoError(t, s.PutTimestamp("s1", time.Now()))
			require.NoError(t, s.PutDescription("s1", "try things"))

			res, err := s.Delete("s1")
			require.NoError(t, err)
			assert.True(t, res.DirRemoved)
			assert.False(t, s.Exists("s1"))

			res, err = s.Delete("s1")
			require.NoError(t, err, "deleting an absent session succeeds")
			assert.True(t, res.DirRemoved)
		})
	}
}

func TestFileStore_DeletePartialSession(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("half"))
	require.NoError(t, s.PutHeadRef("half", "abc"))

	res, err := s.Delete("half")
	require.NoError(t, err)
	assert.True(t, res.DirRemoved)
	assert.False(t, s.Exists("half"))
}

func TestFileStore_DeleteReportsLeftovers(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "kaishaku")
	s := NewOSStore(dir)
	require.NoError(t, s.Create("s1"))
	require.NoError(t, s.PutOriginalBranch("s1", "main"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1", "notes.txt"), []byte("x"), 0o644))

	res, err := s.Delete("s1")
	require.NoError(t, err, "unexpected extra files are reported, not fatal")
	assert.False(t, res.DirRemoved)
	assert.Equal(t, []string{"notes.txt"}, res.Leftover)

	_, statErr := os.Stat(filepath.Join(dir, "s1", OriginalBranchFile))
	assert.True(t, os.IsNotExist(statErr), "known records are still removed")
}

func TestFileStore_Rename(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, s.Create("session1"))
			require.NoError(t, s.PutOriginalBranch("session1", "main"))
			require.NoError(t, s.PutHeadRef("session1", "abc123"))

			require.NoError(t, s.Rename("session1", "session2"))
			assert.False(t, s.Exists("session1"))

			sess, err := s.Get("session2")
			require.NoError(t, err)
			assert.Equal(t, "main", sess.OriginalBranch)
			assert.Equal(t, "abc123", sess.HeadRef)
		})
	}
}

func TestFileStore_RenameErrors(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Create("a"))
	require.NoError(t, s.Create("b"))

	require.ErrorIs(t, s.Rename("missing", "c"), kerrors.ErrNotFound)
	require.ErrorIs(t, s.Rename("a", "b"), kerrors.ErrAlreadyExists)
	require.ErrorIs(t, s.Rename("a", ".hidden"), kerrors.ErrInvalid)
}

func TestFileStore_ActiveMarker(t *testing.T) {
	t.Parallel()
	for backend, s := range stores(t) {
		t.Run(backend, func(t *testing.T) {
			_, ok, err := s.Active()
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetActive("exp"))
			name, ok, err := s.Active()
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "exp", name)

			require.NoError(t, s.ClearActive())
			require.NoError(t, s.ClearActive(), "clearing twice is fine")
			_, ok, err = s.Active()
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	valid := []string{"session1", "feature-x", "my_session.v2", "UPPER"}
	for _, n := range valid {
		assert.NoError(t, ValidateName(n), n)
	}
	invalid := []string{"", ".", "..", ".active", "a/b", `a\b`, "a\nb", "nul\x00"}
	for _, n := range invalid {
		assert.ErrorIs(t, ValidateName(n), kerrors.ErrInvalid, "%q", n)
	}
}
