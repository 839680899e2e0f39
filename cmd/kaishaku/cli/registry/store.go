// Package registry stores kaishaku sessions as a directory of single-line text
// records, one subdirectory per session, plus an Active Marker file at the
// root. The layout is shared with earlier kaishaku releases:
//
//	.git/kaishaku/
//	  .active          name of the active session
//	  <name>/session   original branch
//	  <name>/head      commit hash or HEAD
//	  <name>/time      unix timestamp
//	  <name>/desc      free-text description
//
// Store isolates that encoding; FileStore implements it on a billy.Filesystem
// so tests can run against memfs.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
)

// ActiveFile is the Active Marker at the registry root.
const ActiveFile = ".active"

// Store is the typed repository over session records.
type Store interface {
	// Create makes an empty session directory. Fails with AlreadyExists if the
	// session is present; callers are expected to check Exists first.
	Create(name string) error
	// Get reads a session. A missing directory is NotFound; missing records
	// yield a partially populated Session, not an error.
	Get(name string) (*Session, error)
	// Exists reports whether name is a session directory.
	Exists(name string) bool
	// Taken reports whether any registry entry, session or stray file, uses name.
	Taken(name string) bool
	PutOriginalBranch(name, branch string) error
	PutHeadRef(name, ref string) error
	PutTimestamp(name string, t time.Time) error
	PutDescription(name, desc string) error
	// List yields every non-dotfile entry under the root, sorted by name.
	// Each range over the sequence re-reads the directory.
	List() iter.Seq2[string, error]
	// Delete removes all record files and the directory, best effort.
	Delete(name string) (DeleteResult, error)
	Rename(oldName, newName string) error

	// Active returns the name in the Active Marker, if any.
	Active() (string, bool, error)
	SetActive(name string) error
	ClearActive() error
}

// DeleteResult reports what Delete left behind.
type DeleteResult struct {
	// Leftover names entries that kept the session directory from being removed.
	Leftover []string
	// DirRemoved is true when the session directory no longer exists.
	DirRemoved bool
}

// FileStore implements Store on a billy.Filesystem rooted at the registry dir.
type FileStore struct {
	fs billy.Filesystem
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store over fs, whose root is the registry directory.
func NewFileStore(fs billy.Filesystem) *FileStore {
	return &FileStore{fs: fs}
}

// NewOSStore returns a store rooted at dir on the host filesystem.
func NewOSStore(dir string) *FileStore {
	return NewFileStore(osfs.New(dir))
}

// NewMemStore returns a store backed by an in-memory filesystem.
func NewMemStore() *FileStore {
	return NewFileStore(memfs.New())
}

// Filesystem exposes the underlying filesystem.
func (s *FileStore) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *FileStore) Create(name string) error {
	const op kerrors.Op = "registry.Create"
	if err := ValidateName(name); err != nil {
		return err
	}
	if s.Exists(name) {
		return kerrors.E(op, kerrors.KindAlreadyExists, fmt.Sprintf("session '%s' already exists", name))
	}
	if s.Taken(name) {
		return kerrors.E(op, kerrors.KindAlreadyExists, fmt.Sprintf("registry entry '%s' is not a session directory", name))
	}
	if err := s.fs.MkdirAll(name, 0o755); err != nil {
		return kerrors.E(op, kerrors.KindIoFailure, fmt.Sprintf("creating session directory %s", name), err)
	}
	return nil
}

func (s *FileStore) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	fi, err := s.fs.Stat(name)
	return err == nil && fi.IsDir()
}

func (s *FileStore) Taken(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	_, err := s.fs.Lstat(name)
	return err == nil
}

func (s *FileStore) Get(name string) (*Session, error) {
	const op kerrors.Op = "registry.Get"
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !s.Exists(name) {
		return nil, kerrors.E(op, kerrors.KindNotFound, fmt.Sprintf("session '%s' not found", name))
	}

	sess := &Session{Name: name}
	var err error
	if sess.OriginalBranch, err = s.readRecord(name, OriginalBranchFile); err != nil {
		return nil, kerrors.E(op, kerrors.KindIoFailure, "reading original branch", err)
	}
	if sess.HeadRef, err = s.readRecord(name, HeadFile); err != nil {
		return nil, kerrors.E(op, kerrors.KindIoFailure, "reading head", err)
	}
	if sess.Description, err = s.readRecord(name, DescriptionFile); err != nil {
		return nil, kerrors.E(op, kerrors.KindIoFailure, "reading description", err)
	}
	ts, err := s.readRecord(name, TimeFile)
	if err != nil {
		return nil, kerrors.E(op, kerrors.KindIoFailure, "reading timestamp", err)
	}
	if secs, parseErr := strconv.ParseInt(ts, 10, 64); parseErr == nil && secs > 0 {
		sess.LastModified = time.Unix(secs, 0)
	}
	return sess, nil
}

func (s *FileStore) PutOriginalBranch(name, branch string) error {
	return s.putRecord("registry.PutOriginalBranch", name, OriginalBranchFile, branch)
}

func (s *FileStore) PutHeadRef(name, ref string) error {
	if ref == "" {
		return kerrors.E(kerrors.Op("registry.PutHeadRef"), kerrors.KindInvalid, "head ref cannot be empty")
	}
	return s.putRecord("registry.PutHeadRef", name, HeadFile, ref)
}

func (s *FileStore) PutTimestamp(name string, t time.Time) error {
	return s.putRecord("registry.PutTimestamp", name, TimeFile, strconv.FormatInt(t.Unix(), 10))
}

func (s *FileStore) PutDescription(name, desc string) error {
	return s.putRecord("registry.PutDescription", name, DescriptionFile, desc)
}

func (s *FileStore) List() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		infos, err := s.fs.ReadDir(".")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			yield("", kerrors.E(kerrors.Op("registry.List"), kerrors.KindIoFailure, "reading registry", err))
			return
		}

		names := make([]string, 0, len(infos))
		for _, fi := range infos {
			if strings.HasPrefix(fi.Name(), ".") {
				continue
			}
			names = append(names, fi.Name())
		}
		slices.Sort(names)

		for _, n := range names {
			if !yield(n, nil) {
				return
			}
		}
	}
}

func (s *FileStore) Delete(name string) (DeleteResult, error) {
	const op kerrors.Op = "registry.Delete"
	var res DeleteResult
	if err := ValidateName(name); err != nil {
		return res, err
	}

	for _, rec := range RecordFiles {
		if err := s.fs.Remove(path.Join(name, rec)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return res, kerrors.E(op, kerrors.KindIoFailure, fmt.Sprintf("removing %s/%s", name, rec), err)
		}
	}

	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		infos, readErr := s.fs.ReadDir(name)
		if readErr != nil {
			return res, kerrors.E(op, kerrors.KindIoFailure, fmt.Sprintf("removing session directory %s", name), err)
		}
		for _, fi := range infos {
			res.Leftover = append(res.Leftover, fi.Name())
		}
		slices.Sort(res.Leftover)
		return res, nil
	}
	res.DirRemoved = true
	return res, nil
}

func (s *FileStore) Rename(oldName, newName string) error {
	const op kerrors.Op = "registry.Rename"
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if !s.Exists(oldName) {
		return kerrors.E(op, kerrors.KindNotFound, fmt.Sprintf("session '%s' not found", oldName))
	}
	if _, err := s.fs.Stat(newName); err == nil {
		return kerrors.E(op, kerrors.KindAlreadyExists, fmt.Sprintf("session '%s' already exists", newName))
	}
	if err := s.fs.Rename(oldName, newName); err != nil {
		return kerrors.E(op, kerrors.KindIoFailure, fmt.Sprintf("renaming session %s to %s", oldName, newName), err)
	}
	return nil
}

func (s *FileStore) Active() (string, bool, error) {
	const op kerrors.Op = "registry.Active"
	data, err := util.ReadFile(s.fs, ActiveFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, kerrors.E(op, kerrors.KindIoFailure, "reading active session", err)
	}
	name := firstLine(data)
	if name == "" {
		return "", false, nil
	}
	return name, true, nil
}

func (s *FileStore) SetActive(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := writeLine(s.fs, ActiveFile, name); err != nil {
		return kerrors.E(kerrors.Op("registry.SetActive"), kerrors.KindIoFailure, "writing active session", err)
	}
	return nil
}

func (s *FileStore) ClearActive() error {
	if err := s.fs.Remove(ActiveFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return kerrors.E(kerrors.Op("registry.ClearActive"), kerrors.KindIoFailure, "removing active session marker", err)
	}
	return nil
}

func (s *FileStore) readRecord(name, rec string) (string, error) {
	data, err := util.ReadFile(s.fs, path.Join(name, rec))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err //nolint:wrapcheck // wrapped by caller with the record name
	}
	return firstLine(data), nil
}

func (s *FileStore) putRecord(op kerrors.Op, name, rec, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return kerrors.E(op, kerrors.KindNotFound, fmt.Sprintf("session '%s' not found", name))
	}
	if err := writeLine(s.fs, path.Join(name, rec), value); err != nil {
		return kerrors.E(op, kerrors.KindIoFailure, fmt.Sprintf("writing %s/%s", name, rec), err)
	}
	return nil
}

// writeLine writes value followed by a newline, the format every record uses.
func writeLine(fs billy.Filesystem, filename, value string) error {
	return util.WriteFile(fs, filename, []byte(value+"\n"), 0o644) //nolint:wrapcheck // wrapped by caller
}

// firstLine returns the first line of data without its line terminator.
func firstLine(data []byte) string {
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSuffix(line, "\r")
}
