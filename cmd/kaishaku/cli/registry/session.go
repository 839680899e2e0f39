package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
)

// HeadMarker is the head_ref value meaning "resolve from the live working
// tree at use time". It is written after branch and save, which leave the
// working tree on a real branch.
const HeadMarker = "HEAD"

// Record file names inside a session directory. These names are part of the
// on-disk format and must not change.
const (
	OriginalBranchFile = "session"
	HeadFile           = "head"
	TimeFile           = "time"
	DescriptionFile    = "desc"
)

// RecordFiles lists every record a session directory may hold.
var RecordFiles = []string{OriginalBranchFile, HeadFile, TimeFile, DescriptionFile}

// Session is one registry entry. Empty string fields mean the record is
// absent (or empty on disk, which is treated the same way).
type Session struct {
	Name           string
	OriginalBranch string
	HeadRef        string
	// LastModified is zero when the time record is absent or unparsable.
	LastModified time.Time
	Description  string
}

// IsCorrupted reports whether a required record is missing.
func (s *Session) IsCorrupted() bool {
	return s.OriginalBranch == "" || s.HeadRef == ""
}

// Missing returns the names of the required records that are absent.
func (s *Session) Missing() []string {
	var missing []string
	if s.OriginalBranch == "" {
		missing = append(missing, OriginalBranchFile)
	}
	if s.HeadRef == "" {
		missing = append(missing, HeadFile)
	}
	return missing
}

// TracksLiveHead reports whether the head record is the HEAD marker.
func (s *Session) TracksLiveHead() bool {
	return s.HeadRef == HeadMarker
}

// ValidateName checks that name can be used as a session directory name.
func ValidateName(name string) error {
	const op kerrors.Op = "registry.ValidateName"
	switch {
	case name == "":
		return kerrors.E(op, kerrors.KindInvalid, "session name cannot be empty")
	case name == "." || name == "..":
		return kerrors.E(op, kerrors.KindInvalid, fmt.Sprintf("invalid session name %q", name))
	case strings.HasPrefix(name, "."):
		return kerrors.E(op, kerrors.KindInvalid, fmt.Sprintf("session name %q cannot start with '.'", name))
	case strings.ContainsAny(name, "/\\\x00\n\r"):
		return kerrors.E(op, kerrors.KindInvalid, fmt.Sprintf("session name %q contains invalid characters", name))
	}
	return nil
}
