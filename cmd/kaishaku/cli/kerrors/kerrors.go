// Package kerrors provides the structured error type shared by the registry,
// the VCS gateway and the session controller. Each error carries the operation
// that failed and a Kind that callers can branch on.
package kerrors

import (
	"errors"
	"fmt"
)

// Op describes an operation, usually as "package.Function".
type Op string

// Kind categorizes an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindCorrupted
	KindVcsFailure
	KindMergeConflict
	KindInvalidState
	KindIoFailure
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindCorrupted:
		return "corrupted"
	case KindVcsFailure:
		return "git failure"
	case KindMergeConflict:
		return "merge conflict"
	case KindInvalidState:
		return "invalid state"
	case KindIoFailure:
		return "I/O error"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound      = &kindError{KindNotFound}
	ErrAlreadyExists = &kindError{KindAlreadyExists}
	ErrCorrupted     = &kindError{KindCorrupted}
	ErrVcsFailure    = &kindError{KindVcsFailure}
	ErrMergeConflict = &kindError{KindMergeConflict}
	ErrInvalidState  = &kindError{KindInvalidState}
	ErrIoFailure     = &kindError{KindIoFailure}
	ErrInvalid       = &kindError{KindInvalid}
)

type kindError struct{ kind Kind }

func (k *kindError) Error() string { return k.kind.String() }

// Error is the structured error type.
type Error struct {
	Op      Op     // Operation that failed
	Kind    Kind   // Category of error
	Err     error  // Underlying error
	Context string // Additional context
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Context, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) and friends work for any *Error of
// the matching kind.
func (e *Error) Is(target error) bool {
	var k *kindError
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

// E creates a new Error. Arguments can be:
// - Op: the operation name
// - Kind: the error kind
// - string: context message
// - error: the underlying error
//
// When no underlying error is given the context becomes the message.
func E(args ...any) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case string:
			e.Context = a
		case error:
			e.Err = a
		}
	}
	if e.Err == nil {
		e.Err = errors.New(e.Context)
		e.Context = ""
	}
	return e
}

// Is reports whether err is of the given Kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetKind returns the Kind of the outermost *Error in err's chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetOp returns the Op of the outermost *Error in err's chain.
func GetOp(err error) Op {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
