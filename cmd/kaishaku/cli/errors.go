package cli

import "errors"

// SilentError wraps an error whose message the command already printed.
// main skips printing it again but still exits non-zero.
type SilentError struct {
	Err error
}

// NewSilentError wraps err so it is not printed twice.
func NewSilentError(err error) *SilentError {
	return &SilentError{Err: err}
}

func (e *SilentError) Error() string {
	return e.Err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.Err
}

// IsSilent reports whether err has already been shown to the user.
func IsSilent(err error) bool {
	var silent *SilentError
	return errors.As(err, &silent)
}
