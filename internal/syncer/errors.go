package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition is returned when no identity is signed in, or the
	// requested owner is not the signed-in identity. No remote call is made.
	ErrPrecondition = errors.New("not signed in")

	// ErrRemote marks a failed call to the remote store.
	ErrRemote = errors.New("remote call failed")

	// ErrVerification is returned when a deleted document is still visible
	// after every attempt.
	ErrVerification = errors.New("delete not confirmed")

	// ErrInvalidTask is returned for tasks that cannot be written.
	ErrInvalidTask = errors.New("invalid task")

	// ErrTaskNotFound is returned when a task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProfileNotFound is returned when the user has no profile document.
	ErrProfileNotFound = errors.New("profile not found")
)

// RemoteError describes one failed store call.
type RemoteError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrRemote and the store's error.
func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemote, e.Err}
}

func remoteErr(op, path string, err error) error {
	return &RemoteError{Op: op, Path: path, Err: err}
}

// VerificationError reports a delete that was never confirmed.
type VerificationError struct {
	Path     string
	Attempts int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%v: %s still exists after %d attempts", ErrVerification, e.Path, e.Attempts)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerification
}
