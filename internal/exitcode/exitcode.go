// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, not signed in).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/network error.
	BackendError = 3

	// VerifyError indicates a delete that was never confirmed by the backend.
	VerifyError = 4
)
