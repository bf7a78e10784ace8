package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/auth"
	"todolist/internal/exitcode"
	"todolist/internal/service"
	"todolist/internal/syncer"
)

// Fail prints err in the CLI's "error: ..." format and returns its exit code.
func Fail(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, syncer.ErrPrecondition):
		fmt.Fprintf(errOut, "error: not logged in (run: %s login)\n", appName)
		return exitcode.UserError
	case errors.Is(err, syncer.ErrVerification):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.VerifyError
	case errors.Is(err, service.ErrPermission),
		errors.Is(err, app.ErrAuth),
		errors.Is(err, auth.ErrNoOAuthClient),
		errors.Is(err, auth.ErrInvalidCredentials):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, syncer.ErrRemote),
		errors.Is(err, service.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
}

// usageError prints msg and returns the user error code.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// ok prints the success marker unless --quiet.
func ok(a *app.App, out io.Writer) int {
	if !a.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
