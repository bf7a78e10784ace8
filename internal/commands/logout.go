package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Sign out and remove stored credentials" }
func (c *LogoutCmd) Usage() string      { return "todolist logout" }
func (c *LogoutCmd) NeedsBackend() bool { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	_, signedIn := a.Identity()
	hasToken := a.Config.HasToken()
	if !signedIn && !hasToken {
		if !a.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if code := signOut(a, errOut); code != exitcode.Success {
		return code
	}
	return ok(a, out)
}

// signOut removes the session and the Google token.
func signOut(a *app.App, errOut io.Writer) int {
	if err := a.Session.SignOut(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if a.Config.HasToken() {
		if err := a.Config.RemoveToken(); err != nil {
			fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
			return exitcode.AuthError
		}
	}
	return exitcode.Success
}
