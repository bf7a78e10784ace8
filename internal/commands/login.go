package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/auth"
	"todolist/internal/exitcode"
	"todolist/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd signs in with Google, or with a local account when --email is given.
type LoginCmd struct {
	email         string
	passwordStdin bool
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in with Google or a local account" }
func (c *LoginCmd) Usage() string      { return "todolist login [--email <e> [--password-stdin]]" }
func (c *LoginCmd) NeedsBackend() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	if c.email != "" {
		return c.loginLocal(ctx, a, out, errOut)
	}
	if c.passwordStdin {
		return usageError(errOut, "--password-stdin requires --email")
	}
	return c.loginGoogle(ctx, a, out, errOut)
}

func (c *LoginCmd) loginLocal(ctx context.Context, a *app.App, out, errOut io.Writer) int {
	password, err := readPassword(a, c.passwordStdin, errOut)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	if err := auth.ValidateLogin(c.email, password); err != nil {
		return usageError(errOut, "%v", err)
	}
	if err := a.Connect(ctx); err != nil {
		return Fail(errOut, err)
	}
	rec, err := a.Local.Login(ctx, c.email, password)
	if err != nil {
		return Fail(errOut, err)
	}
	return finishSignIn(ctx, a, rec, out, errOut)
}

func (c *LoginCmd) loginGoogle(ctx context.Context, a *app.App, out, errOut io.Writer) int {
	if id, signedIn := a.Identity(); signedIn && a.Config.HasToken() && auth.TokenValid(ctx, a.Config) {
		if !a.Config.Quiet {
			fmt.Fprintf(out, "already logged in as %s\n", id.Email)
		}
		return exitcode.Success
	}

	if err := a.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	rec, err := auth.NewGoogle(a.Config, errOut).Login(ctx)
	if errors.Is(err, auth.ErrNoOAuthClient) {
		printOAuthHelp(a, errOut)
		return exitcode.AuthError
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	return finishSignIn(ctx, a, rec, out, errOut)
}

// finishSignIn persists the session and makes sure the profile exists.
func finishSignIn(ctx context.Context, a *app.App, rec session.Record, out, errOut io.Writer) int {
	if err := a.Session.SignIn(rec); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if err := a.Connect(ctx); err != nil {
		return Fail(errOut, err)
	}
	if _, err := a.EnsureProfile(ctx, rec); err != nil {
		return Fail(errOut, err)
	}
	a.Logger.Info("signed in", "provider", rec.Provider, "user", rec.UserID)
	if !a.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", rec.Email)
	}
	return exitcode.Success
}

func printOAuthHelp(a *app.App, errOut io.Writer) {
	fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n\n", a.Config.Dir)
	fmt.Fprintln(errOut, "To sign in with Google, you need OAuth credentials:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(errOut, "2. Select the project that holds your Firestore database")
	fmt.Fprintln(errOut, "3. Create OAuth 2.0 credentials:")
	fmt.Fprintln(errOut, "   - Click 'Create Credentials' > 'OAuth client ID'")
	fmt.Fprintln(errOut, "   - Choose 'Desktop app' as application type")
	fmt.Fprintln(errOut, "   - Download the JSON file")
	fmt.Fprintln(errOut, "4. Save it as:")
	fmt.Fprintf(errOut, "   %s/oauth_client.json\n", a.Config.Dir)
	fmt.Fprintln(errOut, "")
	fmt.Fprintf(errOut, "Then run '%s login' again, or use a local account: %s register --help\n", appName, appName)
}
