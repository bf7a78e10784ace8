package commands

import (
	"context"
	"flag"
	"io"

	"todolist/internal/app"
	"todolist/internal/auth"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd creates a local account and signs it in.
type RegisterCmd struct {
	name          string
	email         string
	passwordStdin bool
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create a local account" }
func (c *RegisterCmd) Usage() string {
	return "todolist register --name <n> --email <e> [--password-stdin]"
}
func (c *RegisterCmd) NeedsBackend() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *RegisterCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	password, err := readPassword(a, c.passwordStdin, errOut)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	if err := auth.ValidateRegistration(c.name, c.email, password); err != nil {
		return usageError(errOut, "%v", err)
	}

	if err := a.Connect(ctx); err != nil {
		return Fail(errOut, err)
	}
	rec, err := a.Local.Register(ctx, c.name, c.email, password)
	if err != nil {
		return Fail(errOut, err)
	}
	return finishSignIn(ctx, a, rec, out, errOut)
}
