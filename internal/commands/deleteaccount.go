package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/auth"
	"todolist/internal/exitcode"
	"todolist/internal/syncer"
)

func init() {
	Register(&DeleteAccountCmd{})
}

// DeleteAccountCmd deletes every task and the profile of the signed-in
// user, then signs out.
type DeleteAccountCmd struct {
	confirm bool
}

func (c *DeleteAccountCmd) Name() string       { return "delete-account" }
func (c *DeleteAccountCmd) Aliases() []string  { return nil }
func (c *DeleteAccountCmd) Synopsis() string   { return "Delete your tasks, profile and account" }
func (c *DeleteAccountCmd) Usage() string      { return "todolist delete-account --confirm" }
func (c *DeleteAccountCmd) NeedsBackend() bool { return true }

func (c *DeleteAccountCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.confirm, "confirm", false, "")
}

func (c *DeleteAccountCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if !c.confirm {
		return usageError(errOut, "this deletes all your tasks; rerun with --confirm")
	}
	id, signedIn := a.Identity()
	if !signedIn {
		return Fail(errOut, syncer.ErrPrecondition)
	}
	rec, err := a.Session.Load()
	if err != nil {
		return Fail(errOut, err)
	}

	if err := a.Sync.DeleteAccount(ctx, id.UserID); err != nil {
		return Fail(errOut, err)
	}
	if rec.Provider == auth.ProviderLocal {
		if err := a.Local.Forget(ctx, id.Email); err != nil {
			return Fail(errOut, fmt.Errorf("%w: %w", syncer.ErrRemote, err))
		}
	}

	if code := signOut(a, errOut); code != exitcode.Success {
		return code
	}
	return ok(a, out)
}
