package commands

import (
	"context"
	"flag"
	"io"

	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/output"
)

func init() {
	Register(&ProfileCmd{})
}

// ProfileCmd prints the signed-in user's profile.
type ProfileCmd struct{}

func (c *ProfileCmd) Name() string       { return "profile" }
func (c *ProfileCmd) Aliases() []string  { return []string{"whoami"} }
func (c *ProfileCmd) Synopsis() string   { return "Show your profile" }
func (c *ProfileCmd) Usage() string      { return "todolist profile" }
func (c *ProfileCmd) NeedsBackend() bool { return true }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProfileCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	profile, err := a.Sync.FetchProfile(ctx, "")
	if err != nil {
		return Fail(errOut, err)
	}
	output.NewPrinter(out, a.Config.NoColor).Profile(profile, a.Now().Location())
	return exitcode.Success
}
