package commands

import (
	"context"
	"flag"
	"io"

	"todolist/internal/app"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	undo bool
}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return nil }
func (c *DoneCmd) Synopsis() string   { return "Mark a task done (or not done with --undo)" }
func (c *DoneCmd) Usage() string      { return "todolist done [--undo] <ref>" }
func (c *DoneCmd) NeedsBackend() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.undo, "undo", false, "")
}

func (c *DoneCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	task, err := resolveTask(ctx, a, ref)
	if err != nil {
		return Fail(errOut, err)
	}
	if _, err := a.Sync.SetDone(ctx, "", task.ID, !c.undo); err != nil {
		return Fail(errOut, err)
	}
	return ok(a, out)
}
