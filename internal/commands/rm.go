package commands

import (
	"context"
	"flag"
	"io"

	"todolist/internal/app"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. The delete is verified; a task that is
// still visible after every attempt exits with the verification code.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "todolist rm <ref>" }
func (c *RmCmd) NeedsBackend() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	task, err := resolveTask(ctx, a, ref)
	if err != nil {
		return Fail(errOut, err)
	}
	if err := a.Sync.DeleteTask(ctx, "", task.ID); err != nil {
		return Fail(errOut, err)
	}
	return ok(a, out)
}
