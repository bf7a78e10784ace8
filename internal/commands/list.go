package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command, also run for `todolist` with no args.
type ListCmd struct {
	refresh bool
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks due today and upcoming" }
func (c *ListCmd) Usage() string      { return "todolist list [--refresh]" }
func (c *ListCmd) NeedsBackend() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.refresh, "refresh", false, "")
}

func (c *ListCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}

	fetch := a.Sync.FetchCollection
	if c.refresh {
		fetch = a.Sync.Refresh
	}
	tasks, err := fetch(ctx, "")
	if err != nil {
		return Fail(errOut, err)
	}

	if len(tasks) == 0 {
		if !a.Config.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	p := output.NewPrinter(out, a.Config.NoColor)
	p.Agenda(tasks, a.Now())
	if !a.Config.Quiet {
		p.Progress(tasks)
	}
	return exitcode.Success
}
