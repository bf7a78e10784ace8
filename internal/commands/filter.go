package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todolist/internal/agenda"
	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/output"
	"todolist/internal/service"
)

func init() {
	Register(&FilterCmd{})
}

// FilterCmd implements the filter command. Task numbers are the ones `list`
// shows, so they can be used as references.
type FilterCmd struct{}

func (c *FilterCmd) Name() string      { return "filter" }
func (c *FilterCmd) Aliases() []string { return nil }
func (c *FilterCmd) Synopsis() string  { return "List tasks whose field equals a value" }
func (c *FilterCmd) Usage() string {
	return "todolist filter <" + strings.Join(service.TaskFields(), "|") + "> <value...>"
}
func (c *FilterCmd) NeedsBackend() bool { return true }

func (c *FilterCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *FilterCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		return usageError(errOut, "field and value required")
	}
	field := args[0]
	value, err := service.ParseFieldValue(field, strings.Join(args[1:], " "))
	if err != nil {
		return usageError(errOut, "%v", err)
	}

	all, err := a.Sync.FetchCollection(ctx, "")
	if err != nil {
		return Fail(errOut, err)
	}
	matched, err := a.Sync.FilterCollection(ctx, "", field, value)
	if err != nil {
		return Fail(errOut, err)
	}

	if len(matched) == 0 {
		if !a.Config.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	p := output.NewPrinter(out, a.Config.NoColor)
	if !a.Config.Quiet {
		p.Filter(field, value)
	}
	nums := numbers(all, a)
	now := a.Now()
	for _, t := range agenda.Order(matched, now) {
		p.Task(nums[t.ID], t, now.Location())
	}
	return exitcode.Success
}
