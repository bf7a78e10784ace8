package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"todolist/internal/agenda"
	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/presets"
	"todolist/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due      string
	priority string
	preset   string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "todolist add [--due <when>] [--priority <p>] [--preset <category>:<n>] <title...>"
}
func (c *AddCmd) NeedsBackend() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.preset, "preset", "", "")
}

func (c *AddCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if c.preset != "" {
		category, n, err := presets.ParseRef(c.preset)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		item, err := presets.Builtin().Lookup(category, n)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		if strings.TrimSpace(title) == "" {
			title = item.Name
		}
	}
	if strings.TrimSpace(title) == "" {
		return usageError(errOut, "title required")
	}

	now := a.Now()
	var due time.Time
	if c.due != "" {
		var err error
		if due, err = agenda.ParseDue(c.due, now); err != nil {
			return usageError(errOut, "%v", err)
		}
	}
	var priority service.Priority
	if c.priority != "" {
		var err error
		if priority, err = service.ParsePriority(c.priority); err != nil {
			return usageError(errOut, "%v", err)
		}
	}

	task, err := agenda.NewTask(title, due, priority, now)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	if err := a.Sync.AddTask(ctx, "", task); err != nil {
		return Fail(errOut, err)
	}

	if !a.Config.Quiet {
		fmt.Fprintln(out, task.ID)
	}
	return exitcode.Success
}
