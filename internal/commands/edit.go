package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"todolist/internal/agenda"
	"todolist/internal/app"
	"todolist/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	title    string
	due      string
	priority string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, due date or priority" }
func (c *EditCmd) Usage() string {
	return "todolist edit [--title <t>] [--due <when>] [--priority <p>] <ref>"
}
func (c *EditCmd) NeedsBackend() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
}

func (c *EditCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	if c.title == "" && c.due == "" && c.priority == "" {
		return usageError(errOut, "nothing to change (use --title, --due or --priority)")
	}

	task, err := resolveTask(ctx, a, ref)
	if err != nil {
		return Fail(errOut, err)
	}
	if c.title != "" {
		if strings.TrimSpace(c.title) == "" {
			return usageError(errOut, "%v", agenda.ErrEmptyTitle)
		}
		task.Title = strings.TrimSpace(c.title)
	}
	if c.due != "" {
		due, err := agenda.ParseDue(c.due, a.Now())
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		task.DueDate = due.UTC()
	}
	if c.priority != "" {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		task.Priority = p
	}

	if err := a.Sync.UpdateTask(ctx, "", task); err != nil {
		return Fail(errOut, err)
	}
	return ok(a, out)
}
