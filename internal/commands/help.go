package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todolist/internal/app"
	"todolist/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todolist help" }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todolist                                         List tasks due today and upcoming
  todolist list [common flags] [--refresh]
  todolist add [common flags] [--due <when>] [--priority <p>] [--preset <category>:<n>] <title...>
  todolist create ...                              Same as add
  todolist done [common flags] [--undo] <ref>
  todolist edit [common flags] [--title <t>] [--due <when>] [--priority <p>] <ref>
  todolist rm [common flags] <ref>
  todolist filter [common flags] <field> <value...>
  todolist presets [common flags] [category]
  todolist profile [common flags]
  todolist export [common flags] [--format json|yaml]
  todolist login [common flags] [--email <e> [--password-stdin]]
  todolist register [common flags] --name <n> --email <e> [--password-stdin]
  todolist logout [common flags]
  todolist delete-account [common flags] --confirm
  todolist serve [common flags] [--addr <host:port>]
  todolist help
  todolist version

<ref> is a task number as shown by list, or a task ID.
<when> is a date ("2026-05-12"), a date and time ("2026-05-12 18:00")
or a phrase ("tomorrow 9am", "next friday").

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
  --no-color       Disable colored output
`
