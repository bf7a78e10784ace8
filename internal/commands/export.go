package commands

import (
	"context"
	"errors"
	"flag"
	"io"

	"todolist/internal/agenda"
	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/output"
	"todolist/internal/syncer"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd writes the profile and all tasks as JSON or YAML.
type ExportCmd struct {
	format string
}

func (c *ExportCmd) Name() string       { return "export" }
func (c *ExportCmd) Aliases() []string  { return nil }
func (c *ExportCmd) Synopsis() string   { return "Export tasks as JSON or YAML" }
func (c *ExportCmd) Usage() string      { return "todolist export [--format json|yaml]" }
func (c *ExportCmd) NeedsBackend() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", output.FormatJSON, "")
}

func (c *ExportCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if c.format != output.FormatJSON && c.format != output.FormatYAML {
		return usageError(errOut, "unknown format: %s (want json or yaml)", c.format)
	}

	tasks, err := a.Sync.FetchCollection(ctx, "")
	if err != nil {
		return Fail(errOut, err)
	}
	e := output.Export{Tasks: agenda.Order(tasks, a.Now())}

	profile, err := a.Sync.FetchProfile(ctx, "")
	switch {
	case err == nil:
		e.Profile = &profile
	case errors.Is(err, syncer.ErrProfileNotFound):
	default:
		return Fail(errOut, err)
	}

	if err := output.WriteExport(out, c.format, e); err != nil {
		return Fail(errOut, err)
	}
	return exitcode.Success
}
