package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/output"
	"todolist/internal/presets"
)

func init() {
	Register(&PresetsCmd{})
}

// PresetsCmd lists the built-in habit presets.
type PresetsCmd struct{}

func (c *PresetsCmd) Name() string       { return "presets" }
func (c *PresetsCmd) Aliases() []string  { return nil }
func (c *PresetsCmd) Synopsis() string   { return "Browse preset habits (add one with add --preset)" }
func (c *PresetsCmd) Usage() string      { return "todolist presets [category]" }
func (c *PresetsCmd) NeedsBackend() bool { return false }

func (c *PresetsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PresetsCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	catalog := presets.Builtin()
	p := output.NewPrinter(out, a.Config.NoColor)

	if len(args) == 0 {
		p.CategoryNames(catalog.Names())
		return exitcode.Success
	}

	name := strings.Join(args, " ")
	category, found := catalog.Category(name)
	if !found {
		return usageError(errOut, "preset category not found: %s", name)
	}
	p.Category(category)
	return exitcode.Success
}
