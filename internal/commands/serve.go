package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"

	"todolist/internal/app"
	"todolist/internal/exitcode"
	"todolist/internal/feed"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the websocket feed until interrupted.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve live task snapshots over a websocket" }
func (c *ServeCmd) Usage() string      { return "todolist serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsBackend() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = a.Config.Settings.Serve.Addr
	}

	// Sign-ins and sign-outs from other terminals reach the feed.
	if err := a.Session.Watch(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to listen on %s: %v\n", addr, err)
		return exitcode.UserError
	}
	if !a.Config.Quiet {
		fmt.Fprintf(out, "listening on http://%s\n", l.Addr())
	}

	srv := feed.NewServer(a.Sync, a.Config.Settings.Serve.AllowedOrigins, a.Logger)
	if err := srv.Serve(ctx, l); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
