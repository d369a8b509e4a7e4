package cli

import (
	"fmt"
	"os"
	"time"
)

type Middleware func(Command) Command

type WrappedCommand struct {
	Command
	Wrap func(ctx *Context) error
}

func (w *WrappedCommand) Run(ctx *Context) error {
	if w.Wrap != nil {
		return w.Wrap(ctx)
	}
	return w.Command.Run(ctx)
}

// ApplyMiddlewares wraps a command with any number of middlewares
func ApplyMiddlewares(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

// WithElapsed prints how long the wrapped command took.
func WithElapsed() Middleware {
	return func(cmd Command) Command {
		return &WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *Context) error {
				start := time.Now()
				err := cmd.Run(ctx)
				fmt.Fprintf(os.Stderr, "done in %s\n", time.Since(start).Round(time.Millisecond))
				return err
			},
		}
	}
}
