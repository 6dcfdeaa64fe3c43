package peer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunUntilCanceled joins the listener and the editor loop under one
// errgroup so ctx cancellation (typically from a signal handler)
// reliably stops both goroutines, and an error returned by either one
// cancels the other rather than leaking it. This replaces
// the source's detached, unjoined listener thread per spec.md §9's
// "a rewrite should instead own the thread and join it" design note.
func (c *Context) RunUntilCanceled(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Listen(ctx)
	})
	g.Go(func() error {
		return c.Run(ctx)
	})

	return g.Wait()
}
