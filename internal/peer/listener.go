package peer

import (
	"context"
	"errors"
	"time"

	"github.com/abhinavnagar29/synctext/internal/queue"
	"github.com/abhinavnagar29/synctext/internal/synctext"
)

// Listen drains c.OwnQueue into c.Ring until ctx is canceled. It owns
// its own non-blocking receive loop: a "no message" outcome sleeps
// ListenerIdleSleep, any other receive error sleeps the longer
// ListenerErrorSleep, and a full ring silently drops the record
// (spec.md §4.2's documented ring overflow policy — there is no
// signal back to the sender).
func (c *Context) Listen(ctx context.Context) error {
	bufSize := c.OwnQueue.AttrMsgSize()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rec, err := c.OwnQueue.Receive(bufSize)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessage) {
				sleep(ctx, synctext.ListenerIdleSleep)
				continue
			}
			c.Log.Printf("listener: receive: %v", err)
			sleep(ctx, synctext.ListenerErrorSleep)
			continue
		}

		c.Ring.Push(rec) // dropped silently if full, per spec
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
