package peer

import (
	"context"
	"time"

	"github.com/abhinavnagar29/synctext/internal/merge"
	"github.com/abhinavnagar29/synctext/internal/queue"
	"github.com/abhinavnagar29/synctext/internal/registry"
	"github.com/abhinavnagar29/synctext/internal/render"
	"github.com/abhinavnagar29/synctext/internal/synctext"
	"github.com/abhinavnagar29/synctext/internal/wire"
)

// Run executes the editor loop until ctx is canceled: refresh peers,
// drain received operations, check for a local file change, merge if
// triggered, broadcast if triggered, sleep one poll interval. This is
// the control flow spec.md §2 names exactly.
func (c *Context) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.runIteration()

		sleep(ctx, synctext.PollInterval)
	}
}

func (c *Context) runIteration() {
	peers := c.Registry.LivePeers(c.UserID, queue.Probe)

	if c.drainRing() {
		c.Sink.ReceivedFrom(c.LastSender)
		c.Sink.Render(c.Doc.Path, c.Doc.Lines, render.PeersFromSlots(peers), nil)
	}

	c.detectLocalChanges()

	// Consumed once per iteration; its only real effect already
	// happened by way of last_mtime being updated at writeback time,
	// which is what actually prevents a merge writeback from being
	// re-diffed as a fresh user edit.
	c.JustMerged = false

	c.runMerge()

	// A second drain-and-merge pass absorbs anything that arrived
	// while the first merge was in flight, per spec.md §4.4.
	if c.drainRing() {
		c.Sink.ReceivedFrom(c.LastSender)
	}
	c.runMerge()

	c.maybeBroadcast(peers)
}

// drainRing moves every currently-queued received record into
// c.RecvUnmerged, skipping the peer's own echoes, and records the most
// recent sender. It reports whether anything was drained.
func (c *Context) drainRing() bool {
	got := false
	for {
		rec, ok := c.Ring.Pop()
		if !ok {
			break
		}
		if rec.Sender == c.UserID {
			continue
		}
		c.RecvUnmerged = append(c.RecvUnmerged, merge.FromRecord(rec))
		c.LastSender = rec.Sender
		got = true
	}
	return got
}

// detectLocalChanges diffs the document against its previous state
// (if its mtime moved on) and appends the results to both LocalOps
// (wire form, for broadcast) and LocalUnmerged (merge form, for
// reconciliation).
func (c *Context) detectLocalChanges() {
	prev, changed, err := c.Doc.Changed()
	if err != nil {
		c.Log.Printf("stat %s: %v", c.Doc.Path, err)
		return
	}
	if !changed {
		return
	}

	changes, err := c.Doc.Diff(prev)
	if err != nil {
		c.Log.Printf("diff: %v (skipping the offending change)", err)
	}

	now := uint64(time.Now().UnixNano())
	var last *render.LastChange
	for _, ch := range changes {
		rec := ch.ToRecord(c.UserID, now)
		c.LocalOps = append(c.LocalOps, rec)
		c.LocalUnmerged = append(c.LocalUnmerged, merge.FromRecord(rec))
		last = &render.LastChange{
			Line: ch.Line, ColStart: ch.ColStart, ColEnd: ch.ColEnd,
			OldText: ch.OldText, NewText: ch.NewText,
		}
	}
	if last != nil {
		c.Sink.Render(c.Doc.Path, c.Doc.Lines, nil, last)
	}
}

// runMerge performs one merge attempt if the trigger policy fires
// (recvUnmerged non-empty, or localUnmerged at or above
// MergeThreshold) and the document is not currently dirty (spec.md
// §4.4's merge guard, property P7). It reports whether a writeback
// happened.
func (c *Context) runMerge() bool {
	shouldMerge := len(c.RecvUnmerged) > 0 || len(c.LocalUnmerged) >= synctext.MergeThreshold
	if !shouldMerge {
		return false
	}

	dirty, err := c.Doc.IsDirty()
	if err != nil {
		c.Log.Printf("dirty check: %v", err)
		return false
	}
	if dirty {
		return false
	}

	merged, changed := merge.Apply(c.MergeBaseline, c.LocalUnmerged, c.RecvUnmerged)
	c.LocalUnmerged = nil
	c.RecvUnmerged = nil
	if !changed {
		return false
	}

	if err := c.Doc.WriteAtomic(merged); err != nil {
		c.Log.Printf("writeback: %v", err)
		return false
	}
	c.MergeBaseline = append([]string(nil), c.Doc.Lines...)
	c.JustMerged = true

	c.Sink.MergedSuccessfully()
	c.Sink.Render(c.Doc.Path, c.Doc.Lines, nil, nil)

	// Lets the filesystem's mtime resolution settle before the next
	// iteration's comparison, per spec.md §4.4 Step 6.
	time.Sleep(synctext.PostMergeSettle)
	return true
}

// maybeBroadcast sends the first BroadcastBatchSize queued operations
// to every reachable peer once LocalOps reaches BroadcastThreshold,
// then drops exactly that many from the front regardless of how many
// peers actually received them.
func (c *Context) maybeBroadcast(peers []registry.Slot) {
	if len(c.LocalOps) < synctext.BroadcastThreshold {
		return
	}

	c.Sink.Broadcasting(synctext.BroadcastBatchSize)

	batch, remaining := splitBatch(c.LocalOps, synctext.BroadcastBatchSize)

	for _, p := range peers {
		sender, err := queue.OpenSender(p.QueueName)
		if err != nil {
			continue
		}
		for _, rec := range batch {
			if err := sender.Send(rec); err != nil {
				continue
			}
		}
		sender.Close()
	}

	c.LocalOps = remaining
}

// splitBatch returns the first n records (or all of them, if fewer
// than n are queued) and the rest, which remain queued for the next
// broadcast threshold regardless of how many peers actually received
// this batch — spec.md §4.2's "remove exactly 5... leftovers remain".
func splitBatch(ops []wire.OperationRecord, n int) (batch, remaining []wire.OperationRecord) {
	if len(ops) <= n {
		return ops, nil
	}
	return ops[:n], append([]wire.OperationRecord(nil), ops[n:]...)
}
