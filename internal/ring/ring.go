// Package ring implements the fixed-capacity single-producer /
// single-consumer ring buffer that hands received operation records
// from the listener goroutine to the editor loop. Unlike the
// registry and the message queues, this ring lives in ordinary
// process memory — the producer and consumer are two goroutines in
// the same peer process, not two processes — so plain sync/atomic
// head/tail indices give the same acquire/release handoff spec.md
// §4.2 specifies without needing shared memory.
package ring

import (
	"sync/atomic"

	"github.com/abhinavnagar29/synctext/internal/wire"
)

// Ring is a bounded SPSC queue of wire.OperationRecord values. Its
// usable capacity is cap-1 slots: head==tail means empty, and
// (head+1)%cap==tail means full, so one slot is always sacrificed to
// tell the two states apart without a separate counter.
type Ring struct {
	buf  []wire.OperationRecord
	head atomic.Uint64 // producer-owned write cursor
	tail atomic.Uint64 // consumer-owned read cursor
}

// New returns a Ring with room for capacity-1 items.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{buf: make([]wire.OperationRecord, capacity)}
}

// Push appends v to the ring. It returns false without blocking if
// the ring is full; the caller (the listener) is expected to drop the
// record silently on that outcome, per spec.md §4.2's ring overflow
// policy.
func (r *Ring) Push(v wire.OperationRecord) bool {
	cap := uint64(len(r.buf))
	h := r.head.Load()
	n := (h + 1) % cap
	if n == r.tail.Load() {
		return false
	}
	r.buf[h] = v
	// Release: the value at r.buf[h] must be visible to the consumer
	// before it observes the advanced head.
	r.head.Store(n)
	return true
}

// Pop removes and returns the oldest item, if any.
func (r *Ring) Pop() (wire.OperationRecord, bool) {
	cap := uint64(len(r.buf))
	t := r.tail.Load()
	// Acquire: pair with the producer's release store on head.
	if t == r.head.Load() {
		return wire.OperationRecord{}, false
	}
	v := r.buf[t]
	r.tail.Store((t + 1) % cap)
	return v, true
}

// Len returns a point-in-time estimate of the number of queued items.
// Safe to call from either side; the result may be stale by the time
// the caller acts on it.
func (r *Ring) Len() int {
	cap := uint64(len(r.buf))
	h := r.head.Load()
	t := r.tail.Load()
	return int((h - t + cap) % cap)
}
