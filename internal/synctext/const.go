// Package synctext holds the tunables and shared constants that every
// other package in this module needs, so none of them have to agree on
// magic numbers by convention alone.
package synctext

import "time"

const (
	// MaxUsers is the fixed number of slots in the registry segment.
	MaxUsers = 5

	// UserIDMax is the total byte size of a user_id field, including
	// its terminating NUL (31 payload bytes + 1).
	UserIDMax = 32

	// QueueNameMax is the total byte size of a queue_name field,
	// including its terminating NUL (63 payload bytes + 1).
	QueueNameMax = 64

	// TextSegMax is the total byte size of old_text/new_text fields in
	// the wire-form operation record, including the terminating NUL
	// (255 payload bytes + 1).
	TextSegMax = 256

	// QueueCapacity is the maximum number of messages a peer's own
	// message queue can hold before sends to it start failing.
	QueueCapacity = 10

	// RingCapacity is the number of slots in the listener-to-loop SPSC
	// ring buffer. One slot is always kept empty to distinguish full
	// from empty, so the ring holds at most RingCapacity-1 items.
	RingCapacity = 128

	// BroadcastThreshold is the local_ops size at which the editor
	// loop broadcasts a batch to every reachable peer.
	BroadcastThreshold = 5

	// BroadcastBatchSize is how many queued operations are sent to
	// each peer per broadcast, and how many are dropped from the
	// front of local_ops afterward regardless of per-peer outcome.
	BroadcastBatchSize = 5

	// MergeThreshold is the local_unmerged size that triggers a merge
	// even with no received operations pending.
	MergeThreshold = 5

	// PollInterval is the fixed sleep between editor loop iterations.
	PollInterval = 2 * time.Second

	// PostMergeSettle is slept after a successful merge writeback to
	// let the filesystem's mtime resolution catch up before the next
	// mtime comparison.
	PostMergeSettle = 200 * time.Millisecond

	// ListenerIdleSleep is slept by the listener after a "no messages
	// available" receive attempt.
	ListenerIdleSleep = 50 * time.Millisecond

	// ListenerErrorSleep is slept by the listener after any receive
	// error other than "no messages available".
	ListenerErrorSleep = 100 * time.Millisecond

	// RegistrySegmentName is the POSIX shared-memory object name for
	// the participant registry.
	RegistrySegmentName = "synctext_registry"

	// RegistryMagic identifies an initialized registry segment ("SYXT").
	RegistryMagic uint32 = 0x53595854

	// RegistryVersion is the current registry segment layout version.
	RegistryVersion uint32 = 1
)

// QueueName returns the POSIX message queue name for a user_id, e.g.
// "/queue_alice".
func QueueName(userID string) string {
	return "/queue_" + userID
}

// DocPath returns the on-disk document path for a user_id, e.g.
// "alice_doc.txt" in the current working directory.
func DocPath(userID string) string {
	return userID + "_doc.txt"
}
