// Package queue wraps the per-peer POSIX message queues that carry
// wire.OperationRecord values between processes: each peer owns one
// read-only, non-blocking queue named "/queue_<user_id>", and opens
// write-only, non-blocking handles onto its peers' queues to send.
package queue

import (
	"errors"
	"fmt"

	"github.com/abhinavnagar29/synctext/internal/synctext"
	"github.com/abhinavnagar29/synctext/internal/wire"
)

// ErrQueueOpen wraps a failure to create or open a peer's own queue.
var ErrQueueOpen = errors.New("queue: failed to open own message queue")

// ErrSendFailed is returned by Send when a non-blocking send to a
// peer's queue does not succeed (full queue, peer gone, etc.). It is
// expected to be non-fatal: the caller skips that peer and continues.
var ErrSendFailed = errors.New("queue: send failed")

// ErrNoMessage is returned by Receive when the queue is empty. It is
// the "no messages available" outcome that spec.md §4.2 distinguishes
// from other receive errors for the listener's backoff choice.
var ErrNoMessage = errors.New("queue: no message available")

// Own is a peer's handle onto its own receive queue.
type Own struct {
	fd int
}

// Sender is a write-only, non-blocking handle onto a peer's queue,
// used only for sending a broadcast batch before being closed.
type Sender struct {
	fd int
}

// MessageSize is the exact mqueue message size SyncText uses: the
// marshaled size of one wire.OperationRecord.
const MessageSize = wire.RecordSize

// CreateOwn unlinks any stale queue with this name, then creates a
// fresh read-only, non-blocking queue with capacity
// synctext.QueueCapacity and message size MessageSize.
func CreateOwn(name string) (*Own, error) {
	fd, err := createOwnQueue(name, synctext.QueueCapacity, MessageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueueOpen, name, err)
	}
	return &Own{fd: fd}, nil
}

// Close closes the queue descriptor without unlinking the queue
// object; call Unlink separately during cleanup.
func (o *Own) Close() error {
	if o == nil || o.fd < 0 {
		return nil
	}
	return closeFD(o.fd)
}

// Receive attempts one non-blocking receive. ErrNoMessage distinguishes
// the "nothing to read" outcome from any other failure, so the
// listener can choose its sleep duration accordingly.
func (o *Own) Receive(bufSize int) (wire.OperationRecord, error) {
	buf := make([]byte, bufSize)
	n, err := receiveNonBlocking(o.fd, buf)
	if err != nil {
		if errors.Is(err, errAgain) {
			return wire.OperationRecord{}, ErrNoMessage
		}
		return wire.OperationRecord{}, err
	}
	return wire.Unmarshal(buf[:n])
}

// AttrMsgSize returns the message size this queue was created or
// opened with, falling back to MessageSize if the kernel attribute
// query fails (spec.md §4.2: "fall back to sizeof(OperationRecordWire)").
func (o *Own) AttrMsgSize() int {
	n, err := queueMsgSize(o.fd)
	if err != nil || n <= 0 {
		return MessageSize
	}
	return n
}

// OpenSender opens name write-only and non-blocking, for sending a
// broadcast batch to one peer.
func OpenSender(name string) (*Sender, error) {
	fd, err := openSendOnly(name)
	if err != nil {
		return nil, err
	}
	return &Sender{fd: fd}, nil
}

// Send attempts one non-blocking send of rec.
func (s *Sender) Send(rec wire.OperationRecord) error {
	buf, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrSendFailed, err)
	}
	if err := sendNonBlocking(s.fd, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Close closes the sender handle.
func (s *Sender) Close() error {
	if s == nil || s.fd < 0 {
		return nil
	}
	return closeFD(s.fd)
}

// Probe reports whether name's queue can be opened write-only and
// non-blocking right now (it is immediately closed again). Used by
// the registry's LivePeers to filter stale entries.
func Probe(name string) bool {
	s, err := OpenSender(name)
	if err != nil {
		return false
	}
	s.Close()
	return true
}

// Unlink removes the named queue object. Failure to unlink an
// already-missing queue is ignored by callers, per spec.md §5.
func Unlink(name string) error {
	return unlinkQueue(name)
}
