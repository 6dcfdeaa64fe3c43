// Package peer wires the registry, transport, document, and merge
// engine together into one running participant: the listener
// goroutine, the editor loop, and the startup/teardown sequence that
// spec.md §5 and §9 describe.
package peer

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	"github.com/abhinavnagar29/synctext/internal/document"
	"github.com/abhinavnagar29/synctext/internal/merge"
	"github.com/abhinavnagar29/synctext/internal/queue"
	"github.com/abhinavnagar29/synctext/internal/registry"
	"github.com/abhinavnagar29/synctext/internal/render"
	"github.com/abhinavnagar29/synctext/internal/ring"
	"github.com/abhinavnagar29/synctext/internal/synctext"
	"github.com/abhinavnagar29/synctext/internal/wire"
)

// Context holds one peer's entire runtime state. It is constructed
// once in main and threaded explicitly into the listener and the
// editor loop instead of living behind package-level globals, per
// spec.md §9's "Globals and lifecycle" design note.
type Context struct {
	UserID    string
	QueueName string

	Registry *registry.Registry
	OwnQueue *queue.Own
	Ring     *ring.Ring
	Doc      *document.Document
	Sink     render.Sink
	Log      *log.Logger

	CorrelationID string

	MergeBaseline []string
	LocalOps      []wire.OperationRecord
	LocalUnmerged []merge.Operation
	RecvUnmerged  []merge.Operation
	JustMerged    bool

	LastSender string
}

// Open performs the full startup sequence: open or create the
// registry, create this peer's own queue, register, seed and load the
// document. Kernel-object setup is retried with a bounded exponential
// backoff (three attempts) since EINTR and transient resource
// pressure can make an eventually-successful open fail on the first
// try; a startup failure that survives all retries is fatal to the
// caller.
func Open(userID string) (*Context, error) {
	cid := uuid.NewString()[:8]
	logger := log.New(os.Stderr, fmt.Sprintf("peer[%s/%s]: ", userID, cid), log.LstdFlags)

	queueName := synctext.QueueName(userID)

	var reg *registry.Registry
	if err := retry(func() error {
		r, err := registry.OpenOrCreate(synctext.RegistrySegmentName)
		if err != nil {
			return err
		}
		reg = r
		return nil
	}); err != nil {
		return nil, err
	}

	var own *queue.Own
	if err := retry(func() error {
		o, err := queue.CreateOwn(queueName)
		if err != nil {
			return err
		}
		own = o
		return nil
	}); err != nil {
		reg.Close()
		return nil, err
	}
	sink := render.NewLogSink(logger)
	sink.QueueCreated(queueName)

	if _, err := reg.Register(userID, queueName); err != nil {
		own.Close()
		queue.Unlink(queueName)
		reg.Close()
		return nil, err
	}
	sink.Registered(userID)

	docPath := synctext.DocPath(userID)
	if err := document.EnsureSeeded(docPath); err != nil {
		reg.Unregister(userID)
		own.Close()
		queue.Unlink(queueName)
		reg.Close()
		return nil, err
	}
	doc, err := document.Load(docPath)
	if err != nil {
		reg.Unregister(userID)
		own.Close()
		queue.Unlink(queueName)
		reg.Close()
		return nil, err
	}

	return &Context{
		UserID:        userID,
		QueueName:     queueName,
		Registry:      reg,
		OwnQueue:      own,
		Ring:          ring.New(synctext.RingCapacity),
		Doc:           doc,
		Sink:          sink,
		Log:           logger,
		CorrelationID: cid,
		MergeBaseline: append([]string(nil), doc.Lines...),
	}, nil
}

// retry wraps fn in a three-attempt bounded exponential backoff,
// giving transient kernel-object setup failures (EINTR, momentary
// resource pressure) a chance to resolve themselves before the caller
// treats them as fatal.
func retry(fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 400 * time.Millisecond
	return backoff.Retry(fn, backoff.WithMaxRetries(b, 2))
}

// Close unregisters the peer and releases its queue and registry
// handles. It is safe to call during signal-driven teardown or normal
// exit; partial failures (e.g. unlinking an already-missing queue)
// are logged, not propagated, matching spec.md §5's "ignored" cleanup
// policy.
func (c *Context) Close() {
	c.Registry.Unregister(c.UserID)
	if err := c.OwnQueue.Close(); err != nil {
		c.Log.Printf("close own queue: %v", err)
	}
	if err := queue.Unlink(c.QueueName); err != nil {
		c.Log.Printf("unlink own queue: %v", err)
	}
	if err := c.Registry.Close(); err != nil {
		c.Log.Printf("close registry: %v", err)
	}
}
