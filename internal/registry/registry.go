package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/abhinavnagar29/synctext/internal/synctext"
)

// ErrRegistryOpen wraps any failure to open, size, or map the
// registry's shared-memory segment.
var ErrRegistryOpen = errors.New("registry: failed to open shared memory")

// ErrRegistryFull is returned by Register when no free slot exists
// and no slot already carries the requested user_id.
var ErrRegistryFull = errors.New("registry: no free slot")

// QueueProber opens a peer's advertised queue write-only and
// non-blocking, reporting whether it exists and is reachable. It is
// satisfied by queue.Probe in internal/queue; kept as a function type
// here so the registry package does not need to import the transport
// layer.
type QueueProber func(queueName string) bool

// Registry is a peer's handle onto the mapped participant table.
type Registry struct {
	file *os.File
	seg  *Segment
}

// OpenOrCreate maps the named shared-memory segment, creating and
// initializing it if it does not already exist or carries a stale
// magic value. name should be the POSIX shared-memory object name
// without special handling (e.g. "synctext_registry").
func OpenOrCreate(name string) (*Registry, error) {
	path := segmentPath(name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRegistryOpen, path, err)
	}

	if err := f.Truncate(SegmentSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: resize %s: %v", ErrRegistryOpen, path, err)
	}

	mem, err := mmapFile(f, SegmentSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrRegistryOpen, err)
	}

	seg := newSegmentView(mem)
	if seg.Magic() != synctext.RegistryMagic {
		seg.initialize()
	}

	return &Registry{file: f, seg: seg}, nil
}

// Close unmaps the segment and closes the backing file descriptor.
// It does not unlink the segment: the registry outlives any single
// peer process.
func (r *Registry) Close() error {
	err := munmap(r.seg.mem)
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Register claims a slot for userID, advertising queueName. If an
// active slot already carries userID (e.g. a restarted peer reusing
// its identity after a crash), its queue_name is overwritten and that
// slot index is returned instead of claiming a new one.
func (r *Registry) Register(userID, queueName string) (int, error) {
	for i := 0; i < synctext.MaxUsers; i++ {
		if r.seg.matchesUserID(i, userID) {
			if err := writeCString(r.seg.queueNameBytes(i), queueName); err != nil {
				return -1, err
			}
			return i, nil
		}
	}

	for i := 0; i < synctext.MaxUsers; i++ {
		if !r.seg.claim(i) {
			continue
		}
		if err := writeCString(r.seg.userIDBytes(i), userID); err != nil {
			r.seg.release(i)
			return -1, err
		}
		if err := writeCString(r.seg.queueNameBytes(i), queueName); err != nil {
			r.seg.release(i)
			return -1, err
		}
		return i, nil
	}

	return -1, ErrRegistryFull
}

// Unregister releases userID's slot, if any. Strings are cleared
// before the active flag so no observer sees a taken slot with an
// empty user_id.
func (r *Registry) Unregister(userID string) {
	for i := 0; i < synctext.MaxUsers; i++ {
		if r.seg.matchesUserID(i, userID) {
			r.seg.release(i)
			return
		}
	}
}

// List returns an advisory snapshot of every currently-active slot.
func (r *Registry) List() []Slot {
	out := make([]Slot, 0, synctext.MaxUsers)
	for i := 0; i < synctext.MaxUsers; i++ {
		if s := r.seg.snapshot(i); s.Active {
			out = append(out, s)
		}
	}
	return out
}

// LivePeers returns the active slots other than selfUserID whose
// advertised queue actually opens, per spec.md §4.2's queue-liveness
// probe. Stale registry entries left behind by a crashed peer are
// filtered out here rather than trusted at face value.
func (r *Registry) LivePeers(selfUserID string, probe QueueProber) []Slot {
	all := r.List()
	out := make([]Slot, 0, len(all))
	for _, s := range all {
		if s.UserID == selfUserID {
			continue
		}
		if s.QueueName == "" {
			continue
		}
		if probe(s.QueueName) {
			out = append(out, s)
		}
	}
	return out
}
