// Package registry implements the participant registry: a fixed-size
// table of active-peer slots living in a POSIX shared-memory segment,
// claimed and released with a single atomic compare-and-swap per slot
// and no other locking.
package registry

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/abhinavnagar29/synctext/internal/synctext"
)

// slotSize is the byte size of one on-disk slot: active(4) +
// user_id(32) + queue_name(64).
const slotSize = 4 + synctext.UserIDMax + synctext.QueueNameMax

// headerSize is magic(4) + version(4).
const headerSize = 8

// SegmentSize is the total byte size of the registry segment.
const SegmentSize = headerSize + synctext.MaxUsers*slotSize

const (
	slotActive      = 0
	slotFree   uint32 = 0
	slotTaken  uint32 = 1
)

// Slot is a read-only snapshot of one registry entry, safe to use
// after the registry it was read from has been closed.
type Slot struct {
	Active    bool
	UserID    string
	QueueName string
}

// Segment is a mapped view of the registry's shared-memory bytes. All
// field access goes through sync/atomic so that concurrent peers
// racing on the same memory never observe a torn read/write of a
// single field; payload strings (user_id, queue_name) are not
// protected beyond that and are documented as racy-by-design (see
// spec.md §4.1).
type Segment struct {
	mem []byte
}

func newSegmentView(mem []byte) *Segment {
	if len(mem) < SegmentSize {
		panic("registry: mapped segment smaller than SegmentSize")
	}
	return &Segment{mem: mem}
}

func (s *Segment) magicPtr() *uint32   { return (*uint32)(unsafe.Pointer(&s.mem[0])) }
func (s *Segment) versionPtr() *uint32 { return (*uint32)(unsafe.Pointer(&s.mem[4])) }

func (s *Segment) slotOffset(i int) int { return headerSize + i*slotSize }

func (s *Segment) activePtr(i int) *uint32 {
	off := s.slotOffset(i) + slotActive
	return (*uint32)(unsafe.Pointer(&s.mem[off]))
}

func (s *Segment) userIDBytes(i int) []byte {
	off := s.slotOffset(i) + 4
	return s.mem[off : off+synctext.UserIDMax]
}

func (s *Segment) queueNameBytes(i int) []byte {
	off := s.slotOffset(i) + 4 + synctext.UserIDMax
	return s.mem[off : off+synctext.QueueNameMax]
}

// Magic returns the segment's magic sentinel.
func (s *Segment) Magic() uint32 { return atomic.LoadUint32(s.magicPtr()) }

// Version returns the segment's layout version.
func (s *Segment) Version() uint32 { return atomic.LoadUint32(s.versionPtr()) }

// initialize stamps a freshly created (or reset) segment with the
// magic, version and all-free slots.
func (s *Segment) initialize() {
	atomic.StoreUint32(s.versionPtr(), synctext.RegistryVersion)
	for i := 0; i < synctext.MaxUsers; i++ {
		atomic.StoreUint32(s.activePtr(i), slotFree)
		clearBytes(s.userIDBytes(i))
		clearBytes(s.queueNameBytes(i))
	}
	// Publish magic last: any peer observing the magic as valid is
	// guaranteed to observe initialized slots, since all other stores
	// above are plain writes to memory nobody else has started
	// reading yet (we hold the only mapping during initialization).
	atomic.StoreUint32(s.magicPtr(), synctext.RegistryMagic)
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func readCString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func writeCString(b []byte, s string) error {
	if len(s) > len(b)-1 {
		return fmt.Errorf("registry: %q exceeds %d payload bytes", s, len(b)-1)
	}
	clearBytes(b)
	copy(b, s)
	return nil
}

// isActive reports whether slot i's active flag is currently taken.
func (s *Segment) isActive(i int) bool {
	return atomic.LoadUint32(s.activePtr(i)) == slotTaken
}

// matchesUserID reports whether slot i is taken and carries user_id.
func (s *Segment) matchesUserID(i int, userID string) bool {
	return s.isActive(i) && readCString(s.userIDBytes(i)) == userID
}

// claim attempts to transition slot i from free to taken with a
// single compare-and-swap, returning whether it won the race.
func (s *Segment) claim(i int) bool {
	return atomic.CompareAndSwapUint32(s.activePtr(i), slotFree, slotTaken)
}

// release clears slot i's payload and then its active flag, in that
// order, so no observer ever sees a taken slot with an empty user_id.
func (s *Segment) release(i int) {
	clearBytes(s.userIDBytes(i))
	clearBytes(s.queueNameBytes(i))
	atomic.StoreUint32(s.activePtr(i), slotFree)
}

// snapshot reads slot i without synchronization beyond the atomic
// active-flag load; the returned Slot is advisory (spec.md §3).
func (s *Segment) snapshot(i int) Slot {
	active := s.isActive(i)
	return Slot{
		Active:    active,
		UserID:    readCString(s.userIDBytes(i)),
		QueueName: readCString(s.queueNameBytes(i)),
	}
}
