// Package render defines the display boundary the editor loop talks
// to. A real terminal UI, a test spy, or (as here) a log-line sink can
// all satisfy Sink; the loop itself never assumes more than the
// contract below.
package render

import "github.com/abhinavnagar29/synctext/internal/registry"

// LastChange describes the most recently detected local edit, for a
// Sink that wants to highlight it. ColStart is negative when no edit
// is being reported this call.
type LastChange struct {
	Line     int
	ColStart int
	ColEnd   int
	OldText  string
	NewText  string
}

// Peer is the subset of registry state a Sink needs to show who else
// is active.
type Peer struct {
	UserID string
	Live   bool
}

// Sink is notified of document state, the active peer set, and the
// most recent local change, matching spec.md's "render(doc, users,
// last_change)" external collaborator. The editor loop owns calling
// it; Sink implementations must not block for long, since they run on
// the loop's own goroutine.
type Sink interface {
	Render(docName string, lines []string, peers []Peer, last *LastChange)
	QueueCreated(name string)
	Registered(userID string)
	Broadcasting(count int)
	ReceivedFrom(sender string)
	MergedSuccessfully()
}

// PeersFromSlots adapts the registry's already-filtered LivePeers
// result into the Peer list a Sink consumes.
func PeersFromSlots(slots []registry.Slot) []Peer {
	out := make([]Peer, len(slots))
	for i, s := range slots {
		out[i] = Peer{UserID: s.UserID, Live: true}
	}
	return out
}
