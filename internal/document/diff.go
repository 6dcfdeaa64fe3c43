package document

import (
	"github.com/abhinavnagar29/synctext/internal/merge"
	"github.com/abhinavnagar29/synctext/internal/wire"
)

// Change is one detected line-level edit, in the form the editor loop
// needs both for logging ("Line %d, col %d-%d") and for turning into a
// wire.OperationRecord / merge.Operation.
type Change struct {
	Line     int
	ColStart int
	ColEnd   int
	OldText  string
	NewText  string
	Kind     wire.OpKind
}

// Diff compares prev against d.Lines (the state already loaded by a
// prior Changed call) and returns the minimal-span changes: per
// common line, the shortest differing middle span after stripping the
// common prefix and suffix; for lines added or removed at the end,
// one whole-line insert or delete each. A trailing blank line
// appended or removed at the end is never reported, matching the
// normalization Load and WriteAtomic already apply.
//
// A span whose old or new text would not fit in the wire format's
// bounded text field is left out of the result, and Diff then returns
// the remaining changes together with ErrOversizedSpan; the caller
// decides whether to use them (skipping only the oversized change) or
// abort the batch.
func (d *Document) Diff(prev []string) ([]Change, error) {
	var changes []Change
	oversized := false

	common := len(prev)
	if len(d.Lines) < common {
		common = len(d.Lines)
	}

	for i := 0; i < common; i++ {
		oldL, newL := prev[i], d.Lines[i]
		if oldL == newL {
			continue
		}

		cs := 0
		maxCommonLeft := len(oldL)
		if len(newL) < maxCommonLeft {
			maxCommonLeft = len(newL)
		}
		for cs < maxCommonLeft && oldL[cs] == newL[cs] {
			cs++
		}

		tail := 0
		for tail < len(oldL)-cs && tail < len(newL)-cs &&
			oldL[len(oldL)-1-tail] == newL[len(newL)-1-tail] {
			tail++
		}

		oldMidLen := len(oldL) - cs - tail
		newMidLen := len(newL) - cs - tail
		var oldSeg, newSeg string
		if oldMidLen > 0 {
			oldSeg = oldL[cs : cs+oldMidLen]
		}
		if newMidLen > 0 {
			newSeg = newL[cs : cs+newMidLen]
		}
		if oldSeg == newSeg {
			continue
		}
		if len(oldSeg) > MaxSpanLen || len(newSeg) > MaxSpanLen {
			oversized = true
			continue
		}

		kind := wire.OpReplace
		switch {
		case oldSeg == "" && newSeg != "":
			kind = wire.OpInsert
		case oldSeg != "" && newSeg == "":
			kind = wire.OpDelete
		}

		colEnd := cs
		if oldSeg != "" {
			colEnd = cs + len(oldSeg) - 1
		}

		changes = append(changes, Change{
			Line:     i,
			ColStart: cs,
			ColEnd:   colEnd,
			OldText:  oldSeg,
			NewText:  newSeg,
			Kind:     kind,
		})
	}

	for i := len(prev); i < len(d.Lines); i++ {
		if d.Lines[i] == "" {
			continue
		}
		if len(d.Lines[i]) > MaxSpanLen {
			oversized = true
			continue
		}
		changes = append(changes, Change{
			Line:     i,
			ColStart: 0,
			ColEnd:   0,
			OldText:  "",
			NewText:  d.Lines[i],
			Kind:     wire.OpInsert,
		})
	}

	for i := len(d.Lines); i < len(prev); i++ {
		if prev[i] == "" {
			continue
		}
		if len(prev[i]) > MaxSpanLen {
			oversized = true
			continue
		}
		changes = append(changes, Change{
			Line:     i,
			ColStart: 0,
			ColEnd:   len(prev[i]) - 1,
			OldText:  prev[i],
			NewText:  "",
			Kind:     wire.OpDelete,
		})
	}

	if oversized {
		return changes, ErrOversizedSpan
	}
	return changes, nil
}

// ToRecord turns a Change into the wire form a peer broadcasts,
// stamping it with sender and the current time.
func (c Change) ToRecord(sender string, timestampNs uint64) wire.OperationRecord {
	return wire.OperationRecord{
		Sender:      sender,
		TimestampNs: timestampNs,
		Line:        uint32(c.Line),
		ColStart:    int32(c.ColStart),
		ColEnd:      int32(c.ColEnd),
		Op:          c.Kind,
		OldText:     c.OldText,
		NewText:     c.NewText,
	}
}

// ToOperation turns a Change into the merge-form Operation used for
// the local peer's own pending-merge buffer.
func (c Change) ToOperation(sender string, timestampNs uint64) merge.Operation {
	return merge.FromRecord(c.ToRecord(sender, timestampNs))
}
