// Package merge implements the LWW CRDT-style conflict resolution
// that reconciles a peer's own pending edits against operations
// received from other peers before either side is written back to
// disk.
package merge

import (
	"sort"

	"github.com/abhinavnagar29/synctext/internal/wire"
)

// Operation is the merge-form counterpart of wire.OperationRecord:
// same fields, ordinary Go strings instead of bounded wire buffers.
// "###MERGED###" is never a legal OldText for a live operation, so it
// is used internally as a tombstone marker for chain-coalesced
// records without needing a separate "alive" slice.
type Operation struct {
	Timestamp uint64
	UserID    string
	Line      uint32
	ColStart  int32
	ColEnd    int32
	Kind      wire.OpKind
	OldText   string
	NewText   string
}

const mergedTombstone = "###MERGED###"

// FromRecord converts a wire.OperationRecord into its merge-form
// Operation.
func FromRecord(r wire.OperationRecord) Operation {
	return Operation{
		Timestamp: r.TimestampNs,
		UserID:    r.Sender,
		Line:      r.Line,
		ColStart:  r.ColStart,
		ColEnd:    r.ColEnd,
		Kind:      r.Op,
		OldText:   r.OldText,
		NewText:   r.NewText,
	}
}

// Overlaps reports whether a and b touch the same line and their
// column ranges intersect. Two inserts at the exact same column on
// the same line conflict even though an empty OldText gives them zero
// width.
func Overlaps(a, b Operation) bool {
	if a.Line != b.Line {
		return false
	}
	if a.OldText == "" && b.OldText == "" && a.ColStart == b.ColStart {
		return true
	}
	aEnd := a.ColStart + int32(len(a.OldText))
	bEnd := b.ColStart + int32(len(b.OldText))
	return !(aEnd <= b.ColStart || bEnd <= a.ColStart)
}

// NewerWins implements the LWW resolution order: the later timestamp
// wins outright; a tie is broken in favor of the lexicographically
// smaller user id, so the outcome is deterministic across every peer
// regardless of arrival order.
func NewerWins(a, b Operation) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.UserID < b.UserID
}

// ApplyToLine splices a single operation's NewText into cur in place
// of the [ColStart, ColEnd] span, with ColStart clamped to 0 and
// ColEnd clamped to the last index of cur. If the clamped start lies
// past the clamped end (the span begins beyond the end of the line),
// cur is returned unchanged. An empty cur is replaced by NewText
// outright. OldText is not compared against cur.
func ApplyToLine(cur string, op Operation) string {
	if cur == "" {
		return op.NewText
	}
	start := int(op.ColStart)
	if start < 0 {
		start = 0
	}
	end := int(op.ColEnd)
	if end > len(cur)-1 {
		end = len(cur) - 1
	}
	if start > end {
		return cur
	}
	result := cur[:start] + op.NewText
	if end+1 < len(cur) {
		result += cur[end+1:]
	}
	return result
}

// coalesceChains merges sequential same-author edits on the same line
// and starting column: if op j's OldText equals op i's NewText, j is a
// direct continuation of i. i absorbs j's NewText and timestamp, and j
// is tombstoned so the conflict pass below skips it.
func coalesceChains(all []Operation) {
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Line != all[j].Line {
				continue
			}
			if all[i].UserID != all[j].UserID {
				continue
			}
			if all[i].ColStart != all[j].ColStart {
				continue
			}
			if all[i].NewText != all[j].OldText {
				continue
			}
			all[i].NewText = all[j].NewText
			all[i].Timestamp = all[j].Timestamp
			all[j].OldText = mergedTombstone
		}
	}
}

// resolveConflicts walks every pair of still-alive operations and
// drops the LWW loser whenever two operations overlap. It returns the
// survivors in their original relative order.
func resolveConflicts(all []Operation) []Operation {
	alive := make([]bool, len(all))
	for i := range alive {
		alive[i] = all[i].OldText != mergedTombstone
	}

	for i := range all {
		if !alive[i] {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if !alive[j] {
				continue
			}
			if !Overlaps(all[i], all[j]) {
				continue
			}
			if NewerWins(all[i], all[j]) {
				alive[j] = false
			} else {
				alive[i] = false
				break
			}
		}
	}

	winners := make([]Operation, 0, len(all))
	for i, ok := range alive {
		if ok {
			winners = append(winners, all[i])
		}
	}
	return winners
}

// Apply reconciles local and received operations against lines and
// returns the resulting document, together with whether any operation
// survived conflict resolution and was applied (true even when the
// result reads the same as lines). lines is never mutated: when an
// operation is applied the caller receives a new slice, otherwise
// lines itself is returned.
//
// Step order mirrors the original design exactly: combine, coalesce
// same-author chains, resolve overlapping conflicts via LWW, group
// survivors by line, apply each line's survivors in (column ascending,
// timestamp descending) order with running offset tracking so a
// shorter or longer NewText correctly shifts every later span on that
// line.
func Apply(lines []string, local, received []Operation) ([]string, bool) {
	if len(local) == 0 && len(received) == 0 {
		return lines, false
	}

	all := make([]Operation, 0, len(local)+len(received))
	all = append(all, local...)
	all = append(all, received...)

	coalesceChains(all)
	winners := resolveConflicts(all)
	if len(winners) == 0 {
		return lines, false
	}

	byLine := make(map[uint32][]Operation)
	var lineNums []uint32
	for _, op := range winners {
		if _, ok := byLine[op.Line]; !ok {
			lineNums = append(lineNums, op.Line)
		}
		byLine[op.Line] = append(byLine[op.Line], op)
	}
	sort.Slice(lineNums, func(i, j int) bool { return lineNums[i] < lineNums[j] })

	out := make([]string, len(lines))
	copy(out, lines)

	for _, lineNum := range lineNums {
		for uint32(len(out)) <= lineNum {
			out = append(out, "")
		}

		ops := byLine[lineNum]
		sort.SliceStable(ops, func(i, j int) bool {
			if ops[i].ColStart != ops[j].ColStart {
				return ops[i].ColStart < ops[j].ColStart
			}
			return ops[i].Timestamp > ops[j].Timestamp
		})

		cur := out[lineNum]
		offset := int32(0)
		for _, op := range ops {
			cs := op.ColStart + offset
			ce := op.ColEnd + offset
			if cs < 0 {
				cs = 0
			}
			if cs > int32(len(cur)) {
				cs = int32(len(cur))
			}
			if ce > int32(len(cur))-1 {
				ce = int32(len(cur)) - 1
			}

			// Mirrors the offset-tracked splice exactly, including its
			// lack of a start>end guard: unlike ApplyToLine, a
			// crossed range here still splices in NewText at cs, which
			// keeps every later operation's offset correction accurate.
			next := cur[:cs] + op.NewText
			if ce >= 0 && int(ce)+1 < len(cur) {
				next += cur[ce+1:]
			}
			offset += int32(len(op.NewText)) - (ce - cs + 1)
			cur = next
		}
		out[lineNum] = cur
	}

	return out, true
}
