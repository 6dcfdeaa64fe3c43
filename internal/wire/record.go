// Package wire defines the fixed-size operation record carried as a
// single POSIX message queue message, and its manual little-endian
// marshaling. The layout is spelled out field-by-field rather than
// relying on Go struct layout, since the record crosses process
// boundaries through a kernel object and must have one unambiguous
// byte representation.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/abhinavnagar29/synctext/internal/synctext"
)

// OpKind identifies the kind of change an OperationRecord describes.
type OpKind uint8

const (
	// OpInsert means old_text is empty and new_text is not.
	OpInsert OpKind = 1
	// OpDelete means new_text is empty and old_text is not.
	OpDelete OpKind = 2
	// OpReplace means neither span is empty.
	OpReplace OpKind = 3
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// RecordSize is the exact byte size of a marshaled OperationRecord:
// sender(32) + timestamp_ns(8) + line(4) + col_start(4) + col_end(4) +
// op_kind(1) + old_text(256) + new_text(256).
const RecordSize = synctext.UserIDMax + 8 + 4 + 4 + 4 + 1 + synctext.TextSegMax + synctext.TextSegMax

// OperationRecord is the wire form of a single-line edit, exactly as
// specified: one record is exactly one message queue message.
type OperationRecord struct {
	Sender      string
	TimestampNs uint64
	Line        uint32
	ColStart    int32
	ColEnd      int32
	Op          OpKind
	OldText     string
	NewText     string
}

// ErrFieldTooLong is returned by Marshal when a string field does not
// fit in its bounded wire slot.
var ErrFieldTooLong = fmt.Errorf("field exceeds its bounded wire size")

func putBoundedString(buf []byte, s string, maxLen int) error {
	b := []byte(s)
	if len(b) > maxLen-1 {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFieldTooLong, len(b), maxLen-1)
	}
	n := copy(buf, b)
	for i := n; i < maxLen; i++ {
		buf[i] = 0
	}
	return nil
}

func getBoundedString(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// Marshal encodes r into a RecordSize-byte little-endian buffer
// suitable for mq_send. It fails if any string field would not fit in
// its bounded slot (the caller is expected to have already split or
// rejected oversized spans at synthesis time).
func (r OperationRecord) Marshal() ([]byte, error) {
	buf := make([]byte, RecordSize)
	off := 0

	if err := putBoundedString(buf[off:off+synctext.UserIDMax], r.Sender, synctext.UserIDMax); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	off += synctext.UserIDMax

	binary.LittleEndian.PutUint64(buf[off:], r.TimestampNs)
	off += 8

	binary.LittleEndian.PutUint32(buf[off:], r.Line)
	off += 4

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.ColStart))
	off += 4

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.ColEnd))
	off += 4

	buf[off] = byte(r.Op)
	off++

	if err := putBoundedString(buf[off:off+synctext.TextSegMax], r.OldText, synctext.TextSegMax); err != nil {
		return nil, fmt.Errorf("old_text: %w", err)
	}
	off += synctext.TextSegMax

	if err := putBoundedString(buf[off:off+synctext.TextSegMax], r.NewText, synctext.TextSegMax); err != nil {
		return nil, fmt.Errorf("new_text: %w", err)
	}
	off += synctext.TextSegMax

	return buf, nil
}

// Unmarshal decodes a RecordSize-byte buffer (or a prefix of it that
// the kernel delivered) into an OperationRecord.
func Unmarshal(buf []byte) (OperationRecord, error) {
	if len(buf) < RecordSize {
		padded := make([]byte, RecordSize)
		copy(padded, buf)
		buf = padded
	}

	var r OperationRecord
	off := 0

	r.Sender = getBoundedString(buf[off : off+synctext.UserIDMax])
	off += synctext.UserIDMax

	r.TimestampNs = binary.LittleEndian.Uint64(buf[off:])
	off += 8

	r.Line = binary.LittleEndian.Uint32(buf[off:])
	off += 4

	r.ColStart = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	r.ColEnd = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	r.Op = OpKind(buf[off])
	off++

	r.OldText = getBoundedString(buf[off : off+synctext.TextSegMax])
	off += synctext.TextSegMax

	r.NewText = getBoundedString(buf[off : off+synctext.TextSegMax])
	off += synctext.TextSegMax

	return r, nil
}
