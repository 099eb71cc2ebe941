// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"encoding/binary"
	"math"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// checkedAdd adds b to a, failing OVERFLOW on wrap -- every length
// computation in the codec goes through this instead of raw `+`.
func checkedAdd(a, b int) (int, error) {
	if a > math.MaxInt-b {
		return 0, errcode.New(errcode.EOVERFLOW, "writer: length overflow (%d + %d)", a, b)
	}
	return a + b, nil
}

// Writer is a dual-mode byte sink. In buffer mode it appends to a growable
// []byte; in sizer mode it only accumulates a byte count. The builder
// (pkg/dtf builder.go) runs the same serialization code through a sizer
// pass first to learn the exact allocation size, then replays it in
// buffer mode, so emission is a single allocation and O(n).
type Writer struct {
	sizerMode bool
	buf       []byte // buffer mode
	size      int    // sizer mode
}

// NewSizer returns a Writer that only counts bytes.
func NewSizer() *Writer {
	return &Writer{sizerMode: true}
}

// NewBuffer returns a Writer that appends to an owned, growable buffer
// pre-sized to capacity (normally the result of a prior sizer pass).
func NewBuffer(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len reports the number of bytes written (or counted) so far.
func (w *Writer) Len() int {
	if w.sizerMode {
		return w.size
	}
	return len(w.buf)
}

// Bytes returns the accumulated buffer. Valid only in buffer mode.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Write appends data, copying it in buffer mode or just advancing the
// count in sizer mode.
func (w *Writer) Write(data []byte) error {
	n, err := checkedAdd(w.Len(), len(data))
	if err != nil {
		return err
	}
	if w.sizerMode {
		w.size = n
		return nil
	}
	w.buf = append(w.buf, data...)
	return nil
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) error {
	return w.Write([]byte{b})
}

// WriteUint16/32/64 and WriteInt16/32/64 append a little-endian scalar.
func (w *Writer) WriteUint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.Write(b[:])
}

func (w *Writer) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.Write(b[:])
}

func (w *Writer) WriteUint64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.Write(b[:])
}

func (w *Writer) WriteInt16(v int16) error  { return w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) error  { return w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) error  { return w.WriteUint64(uint64(v)) }

// WriteZString writes s followed by a NUL terminator.
func (w *Writer) WriteZString(s string) error {
	if err := w.Write([]byte(s)); err != nil {
		return err
	}
	return w.WriteByte(0)
}

// Snapshot is a marker to a position in the writer taken before writing a
// variable-length body, so the caller can come back and backpatch a
// length prefix once the body's size is known.
type Snapshot struct {
	sizerMode bool
	pos       int // sizer mode: the count at snapshot time
	bufPos    int // buffer mode: index into w.buf where the prefix goes
}

// Snapshot records the current position for a later Backpatch.
func (w *Writer) Snapshot() Snapshot {
	if w.sizerMode {
		return Snapshot{sizerMode: true, pos: w.size}
	}
	return Snapshot{bufPos: len(w.buf)}
}

// BackpatchUint32 overwrites the 4 bytes at the snapshot position with a
// little-endian encoding of v. In sizer mode this is a no-op: the sizer
// never materializes bytes, only counts them, and the prefix's own 4
// bytes were already counted when the placeholder was written.
func (w *Writer) BackpatchUint32(snap Snapshot, v uint32) {
	if w.sizerMode {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[snap.bufPos:snap.bufPos+4], v)
}

// BackpatchUint16 is BackpatchUint32's 2-byte counterpart.
func (w *Writer) BackpatchUint16(snap Snapshot, v uint16) {
	if w.sizerMode {
		return
	}
	binary.LittleEndian.PutUint16(w.buf[snap.bufPos:snap.bufPos+2], v)
}

// BytesSince returns how many bytes have been written since snap. Valid in
// both modes: it is exactly what lets the sizer pass learn nbytes before
// any buffer exists.
func (w *Writer) BytesSince(snap Snapshot) uint32 {
	if w.sizerMode {
		return uint32(w.size - snap.pos)
	}
	return uint32(len(w.buf) - snap.bufPos)
}
