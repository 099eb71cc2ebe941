// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"github.com/google/uuid"
	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// ArgNode is the build-side argument tree: a recursive discriminated
// union whose leaves carry a scalar payload or a slice borrowed from the
// caller (strings, bytes, selectors), and whose container nodes carry the
// homogeneous inner type (for ARRAY) and their children. The tree borrows
// the caller's memory until Build() deep-copies it into an owned packet.
type ArgNode struct {
	Kind Type

	boolVal bool
	byteVal byte
	i16     int16
	i32     int32
	i64     int64
	u16     uint16
	u32     uint32
	u64     uint64
	f64     float64

	str      string
	bytesVal []byte
	uuidVal  uuid.UUID

	selTrait string
	selElem  string

	errCode int16
	errMsg  *string

	innerType Type // ARRAY only: the shared type of every child
	children  []*ArgNode
}

func NewUnit() *ArgNode            { return &ArgNode{Kind: Unit} }
func NewBool(b bool) *ArgNode      { return &ArgNode{Kind: Bool, boolVal: b} }
func NewByte(b byte) *ArgNode      { return &ArgNode{Kind: Byte, byteVal: b} }
func NewFloat(f float64) *ArgNode  { return &ArgNode{Kind: Float, f64: f} }
func NewInt16(v int16) *ArgNode    { return &ArgNode{Kind: Int16, i16: v} }
func NewInt32(v int32) *ArgNode    { return &ArgNode{Kind: Int32, i32: v} }
func NewInt64(v int64) *ArgNode    { return &ArgNode{Kind: Int64, i64: v} }
func NewUint16(v uint16) *ArgNode  { return &ArgNode{Kind: Uint16, u16: v} }
func NewUint32(v uint32) *ArgNode  { return &ArgNode{Kind: Uint32, u32: v} }
func NewUint64(v uint64) *ArgNode  { return &ArgNode{Kind: Uint64, u64: v} }
func NewStr(s string) *ArgNode     { return &ArgNode{Kind: Str, str: s} }
func NewPath(p string) *ArgNode    { return &ArgNode{Kind: Path, str: p} }
func NewBytes(b []byte) *ArgNode   { return &ArgNode{Kind: Bytes, bytesVal: b} }
func NewUUID(u uuid.UUID) *ArgNode { return &ArgNode{Kind: UUID, uuidVal: u} }

func NewSelector(trait, elem string) (*ArgNode, error) {
	if trait == "" || elem == "" {
		return nil, errcode.New(errcode.EINVAL, "dtf: selector trait/element must be non-empty")
	}
	return &ArgNode{Kind: Selector, selTrait: trait, selElem: elem}, nil
}

// NewError builds an ERROR argument. msg == nil encodes "no message".
func NewError(code int16, msg *string) *ArgNode {
	return &ArgNode{Kind: Error, errCode: code, errMsg: msg}
}

// NewArray validates that every child has kind inner before building the
// node; a mismatch fails BUILDER_TYPE_MISMATCH, the same policy the
// staged ValueBuilder enforces on Next.
func NewArray(inner Type, children []*ArgNode) (*ArgNode, error) {
	if len(children) > 0xFFFF {
		return nil, errcode.New(errcode.EARRAYTOOLONG, "dtf: array has too many elements")
	}
	for _, c := range children {
		if c.Kind != inner {
			return nil, errcode.New(errcode.EBUILDERTYPEMISMATCH, "dtf: array element is %v, expected %v", c.Kind, inner)
		}
	}
	return &ArgNode{Kind: Array, innerType: inner, children: children}, nil
}

func NewTuple(children []*ArgNode) (*ArgNode, error) {
	if len(children) > 0xFFFF {
		return nil, errcode.New(errcode.ETUPLETOOLONG, "dtf: tuple has too many elements")
	}
	return &ArgNode{Kind: Tuple, children: children}, nil
}

func NewPair(first, second *ArgNode) (*ArgNode, error) {
	if first == nil || second == nil {
		return nil, errcode.New(errcode.EINVAL, "dtf: pair requires two components")
	}
	return &ArgNode{Kind: Pair, children: []*ArgNode{first, second}}, nil
}

// Clone deep-copies the tree, severing any borrow on caller memory. Build()
// calls this so the resulting packet owns every byte it carries.
func (n *ArgNode) Clone() *ArgNode {
	if n == nil {
		return nil
	}
	out := *n
	if n.bytesVal != nil {
		out.bytesVal = append([]byte(nil), n.bytesVal...)
	}
	if n.errMsg != nil {
		msg := *n.errMsg
		out.errMsg = &msg
	}
	if n.children != nil {
		out.children = make([]*ArgNode, len(n.children))
		for i, c := range n.children {
			out.children[i] = c.Clone()
		}
	}
	return &out
}

// WriteValue writes the tag byte followed by the body -- the full
// top-level encoding of a value.
func (n *ArgNode) WriteValue(w *Writer) error {
	if err := w.WriteByte(byte(n.Kind)); err != nil {
		return err
	}
	return n.writeBody(w)
}

func (n *ArgNode) writeBody(w *Writer) error {
	switch n.Kind {
	case Unit:
		return nil
	case Bool:
		var b byte
		if n.boolVal {
			b = 1
		}
		return w.WriteByte(b)
	case Byte:
		return w.WriteByte(n.byteVal)
	case Float:
		return w.WriteUint64(float64ToBits(n.f64))
	case Int16:
		return w.WriteInt16(n.i16)
	case Int32:
		return w.WriteInt32(n.i32)
	case Int64:
		return w.WriteInt64(n.i64)
	case Uint16:
		return w.WriteUint16(n.u16)
	case Uint32:
		return w.WriteUint32(n.u32)
	case Uint64:
		return w.WriteUint64(n.u64)
	case Str, Path:
		return w.WriteZString(n.str)
	case Bytes:
		if err := w.WriteUint32(uint32(len(n.bytesVal))); err != nil {
			return err
		}
		return w.Write(n.bytesVal)
	case UUID:
		return w.Write(n.uuidVal[:])
	case Selector:
		if err := w.WriteZString(n.selTrait); err != nil {
			return err
		}
		return w.WriteZString(n.selElem)
	case Error:
		if err := w.WriteInt16(n.errCode); err != nil {
			return err
		}
		msg := ""
		if n.errMsg != nil {
			msg = *n.errMsg
		}
		return w.WriteZString(msg)
	case Array:
		return n.writeArray(w)
	case Tuple:
		return n.writeTuple(w)
	case Pair:
		return n.writePair(w)
	default:
		return errcode.New(errcode.EINVAL, "dtf: cannot serialize node of kind %v", n.Kind)
	}
}

func (n *ArgNode) writeArray(w *Writer) error {
	snap := w.Snapshot()
	if err := w.WriteUint32(0); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(n.children))); err != nil {
		return err
	}
	if err := w.WriteByte(byte(n.innerType)); err != nil {
		return err
	}
	bodyStart := w.Snapshot()
	for _, c := range n.children {
		if err := c.writeBody(w); err != nil {
			return err
		}
	}
	w.BackpatchUint32(snap, w.BytesSince(bodyStart)+3)
	return nil
}

func (n *ArgNode) writeTuple(w *Writer) error {
	snap := w.Snapshot()
	if err := w.WriteUint32(0); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(n.children))); err != nil {
		return err
	}
	bodyStart := w.Snapshot()
	for _, c := range n.children {
		if err := c.WriteValue(w); err != nil {
			return err
		}
	}
	w.BackpatchUint32(snap, w.BytesSince(bodyStart)+2)
	return nil
}

func (n *ArgNode) writePair(w *Writer) error {
	snap := w.Snapshot()
	if err := w.WriteUint32(0); err != nil {
		return err
	}
	bodyStart := w.Snapshot()
	for _, c := range n.children {
		if err := c.WriteValue(w); err != nil {
			return err
		}
	}
	w.BackpatchUint32(snap, w.BytesSince(bodyStart))
	return nil
}
