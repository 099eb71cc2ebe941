// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"github.com/google/uuid"
	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// BuilderState is the MessageBuilder's state machine:
// an IDLE builder accepts Begin, which moves it to ASSEMBLING; once the
// path/selector are set it accepts SetValue (which moves it to READY)
// or Build/Discard, both of which return it to IDLE.
type BuilderState int

const (
	BuilderIdle BuilderState = iota
	BuilderAssembling
	BuilderBuildingValue
	BuilderReady
)

// MessageBuilder assembles a single MESSAGE packet. It is not
// goroutine-safe and not reusable across packets beyond its own
// reset-to-IDLE cycle.
type MessageBuilder struct {
	state BuilderState

	seq   uint32
	op    Op
	path  string
	trait string
	elem  string
	value *ArgNode
}

// NewMessageBuilder returns a builder in the IDLE state.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{state: BuilderIdle}
}

// Begin starts assembling a message with the given op and selector,
// moving to ASSEMBLING. Fails EAGAIN if the builder is not IDLE; a
// builder must be reset (Build or Discard) before reuse.
func (b *MessageBuilder) Begin(seq uint32, op Op, path, trait, elem string) error {
	if b.state != BuilderIdle {
		return errcode.New(errcode.EAGAIN, "dtf: message builder is not idle")
	}
	if !opIsValid(op) {
		return errcode.New(errcode.EINVAL, "dtf: invalid op %v", op)
	}
	b.seq = seq
	b.op = op
	b.path = path
	b.trait = trait
	b.elem = elem
	b.value = nil
	b.state = BuilderAssembling
	return nil
}

// SetValue attaches the message's payload. GET must not carry one.
func (b *MessageBuilder) SetValue(v *ArgNode) error {
	if b.state != BuilderAssembling {
		return errcode.New(errcode.EAGAIN, "dtf: message builder is not assembling")
	}
	if b.op == OpGet {
		return errcode.New(errcode.EINVAL, "dtf: GET must not carry a value")
	}
	b.value = v
	b.state = BuilderReady
	return nil
}

// Build serializes the assembled message into a Packet, deep-copying the
// value tree first so the packet never borrows the caller's memory.
// Resets the builder to IDLE regardless of outcome.
func (b *MessageBuilder) Build() (*Packet, error) {
	defer b.reset()

	if b.op.RequiresValue() {
		if b.state != BuilderReady {
			return nil, errcode.New(errcode.EAGAIN, "dtf: message is missing its required value")
		}
	} else if b.state != BuilderAssembling && b.state != BuilderReady {
		return nil, errcode.New(errcode.EAGAIN, "dtf: message builder is not ready")
	}

	var valueBytes []byte
	if b.value != nil {
		cloned := b.value.Clone()
		sizer := NewSizer()
		if err := cloned.WriteValue(sizer); err != nil {
			return nil, err
		}
		buf := NewBuffer(sizer.Len())
		if err := cloned.WriteValue(buf); err != nil {
			return nil, err
		}
		valueBytes = buf.Bytes()
	}

	return message(b.seq, b.op, b.path, b.trait, b.elem, valueBytes), nil
}

// Discard abandons the in-progress message, returning to IDLE.
func (b *MessageBuilder) Discard() {
	b.reset()
}

func (b *MessageBuilder) reset() {
	*b = MessageBuilder{state: BuilderIdle}
}

// ValueBuilderState is the staged construction state machine for a single
// value or container.
type ValueBuilderState int

const (
	VBInit ValueBuilderState = iota
	VBArray
	VBTuple
	VBPair
	VBDone
)

// ValueBuilder constructs one ArgNode, either a plain scalar/leaf via Set
// or a container via *Start/Next/*End. It is used both as the top-level
// value builder handed to MessageBuilder.SetValue and, recursively, for
// each child slot a container produces through Next.
type ValueBuilder struct {
	state ValueBuilderState

	arrayInner Type
	children   []*ArgNode

	pairFirst *ArgNode

	result *ArgNode
}

// NewValueBuilder returns an empty builder in the INIT state.
func NewValueBuilder() *ValueBuilder {
	return &ValueBuilder{state: VBInit}
}

// Set finalizes the builder as a single leaf/scalar node.
func (b *ValueBuilder) Set(n *ArgNode) error {
	if b.state != VBInit {
		return errcode.New(errcode.EAGAIN, "dtf: value builder already has a shape")
	}
	b.result = n
	b.state = VBDone
	return nil
}

// ArrayStart begins a homogeneous array of the given inner type.
func (b *ValueBuilder) ArrayStart(inner Type) error {
	if b.state != VBInit {
		return errcode.New(errcode.EAGAIN, "dtf: value builder already has a shape")
	}
	if !IsValid(inner) || inner == Variant {
		return errcode.New(errcode.EINVAL, "dtf: invalid array element type")
	}
	b.arrayInner = inner
	b.state = VBArray
	return nil
}

// TupleStart begins a heterogeneous, fixed-arity tuple.
func (b *ValueBuilder) TupleStart() error {
	if b.state != VBInit {
		return errcode.New(errcode.EAGAIN, "dtf: value builder already has a shape")
	}
	b.state = VBTuple
	return nil
}

// PairStart begins a two-element heterogeneous pair.
func (b *ValueBuilder) PairStart() error {
	if b.state != VBInit {
		return errcode.New(errcode.EAGAIN, "dtf: value builder already has a shape")
	}
	b.state = VBPair
	return nil
}

// Next appends a pre-built child node to the in-progress container. For
// an array, n's kind must match the element type fixed by ArrayStart; a
// mismatch discards the whole in-progress value and returns the builder
// to INIT.
func (b *ValueBuilder) Next(n *ArgNode) error {
	switch b.state {
	case VBArray:
		if n.Kind != b.arrayInner {
			inner := b.arrayInner
			*b = ValueBuilder{state: VBInit}
			return errcode.New(errcode.EBUILDERTYPEMISMATCH, "dtf: array element is %v, expected %v", n.Kind, inner)
		}
		if len(b.children)+1 > 0xFFFF {
			return errcode.New(errcode.EARRAYTOOLONG, "dtf: array has too many elements")
		}
		b.children = append(b.children, n)
		return nil
	case VBTuple:
		if len(b.children)+1 > 0xFFFF {
			return errcode.New(errcode.ETUPLETOOLONG, "dtf: tuple has too many elements")
		}
		b.children = append(b.children, n)
		return nil
	case VBPair:
		if b.pairFirst == nil {
			b.pairFirst = n
			return nil
		}
		if len(b.children) > 0 {
			return errcode.New(errcode.EOVERFLOW, "dtf: pair already has both components")
		}
		b.children = []*ArgNode{b.pairFirst, n}
		return nil
	default:
		return errcode.New(errcode.EAGAIN, "dtf: value builder is not assembling a container")
	}
}

// ArrayEnd/TupleEnd/PairEnd finalize the respective container shape.
func (b *ValueBuilder) ArrayEnd() error {
	if b.state != VBArray {
		return errcode.New(errcode.EAGAIN, "dtf: value builder is not assembling an array")
	}
	n, err := NewArray(b.arrayInner, b.children)
	if err != nil {
		return err
	}
	b.result = n
	b.state = VBDone
	return nil
}

func (b *ValueBuilder) TupleEnd() error {
	if b.state != VBTuple {
		return errcode.New(errcode.EAGAIN, "dtf: value builder is not assembling a tuple")
	}
	n, err := NewTuple(b.children)
	if err != nil {
		return err
	}
	b.result = n
	b.state = VBDone
	return nil
}

func (b *ValueBuilder) PairEnd() error {
	if b.state != VBPair || len(b.children) != 2 {
		return errcode.New(errcode.EAGAIN, "dtf: pair is missing a component")
	}
	n, err := NewPair(b.children[0], b.children[1])
	if err != nil {
		return err
	}
	b.result = n
	b.state = VBDone
	return nil
}

// Build returns the finished ArgNode, failing EAGAIN if the builder never
// reached a terminal shape.
func (b *ValueBuilder) Build() (*ArgNode, error) {
	if b.state != VBDone {
		return nil, errcode.New(errcode.EAGAIN, "dtf: value builder has no finished value")
	}
	return b.result, nil
}

// Convenience leaf constructors mirroring ArgNode's, so callers can chain
// off a ValueBuilder without importing both APIs.
func (b *ValueBuilder) SetUnit() error            { return b.Set(NewUnit()) }
func (b *ValueBuilder) SetBool(v bool) error      { return b.Set(NewBool(v)) }
func (b *ValueBuilder) SetByte(v byte) error      { return b.Set(NewByte(v)) }
func (b *ValueBuilder) SetFloat(v float64) error  { return b.Set(NewFloat(v)) }
func (b *ValueBuilder) SetInt16(v int16) error    { return b.Set(NewInt16(v)) }
func (b *ValueBuilder) SetInt32(v int32) error    { return b.Set(NewInt32(v)) }
func (b *ValueBuilder) SetInt64(v int64) error    { return b.Set(NewInt64(v)) }
func (b *ValueBuilder) SetUint16(v uint16) error  { return b.Set(NewUint16(v)) }
func (b *ValueBuilder) SetUint32(v uint32) error  { return b.Set(NewUint32(v)) }
func (b *ValueBuilder) SetUint64(v uint64) error  { return b.Set(NewUint64(v)) }
func (b *ValueBuilder) SetStr(v string) error     { return b.Set(NewStr(v)) }
func (b *ValueBuilder) SetPath(v string) error    { return b.Set(NewPath(v)) }
func (b *ValueBuilder) SetBytes(v []byte) error   { return b.Set(NewBytes(v)) }
func (b *ValueBuilder) SetUUID(v uuid.UUID) error { return b.Set(NewUUID(v)) }
func (b *ValueBuilder) SetError(code int16, msg *string) error {
	return b.Set(NewError(code, msg))
}
func (b *ValueBuilder) SetSelector(trait, elem string) error {
	n, err := NewSelector(trait, elem)
	if err != nil {
		return err
	}
	return b.Set(n)
}
