// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"encoding/binary"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// Op is a message packet's operation. On the wire it doubles as the
// packet's "kind" field -- there is no separate MESSAGE tag, each op has
// its own kind value, with HELLO/BYE as the two non-message kinds.
type Op byte

const (
	OpInvalid  Op = 0
	OpGet      Op = '<'
	OpSet      Op = '>'
	OpExec     Op = '?'
	OpSignal   Op = '!'
	OpResponse Op = ':'
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "GET"
	case OpSet:
		return "SET"
	case OpExec:
		return "EXEC"
	case OpSignal:
		return "SIGNAL"
	case OpResponse:
		return "RESPONSE"
	default:
		return "INVALID"
	}
}

// RequiresValue reports whether o must carry a value payload. GET is the
// one op that forbids a payload; all others require one.
func (o Op) RequiresValue() bool {
	return o == OpSet || o == OpExec || o == OpSignal || o == OpResponse
}

func opIsValid(o Op) bool {
	switch o {
	case OpGet, OpSet, OpExec, OpSignal, OpResponse:
		return true
	default:
		return false
	}
}

const (
	wireKindHello uint32 = 1
	wireKindBye   uint32 = 2
)

// PacketKind classifies a packet as HELLO, BYE or MESSAGE; every message
// op (GET/SET/EXEC/SIGNAL/RESPONSE) is a MESSAGE.
type PacketKind int

const (
	KindInvalid PacketKind = iota
	KindHello
	KindBye
	KindMessage
)

// ByeReason tells the peer why a BYE was sent.
type ByeReason uint32

const (
	ByeInvalid  ByeReason = 0
	ByeShutdown ByeReason = 1
	ByeError    ByeReason = 2
	ByeKicked   ByeReason = 3
)

// Packet is the framed unit exchanged between peers. Path,
// trait and element are parsed eagerly at Load time (they are fixed,
// length-delimited framing, not application data); the value payload
// stays an unparsed byte range until probed.
type Packet struct {
	wireKind uint32
	Seq      uint32

	// HELLO
	VersionMajor    uint16
	VersionRevision uint16

	// BYE
	Reason ByeReason

	// MESSAGE
	Path       string
	Trait      string
	Elem       string
	valueBytes []byte // nil means no value payload (valid only for GET)
}

func (p *Packet) Kind() PacketKind {
	switch {
	case p.wireKind == wireKindHello:
		return KindHello
	case p.wireKind == wireKindBye:
		return KindBye
	case opIsValid(Op(p.wireKind)):
		return KindMessage
	default:
		return KindInvalid
	}
}

// Op returns the message operation; valid only when Kind() == KindMessage.
func (p *Packet) Op() Op {
	return Op(p.wireKind)
}

// HasValue reports whether a message packet carries a value payload.
func (p *Packet) HasValue() bool {
	return p.valueBytes != nil
}

// Value probes the packet's value payload. Fails EINVAL if the packet has
// none (e.g. a GET request).
func (p *Packet) Value() (Value, error) {
	if p.valueBytes == nil {
		return Value{}, errcode.New(errcode.EINVAL, "dtf: packet carries no value")
	}
	v := NewView(p.valueBytes)
	return ProbeValue(&v)
}

// OwnedValue couples a probed Value with the Packet whose buffer backs
// it, so the pair can be passed around without the caller tracking the
// packet's lifetime separately.
type OwnedValue struct {
	Value  Value
	packet *Packet
}

// Owned probes the packet's value payload and returns it bundled with
// the packet itself.
func (p *Packet) Owned() (OwnedValue, error) {
	v, err := p.Value()
	if err != nil {
		return OwnedValue{}, err
	}
	return OwnedValue{Value: v, packet: p}, nil
}

// Packet returns the packet backing the value.
func (o OwnedValue) Packet() *Packet {
	return o.packet
}

// Hello builds a HELLO packet.
func Hello(seq uint32, major, revision uint16) *Packet {
	return &Packet{wireKind: wireKindHello, Seq: seq, VersionMajor: major, VersionRevision: revision}
}

// Bye builds a BYE packet.
func Bye(seq uint32, reason ByeReason) *Packet {
	return &Packet{wireKind: wireKindBye, Seq: seq, Reason: reason}
}

// message builds a MESSAGE packet. valueBytes is the already-serialized
// value body (or nil for a valueless GET); callers normally get here via
// the MessageBuilder rather than constructing a Packet by hand.
func message(seq uint32, op Op, path, trait, elem string, valueBytes []byte) *Packet {
	return &Packet{wireKind: uint32(op), Seq: seq, Path: path, Trait: trait, Elem: elem, valueBytes: valueBytes}
}

// Dump serializes the packet to its wire representation.
func (p *Packet) Dump() ([]byte, error) {
	switch p.Kind() {
	case KindHello:
		w := NewBuffer(12)
		if err := w.WriteUint32(p.wireKind); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(p.Seq); err != nil {
			return nil, err
		}
		if err := w.WriteUint16(p.VersionMajor); err != nil {
			return nil, err
		}
		if err := w.WriteUint16(p.VersionRevision); err != nil {
			return nil, err
		}
		return w.Bytes(), nil

	case KindBye:
		w := NewBuffer(12)
		if err := w.WriteUint32(p.wireKind); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(p.Seq); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(uint32(p.Reason)); err != nil {
			return nil, err
		}
		return w.Bytes(), nil

	case KindMessage:
		if p.Op().RequiresValue() && p.valueBytes == nil {
			return nil, errcode.New(errcode.EINVAL, "dtf: %v requires a value payload", p.Op())
		}
		if !p.Op().RequiresValue() && p.valueBytes != nil {
			return nil, errcode.New(errcode.EINVAL, "dtf: GET must not carry a value payload")
		}

		body := NewBuffer(64)
		if err := body.WriteZString(p.Path); err != nil {
			return nil, err
		}
		if err := body.WriteZString(p.Trait); err != nil {
			return nil, err
		}
		if err := body.WriteZString(p.Elem); err != nil {
			return nil, err
		}
		if p.valueBytes != nil {
			if err := body.Write(p.valueBytes); err != nil {
				return nil, err
			}
		}

		w := NewBuffer(12 + body.Len())
		if err := w.WriteUint32(p.wireKind); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(p.Seq); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(uint32(body.Len())); err != nil {
			return nil, err
		}
		if err := w.Write(body.Bytes()); err != nil {
			return nil, err
		}
		return w.Bytes(), nil

	default:
		return nil, errcode.New(errcode.EINVAL, "dtf: cannot dump an invalid packet")
	}
}

// Load reads exactly one packet from the front of src, advancing src past
// it only on success. Returns EAGAIN (without consuming anything) if src
// does not yet hold a complete packet.
func Load(src *View) (*Packet, error) {
	attempt := *src

	kindB, err := attempt.Advance(4)
	if err != nil {
		return nil, err
	}
	kind := binary.LittleEndian.Uint32(kindB)

	seqB, err := attempt.Advance(4)
	if err != nil {
		return nil, err
	}
	seq := binary.LittleEndian.Uint32(seqB)

	switch {
	case kind == wireKindHello:
		majB, err := attempt.Advance(2)
		if err != nil {
			return nil, err
		}
		revB, err := attempt.Advance(2)
		if err != nil {
			return nil, err
		}
		*src = attempt
		return &Packet{
			wireKind:        kind,
			Seq:             seq,
			VersionMajor:    binary.LittleEndian.Uint16(majB),
			VersionRevision: binary.LittleEndian.Uint16(revB),
		}, nil

	case kind == wireKindBye:
		reasonB, err := attempt.Advance(4)
		if err != nil {
			return nil, err
		}
		*src = attempt
		return &Packet{wireKind: kind, Seq: seq, Reason: ByeReason(binary.LittleEndian.Uint32(reasonB))}, nil

	case opIsValid(Op(kind)):
		dataLenB, err := attempt.Advance(4)
		if err != nil {
			return nil, err
		}
		dataLen := binary.LittleEndian.Uint32(dataLenB)

		bodyBytes, err := attempt.Advance(int(dataLen))
		if err != nil {
			return nil, err
		}

		bv := NewView(bodyBytes)
		path, err := bv.ReadZString()
		if err != nil {
			return nil, errcode.New(errcode.EBADMSG, "dtf: malformed message path: %v", err)
		}
		trait, err := bv.ReadZString()
		if err != nil {
			return nil, errcode.New(errcode.EBADMSG, "dtf: malformed message trait: %v", err)
		}
		elem, err := bv.ReadZString()
		if err != nil {
			return nil, errcode.New(errcode.EBADMSG, "dtf: malformed message element: %v", err)
		}

		op := Op(kind)
		remaining := bv.Bytes()

		if op.RequiresValue() && len(remaining) == 0 {
			return nil, errcode.New(errcode.EBADMSG, "dtf: %v message is missing its value payload", op)
		}
		if !op.RequiresValue() && len(remaining) != 0 {
			return nil, errcode.New(errcode.EBADMSG, "dtf: GET message must not carry a value payload")
		}

		var valueBytes []byte
		if len(remaining) > 0 {
			valueBytes = remaining
		}

		*src = attempt
		return &Packet{wireKind: kind, Seq: seq, Path: path, Trait: trait, Elem: elem, valueBytes: valueBytes}, nil

	default:
		return nil, errcode.New(errcode.EBADMSG, "dtf: unrecognized packet kind %d", kind)
	}
}
