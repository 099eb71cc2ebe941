// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// ProbeValue reads one fully tagged value (tag byte + body) from v,
// advancing past it. It is the read-side counterpart of ArgNode.WriteValue
// and is intentionally non-recursive at the top: containers leave their
// element region as an opaque, unparsed byte range that List iteration
// probes one element at a time.
func ProbeValue(v *View) (Value, error) {
	tagB, err := v.Advance(1)
	if err != nil {
		return Value{}, err
	}
	t := Type(tagB[0])
	if !IsValid(t) {
		return Value{}, errcode.New(errcode.EBADMSG, "dtf: unrecognized value tag %#x", tagB[0])
	}
	return probeBody(t, v)
}

// probeBody decodes the body of a value whose tag is already known (either
// just read by ProbeValue, or implied by an ARRAY's homogeneous inner
// type).
func probeBody(t Type, v *View) (Value, error) {
	switch t {
	case Unit:
		return Value{Kind: Unit}, nil

	case Bool:
		b, err := v.Advance(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Bool, boolVal: b[0] != 0}, nil

	case Byte:
		b, err := v.Advance(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Byte, byteVal: b[0]}, nil

	case Float:
		b, err := v.Advance(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Float, f64: float64FromBits(binary.LittleEndian.Uint64(b))}, nil

	case Int16:
		b, err := v.Advance(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Int16, i16: int16(binary.LittleEndian.Uint16(b))}, nil

	case Int32:
		b, err := v.Advance(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Int32, i32: int32(binary.LittleEndian.Uint32(b))}, nil

	case Int64:
		b, err := v.Advance(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Int64, i64: int64(binary.LittleEndian.Uint64(b))}, nil

	case Uint16:
		b, err := v.Advance(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Uint16, u16: binary.LittleEndian.Uint16(b)}, nil

	case Uint32:
		b, err := v.Advance(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Uint32, u32: binary.LittleEndian.Uint32(b)}, nil

	case Uint64:
		b, err := v.Advance(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Uint64, u64: binary.LittleEndian.Uint64(b)}, nil

	case Str, Path:
		s, err := v.ReadZString()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: t, str: s}, nil

	case Bytes:
		lenB, err := v.Advance(4)
		if err != nil {
			return Value{}, err
		}
		n := binary.LittleEndian.Uint32(lenB)
		data, err := v.Advance(int(n))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Bytes, bytesVal: data}, nil

	case UUID:
		b, err := v.Advance(16)
		if err != nil {
			return Value{}, err
		}
		u, err := uuid.FromBytes(b)
		if err != nil {
			return Value{}, errcode.New(errcode.EBADMSG, "dtf: malformed uuid: %v", err)
		}
		return Value{Kind: UUID, uuidVal: u}, nil

	case Selector:
		trait, err := v.ReadZString()
		if err != nil {
			return Value{}, err
		}
		elem, err := v.ReadZString()
		if err != nil {
			return Value{}, err
		}
		if trait == "" || elem == "" {
			return Value{}, errcode.New(errcode.EBADMSG, "dtf: selector trait/element must be non-empty")
		}
		return Value{Kind: Selector, selTrait: trait, selElem: elem}, nil

	case Error:
		codeB, err := v.Advance(2)
		if err != nil {
			return Value{}, err
		}
		code := int16(binary.LittleEndian.Uint16(codeB))
		msg, err := v.ReadZString()
		if err != nil {
			return Value{}, err
		}
		var msgPtr *string
		if msg != "" {
			msgPtr = &msg
		}
		return Value{Kind: Error, errCode: code, errMsg: msgPtr}, nil

	case Array:
		nbytes, nitems, inner, body, err := probeListHeader(v, true)
		if err != nil {
			return Value{}, err
		}
		_ = nbytes
		return Value{Kind: Array, list: &List{Inner: inner, N: int(nitems), body: body}}, nil

	case Tuple:
		nbytes, nitems, _, body, err := probeListHeader(v, false)
		if err != nil {
			return Value{}, err
		}
		_ = nbytes
		return Value{Kind: Tuple, list: &List{Inner: Variant, N: int(nitems), body: body}}, nil

	case Pair:
		nbytesB, err := v.Advance(4)
		if err != nil {
			return Value{}, err
		}
		nbytes := binary.LittleEndian.Uint32(nbytesB)
		body, err := v.TakeSubview(int(nbytes))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Pair, list: &List{Inner: Variant, N: 2, body: body}}, nil

	default:
		return Value{}, errcode.New(errcode.EBADMSG, "dtf: unsupported type tag %v", t)
	}
}

// probeListHeader reads the common ARRAY/TUPLE prefix: a u32 byte count
// covering everything after itself, a u16 element count, and (for ARRAY
// only) a u8 inner-type tag. It returns the element-region subview with
// the header bytes already subtracted out of nbytes.
func probeListHeader(v *View, hasInner bool) (nbytes uint32, nitems uint16, inner Type, body View, err error) {
	nbytesB, err := v.Advance(4)
	if err != nil {
		return
	}
	nbytes = binary.LittleEndian.Uint32(nbytesB)

	nitemsB, err := v.Advance(2)
	if err != nil {
		return
	}
	nitems = binary.LittleEndian.Uint16(nitemsB)

	headerAfterNbytes := 2
	if hasInner {
		innerB, aErr := v.Advance(1)
		if aErr != nil {
			err = aErr
			return
		}
		inner = Type(innerB[0])
		headerAfterNbytes = 3
	}

	elementsLen := int(nbytes) - headerAfterNbytes
	if elementsLen < 0 {
		err = errcode.New(errcode.EBADMSG, "dtf: list nbytes too small for its own header")
		return
	}

	body, err = v.TakeSubview(elementsLen)
	return
}
