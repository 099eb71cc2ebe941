// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"math"

	"github.com/google/uuid"
	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// List is the read-side projection of an ARRAY, TUPLE or PAIR: the byte
// range of its elements, plus enough metadata to iterate it without
// having decoded any element yet. Inner == Variant marks a heterogeneous
// container (tuple/pair); any other type marks a homogeneous array of
// that type.
//
// A List is an immutable descriptor over a borrowed byte range: creating
// an Iter() from it is cheap and independent, but a given Iter is
// forward-only and non-restartable.
type List struct {
	Inner Type
	N     int
	body  View
}

// ListIter walks a List's elements front to back. Check HasNext before
// advancing; Next past the end fails.
type ListIter struct {
	inner     Type
	remaining int
	cur       View
}

// Iter starts a fresh, independent walk over l's elements.
func (l List) Iter() *ListIter {
	return &ListIter{inner: l.Inner, remaining: l.N, cur: l.body}
}

// HasNext reports whether another element remains.
func (it *ListIter) HasNext() bool {
	return it.remaining > 0
}

// Next probes and returns the next element, failing ENODATA if the
// iterator is already exhausted.
func (it *ListIter) Next() (Value, error) {
	if it.remaining <= 0 {
		return Value{}, errcode.New(errcode.ENODATA, "dtf: list iterator exhausted")
	}

	var v Value
	var err error
	if it.inner == Variant {
		// heterogeneous: each element is a fully tagged Value
		v, err = ProbeValue(&it.cur)
	} else {
		// homogeneous: each element is body(inner) with no tag byte
		v, err = probeBody(it.inner, &it.cur)
	}
	if err != nil {
		return Value{}, err
	}
	it.remaining--
	return v, nil
}

// Value is the non-owning, read-side projection of a single wire value.
// Scalars and STR/PATH strings are copied out; BYTES and
// the list element region remain borrowed views into the owning packet's
// buffer and must not outlive it.
type Value struct {
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

	str      string // STR / PATH
	bytesVal []byte // BYTES
	uuidVal  uuid.UUID

	selTrait string
	selElem  string

	errCode int16
	errMsg  *string // nil means "no message"

	list *List
}

func mismatch(kind Type, want Type) error {
	return errcode.New(errcode.EVALUETYPEMISMATCH, "dtf: value is %v, not %v", kind, want)
}

func (v Value) Bool() (bool, error) {
	if v.Kind != Bool {
		return false, mismatch(v.Kind, Bool)
	}
	return v.boolVal, nil
}

func (v Value) Byte() (byte, error) {
	if v.Kind != Byte {
		return 0, mismatch(v.Kind, Byte)
	}
	return v.byteVal, nil
}

func (v Value) Float() (float64, error) {
	if v.Kind != Float {
		return 0, mismatch(v.Kind, Float)
	}
	return v.f64, nil
}

func (v Value) Int16() (int16, error) {
	if v.Kind != Int16 {
		return 0, mismatch(v.Kind, Int16)
	}
	return v.i16, nil
}

func (v Value) Int32() (int32, error) {
	if v.Kind != Int32 {
		return 0, mismatch(v.Kind, Int32)
	}
	return v.i32, nil
}

func (v Value) Int64() (int64, error) {
	if v.Kind != Int64 {
		return 0, mismatch(v.Kind, Int64)
	}
	return v.i64, nil
}

func (v Value) Uint16() (uint16, error) {
	if v.Kind != Uint16 {
		return 0, mismatch(v.Kind, Uint16)
	}
	return v.u16, nil
}

func (v Value) Uint32() (uint32, error) {
	if v.Kind != Uint32 {
		return 0, mismatch(v.Kind, Uint32)
	}
	return v.u32, nil
}

func (v Value) Uint64() (uint64, error) {
	if v.Kind != Uint64 {
		return 0, mismatch(v.Kind, Uint64)
	}
	return v.u64, nil
}

func (v Value) Str() (string, error) {
	if v.Kind != Str {
		return "", mismatch(v.Kind, Str)
	}
	return v.str, nil
}

func (v Value) Path() (string, error) {
	if v.Kind != Path {
		return "", mismatch(v.Kind, Path)
	}
	return v.str, nil
}

func (v Value) Bytes() ([]byte, error) {
	if v.Kind != Bytes {
		return nil, mismatch(v.Kind, Bytes)
	}
	return v.bytesVal, nil
}

func (v Value) UUID() (uuid.UUID, error) {
	if v.Kind != UUID {
		return uuid.UUID{}, mismatch(v.Kind, UUID)
	}
	return v.uuidVal, nil
}

// Selector returns the (trait, element) pair of a SELECTOR value.
func (v Value) Selector() (trait, elem string, err error) {
	if v.Kind != Selector {
		return "", "", mismatch(v.Kind, Selector)
	}
	return v.selTrait, v.selElem, nil
}

// ErrorValue returns the code and optional message of an ERROR value.
// On the wire "no message" and "empty message" both encode as an empty
// zstring; decode surfaces nil rather than "" for that case, so msg is
// nil whenever the wire carried an empty zstring.
func (v Value) ErrorValue() (code int16, msg *string, err error) {
	if v.Kind != Error {
		return 0, nil, mismatch(v.Kind, Error)
	}
	return v.errCode, v.errMsg, nil
}

// List returns the element descriptor of an ARRAY, TUPLE or PAIR value.
func (v Value) List() (List, error) {
	if !IsContainer(v.Kind) {
		return List{}, errcode.New(errcode.EVALUETYPEMISMATCH, "dtf: value is %v, not a container", v.Kind)
	}
	return *v.list, nil
}

// IsCompatibleWith reports whether v structurally matches descriptor d:
// 'v' matches anything, containers match element-wise, scalar tags match
// by equality. A FunctionalDesc
// never matches a value directly -- use its .In/.Out against the
// argument or reply value instead.
func (v Value) IsCompatibleWith(d *Descriptor) bool {
	if d == nil || d.Kind != ValueDesc {
		return false
	}
	if d.Tag == Variant {
		return true
	}
	switch d.Tag {
	case Array:
		if v.Kind != Array {
			return false
		}
		it := v.list.Iter()
		for it.HasNext() {
			elem, err := it.Next()
			if err != nil || !elem.IsCompatibleWith(d.Elem) {
				return false
			}
		}
		return true
	case Pair:
		if v.Kind != Pair {
			return false
		}
		it := v.list.Iter()
		if !it.HasNext() {
			return false
		}
		first, err := it.Next()
		if err != nil || !first.IsCompatibleWith(d.First) {
			return false
		}
		if !it.HasNext() {
			return false
		}
		second, err := it.Next()
		if err != nil || !second.IsCompatibleWith(d.Second) {
			return false
		}
		return !it.HasNext()
	case Tuple:
		if v.Kind != Tuple {
			return false
		}
		if v.list.N != len(d.Items) {
			return false
		}
		it := v.list.Iter()
		for _, item := range d.Items {
			if !it.HasNext() {
				return false
			}
			elem, err := it.Next()
			if err != nil || !elem.IsCompatibleWith(item) {
				return false
			}
		}
		return !it.HasNext()
	default:
		return v.Kind == d.Tag
	}
}

// CanBeReturnedFrom is an alias of IsCompatibleWith: a reply value is
// checked against an operation's output descriptor using the exact same
// structural rule as any other value-against-descriptor check.
func (v Value) CanBeReturnedFrom(d *Descriptor) bool {
	return v.IsCompatibleWith(d)
}

// float64FromBits/ToBits are tiny helpers kept here (rather than inlined)
// so the wire layout (IEEE-754 double, little-endian) is named in one
// place.
func float64FromBits(bits uint64) float64 { return math.Float64frombits(bits) }
func float64ToBits(f float64) uint64      { return math.Float64bits(f) }
