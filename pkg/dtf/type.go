// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package dtf implements dicey's wire format: the binary encoding of
// packets and values, the staged builder that produces values of
// arbitrary nesting, the lazy probe/parse path that materializes borrowed
// views over a packet payload, and the type-descriptor grammar used for
// signature checking.
package dtf

import "fmt"

// Type is the wire tag of a value. The numeric values are the ASCII code
// points of the on-wire tag bytes, which doubles as a readable debug
// representation.
type Type byte

const (
	Unit     Type = '$'
	Bool     Type = 'b'
	Byte     Type = 'c'
	Float    Type = 'f'
	Int16    Type = 'n'
	Int32    Type = 'i'
	Int64    Type = 'x'
	Uint16   Type = 'q'
	Uint32   Type = 'u'
	Uint64   Type = 't'
	Array    Type = '['
	Tuple    Type = '('
	Pair     Type = '{'
	Bytes    Type = 'y'
	Str      Type = 's'
	UUID     Type = '#'
	Path     Type = '@'
	Selector Type = '%'
	Error    Type = 'e'

	// Variant is not a storable value tag: it appears only in signature
	// descriptors as the 'v' wildcard and in a list's inner_type field to
	// mark a heterogeneous (tuple/pair) container.
	Variant Type = 'v'

	// invalid marks a zero Value / probe error sentinel; never written to
	// the wire.
	invalid Type = 0
)

func (t Type) String() string {
	if t == invalid {
		return "<invalid>"
	}
	return string(rune(t))
}

// IsContainer reports whether t is one of ARRAY, TUPLE or PAIR.
func IsContainer(t Type) bool {
	switch t {
	case Array, Tuple, Pair:
		return true
	default:
		return false
	}
}

// fixedWidths tables the on-wire byte width of every type whose body has a
// length known purely from its tag (scalars). Dynamic types (STR, BYTES,
// PATH, SELECTOR, ERROR, and the containers) are absent from this table;
// callers must check IsFixed first.
var fixedWidths = map[Type]int{
	Unit:   0,
	Bool:   1,
	Byte:   1,
	Float:  8,
	Int16:  2,
	Int32:  4,
	Int64:  8,
	Uint16: 2,
	Uint32: 4,
	Uint64: 8,
	UUID:   16,
}

// IsFixed reports whether t has a statically known wire width.
func IsFixed(t Type) bool {
	_, ok := fixedWidths[t]
	return ok
}

// FixedWidth returns the wire width of a fixed-width type. It panics if t
// is not fixed-width; callers must guard with IsFixed.
func FixedWidth(t Type) int {
	w, ok := fixedWidths[t]
	if !ok {
		panic(fmt.Sprintf("dtf: %v is not a fixed-width type", t))
	}
	return w
}

// IsValid reports whether t is one of the closed set of storable value
// kinds (Variant is excluded: it is a descriptor/list-marker, never a
// value's own type).
func IsValid(t Type) bool {
	switch t {
	case Unit, Bool, Byte, Float, Int16, Int32, Int64, Uint16, Uint32, Uint64,
		Array, Tuple, Pair, Bytes, Str, UUID, Path, Selector, Error:
		return true
	default:
		return false
	}
}
