// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"strings"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// DescKind distinguishes a plain value signature from an operation's
// input -> output functional signature.
type DescKind int

const (
	ValueDesc DescKind = iota
	FunctionalDesc
)

// Descriptor is the parsed form of a type-descriptor string. For a
// ValueDesc, Tag/Elem/First/Second/Items describe the value shape directly. For a
// FunctionalDesc, In and Out are themselves ValueDesc descriptors and
// every other field is zero.
type Descriptor struct {
	Kind DescKind

	// populated when Kind == ValueDesc
	Tag    Type          // scalar tag, or Array/Tuple/Pair for a container
	Elem   *Descriptor   // Array element type
	First  *Descriptor   // Pair first component
	Second *Descriptor   // Pair second component
	Items  []*Descriptor // Tuple components

	// populated when Kind == FunctionalDesc
	In  *Descriptor
	Out *Descriptor
}

// String renders the canonical textual form of the descriptor.
func (d *Descriptor) String() string {
	if d == nil {
		return ""
	}
	if d.Kind == FunctionalDesc {
		return d.In.String() + " -> " + d.Out.String()
	}
	switch d.Tag {
	case Array:
		return "[" + d.Elem.String() + "]"
	case Pair:
		return "{" + d.First.String() + " " + d.Second.String() + "}"
	case Tuple:
		var sb strings.Builder
		sb.WriteByte('(')
		for _, it := range d.Items {
			sb.WriteString(it.String())
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return string(rune(d.Tag))
	}
}

// scalarTags is the set of single-character tags legal in a SCALAR
// position, i.e. every non-container value tag plus the 'v' wildcard.
var scalarTags = map[byte]Type{
	byte(Unit): Unit, byte(Bool): Bool, byte(Byte): Byte, byte(Float): Float,
	byte(Int16): Int16, byte(Int32): Int32, byte(Int64): Int64,
	byte(Uint16): Uint16, byte(Uint32): Uint32, byte(Uint64): Uint64,
	byte(Bytes): Bytes, byte(Str): Str, byte(UUID): UUID,
	byte(Path): Path, byte(Selector): Selector, byte(Error): Error,
	byte(Variant): Variant,
}

// descParser is a minimal recursive-descent parser over a string. It never
// panics and never recurses deeper than the input has unconsumed bytes to
// justify, so it cannot consume unbounded memory.
type descParser struct {
	s   string
	pos int
}

func (p *descParser) peek() (byte, bool) {
	if p.pos >= len(p.s) {
		return 0, false
	}
	return p.s[p.pos], true
}

func (p *descParser) next() (byte, bool) {
	b, ok := p.peek()
	if ok {
		p.pos++
	}
	return b, ok
}

func (p *descParser) skipWS() {
	for {
		b, ok := p.peek()
		if !ok || (b != ' ' && b != '\t') {
			return
		}
		p.pos++
	}
}

func (p *descParser) expect(b byte) error {
	got, ok := p.next()
	if !ok || got != b {
		return errcode.New(errcode.EINVAL, "typedescr: expected %q at offset %d", b, p.pos)
	}
	return nil
}

// parseType parses a single `type` production (SCALAR | ARRAY | PAIR |
// TUPLE).
func (p *descParser) parseType() (*Descriptor, error) {
	b, ok := p.next()
	if !ok {
		return nil, errcode.New(errcode.EINVAL, "typedescr: unexpected end of descriptor")
	}

	switch b {
	case byte(Array):
		p.skipWS()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &Descriptor{Kind: ValueDesc, Tag: Array, Elem: elem}, nil

	case byte(Pair):
		p.skipWS()
		first, err := p.parseType()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		second, err := p.parseType()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return &Descriptor{Kind: ValueDesc, Tag: Pair, First: first, Second: second}, nil

	case byte(Tuple):
		var items []*Descriptor
		for {
			p.skipWS()
			next, ok := p.peek()
			if !ok {
				return nil, errcode.New(errcode.EINVAL, "typedescr: unterminated tuple")
			}
			if next == ')' {
				p.pos++
				return &Descriptor{Kind: ValueDesc, Tag: Tuple, Items: items}, nil
			}
			item, err := p.parseType()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}

	default:
		tag, ok := scalarTags[b]
		if !ok {
			return nil, errcode.New(errcode.EINVAL, "typedescr: unrecognized type tag %q", b)
		}
		return &Descriptor{Kind: ValueDesc, Tag: tag}, nil
	}
}

// ParseDescriptor parses a full `desc` or `functional` production, never
// panicking: malformed input always comes back as an error.
func ParseDescriptor(s string) (*Descriptor, error) {
	p := &descParser{s: s}
	p.skipWS()
	left, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipWS()

	if strings.HasPrefix(p.s[p.pos:], "->") {
		p.pos += 2
		p.skipWS()
		right, err := p.parseType()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.pos != len(p.s) {
			return nil, errcode.New(errcode.EINVAL, "typedescr: trailing data after functional descriptor")
		}
		return &Descriptor{Kind: FunctionalDesc, In: left, Out: right}, nil
	}

	if p.pos != len(p.s) {
		return nil, errcode.New(errcode.EINVAL, "typedescr: trailing data after value descriptor")
	}
	return left, nil
}
