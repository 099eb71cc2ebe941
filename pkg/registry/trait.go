// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package registry implements the server-side object/trait/element
// registry and alias table: lookup of elements by (path, trait,
// element), signature checking per operation kind, signal
// subscriptions, and the built-in introspection objects under
// /dicey/registry and /dicey/server.
package registry

import (
	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

// ElementKind distinguishes the three member kinds a Trait carries.
type ElementKind int

const (
	Operation ElementKind = iota
	Property
	Signal
)

func (k ElementKind) String() string {
	switch k {
	case Operation:
		return "OPERATION"
	case Property:
		return "PROPERTY"
	case Signal:
		return "SIGNAL"
	default:
		return "UNKNOWN"
	}
}

// Element is one named member of a Trait: an operation, a property, or a
// signal, each carrying a parsed type-descriptor signature. Readonly is
// meaningful only for Property elements.
type Element struct {
	Name      string
	Kind      ElementKind
	Signature *dtf.Descriptor
	Readonly  bool
}

// Trait is a named, ordered bundle of elements.
type Trait struct {
	Name     string
	elements map[string]*Element
	order    []string // insertion order, for stable introspection output
}

// NewTrait returns an empty trait named name.
func NewTrait(name string) *Trait {
	return &Trait{Name: name, elements: make(map[string]*Element)}
}

// AddElement registers an element, failing if one with the same name is
// already present.
func (t *Trait) AddElement(e *Element) error {
	if _, exists := t.elements[e.Name]; exists {
		return errcode.New(errcode.EALIASALREADYEXISTS, "registry: trait %s already has element %s", t.Name, e.Name)
	}
	t.elements[e.Name] = e
	t.order = append(t.order, e.Name)
	return nil
}

// Element looks up an element by name.
func (t *Trait) Element(name string) (*Element, bool) {
	e, ok := t.elements[name]
	return e, ok
}

// Elements returns every element in registration order.
func (t *Trait) Elements() []*Element {
	out := make([]*Element, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.elements[name])
	}
	return out
}

// Properties/Signals/Operations filter Elements by kind, backing the
// three dicey.Trait introspection properties.
func (t *Trait) Properties() []*Element { return t.filterKind(Property) }
func (t *Trait) Signals() []*Element    { return t.filterKind(Signal) }
func (t *Trait) Operations() []*Element { return t.filterKind(Operation) }

func (t *Trait) filterKind(kind ElementKind) []*Element {
	var out []*Element
	for _, name := range t.order {
		if e := t.elements[name]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
