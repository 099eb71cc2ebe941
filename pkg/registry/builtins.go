// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package registry

import (
	"strings"

	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

const (
	TraitRegistry      = "dicey.Registry"
	TraitIntrospection = "dicey.Introspection"
	TraitSignalManager = "dicey.SignalManager"
	TraitPluginManager = "dicey.PluginManager"
	TraitTrait         = "dicey.Trait"

	PathRegistry     = "/dicey/registry"
	PathServer       = "/dicey/server"
	traitsPathPrefix = "/dicey/registry/traits/"
)

func mustParse(sig string) *dtf.Descriptor {
	d, err := dtf.ParseDescriptor(sig)
	if err != nil {
		// Every signature here is a fixed literal reviewed at authoring
		// time; a parse failure means the literal itself is wrong.
		panic("registry: invalid built-in signature " + sig + ": " + err.Error())
	}
	return d
}

// RegisterBuiltins populates r with the startup-time trait definitions
// and objects every server carries: /dicey/registry (dicey.Registry +
// dicey.Introspection) and /dicey/server (dicey.SignalManager +
// dicey.PluginManager). Only dicey.PluginManager's registry-visible
// contract lives here (a ListPlugins property that always reports
// empty); subprocess plugin management is not this package's concern.
func RegisterBuiltins(r *Registry) error {
	registryTrait := NewTrait(TraitRegistry)
	for _, e := range []*Element{
		{Name: "Objects", Kind: Property, Readonly: true, Signature: mustParse("[@]")},
		{Name: "Traits", Kind: Property, Readonly: true, Signature: mustParse("[@]")},
		{Name: "PathExists", Kind: Operation, Signature: mustParse("@ -> b")},
		{Name: "TraitExists", Kind: Operation, Signature: mustParse("s -> b")},
		{Name: "ElementExists", Kind: Operation, Signature: mustParse("(@%) -> b")},
	} {
		if err := registryTrait.AddElement(e); err != nil {
			return err
		}
	}

	introspectionTrait := NewTrait(TraitIntrospection)
	if err := introspectionTrait.AddElement(&Element{
		Name: "Data", Kind: Property, Readonly: true, Signature: mustParse("[{s [{sv}]}]"),
	}); err != nil {
		return err
	}

	signalManagerTrait := NewTrait(TraitSignalManager)
	for _, e := range []*Element{
		{Name: "Subscribe", Kind: Operation, Signature: mustParse("{@%} -> v")},
		{Name: "Unsubscribe", Kind: Operation, Signature: mustParse("{@%} -> $")},
	} {
		if err := signalManagerTrait.AddElement(e); err != nil {
			return err
		}
	}

	pluginManagerTrait := NewTrait(TraitPluginManager)
	if err := pluginManagerTrait.AddElement(&Element{
		Name: "ListPlugins", Kind: Property, Readonly: true, Signature: mustParse("[s]"),
	}); err != nil {
		return err
	}

	traitTrait := NewTrait(TraitTrait)
	for _, e := range []*Element{
		{Name: "Properties", Kind: Property, Readonly: true, Signature: mustParse("[s]")},
		{Name: "Signals", Kind: Property, Readonly: true, Signature: mustParse("[s]")},
		{Name: "Operations", Kind: Property, Readonly: true, Signature: mustParse("[s]")},
	} {
		if err := traitTrait.AddElement(e); err != nil {
			return err
		}
	}

	for _, t := range []*Trait{registryTrait, introspectionTrait, signalManagerTrait, pluginManagerTrait, traitTrait} {
		if err := r.AddTrait(t); err != nil {
			return err
		}
	}

	if err := r.RegisterObject(PathRegistry, TraitRegistry, TraitIntrospection); err != nil {
		return err
	}
	if err := r.RegisterObject(PathServer, TraitSignalManager, TraitPluginManager); err != nil {
		return err
	}
	return nil
}

// RegisterUserTrait registers a trait definition supplied by application
// code and gives it a trait-object at /dicey/registry/traits/<name>
// implementing dicey.Trait.
func (r *Registry) RegisterUserTrait(t *Trait) error {
	if err := r.AddTrait(t); err != nil {
		return err
	}
	return r.RegisterObject(traitsPathPrefix+t.Name, TraitTrait)
}

// TraitNameFromObjectPath extracts the trait name described by a
// /dicey/registry/traits/<name> object path, for dispatching
// dicey.Trait reads back to the right trait definition.
func TraitNameFromObjectPath(path string) (string, bool) {
	if !strings.HasPrefix(path, traitsPathPrefix) {
		return "", false
	}
	return strings.TrimPrefix(path, traitsPathPrefix), true
}

// PathExists reports whether path resolves (through aliasing) to a
// registered object.
func (r *Registry) PathExists(path string) bool {
	_, _, err := r.Object(path)
	return err == nil
}

// TraitExists reports whether name is a registered trait.
func (r *Registry) TraitExists(name string) bool {
	_, ok := r.traits[name]
	return ok
}

// ElementExists reports whether (path, trait, elem) resolves via
// GetElement.
func (r *Registry) ElementExists(path, trait, elem string) bool {
	_, _, err := r.GetElement(path, trait, elem)
	return err == nil
}

// Objects returns every canonical object path, the value behind
// dicey.Registry:Objects.
func (r *Registry) Objects() []string {
	out := make([]string, 0, len(r.paths))
	for p := range r.paths {
		out = append(out, p)
	}
	return out
}

// Introspect returns, for the object at path, each implemented trait
// paired with a description of its elements -- the data behind a GET of
// dicey.Introspection:Data. Building the actual wire value from this is
// pkg/ipc's job (it owns the dtf builder); this only walks the registry
// data.
func (r *Registry) Introspect(path string) ([]TraitIntrospectionEntry, error) {
	obj, _, err := r.Object(path)
	if err != nil {
		return nil, err
	}
	var out []TraitIntrospectionEntry
	for _, traitName := range obj.Traits.Keys() {
		t, ok := r.traits[traitName]
		if !ok {
			continue
		}
		entry := TraitIntrospectionEntry{Trait: traitName}
		for _, el := range t.Elements() {
			entry.Elements = append(entry.Elements, ElementIntrospection{
				Name:      el.Name,
				Kind:      el.Kind,
				Signature: el.Signature.String(),
				Readonly:  el.Readonly,
			})
		}
		out = append(out, entry)
	}
	return out, nil
}

// TraitIntrospectionEntry is one ("trait.Name", [element descriptions])
// pairing in an introspection reply.
type TraitIntrospectionEntry struct {
	Trait    string
	Elements []ElementIntrospection
}

// ElementIntrospection is the (kind, signature, readonly) description of
// a single element inside an introspection reply.
type ElementIntrospection struct {
	Name      string
	Kind      ElementKind
	Signature string
	Readonly  bool
}
