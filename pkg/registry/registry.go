// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package registry

import (
	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
	"github.com/zurutech/dicey-sub001/pkg/hashtable"
)

// Object is registered at a canonical path and implements a set of
// traits. It never holds Trait content directly;
// traits are shared, registry-global definitions looked up by name.
type Object struct {
	Path   string
	Traits *hashtable.Set
}

// Subscription is a (client, canonical path, selector) tuple. The table
// has set semantics: adding the same tuple twice is idempotent.
type Subscription struct {
	ClientID string
	Path     string
	Trait    string
	Elem     string
}

func (s Subscription) key() string {
	return s.ClientID + "\x00" + s.Path + "\x00" + s.Trait + "\x00" + s.Elem
}

// Registry holds every Object, alias and Trait definition known to a
// server, plus the signal subscription table. It is not safe for
// concurrent use; pkg/ipc's server loop is the only writer while a
// server is running.
type Registry struct {
	paths   map[string]*Object
	aliases map[string]string // alias path -> canonical path
	traits  map[string]*Trait

	subs *hashtable.Set // keyed by Subscription.key()
}

// New returns an empty registry. Built-in objects are added separately
// by RegisterBuiltins (builtins.go).
func New() *Registry {
	return &Registry{
		paths:   make(map[string]*Object),
		aliases: make(map[string]string),
		traits:  make(map[string]*Trait),
		subs:    hashtable.NewSet(0),
	}
}

// AddTrait registers a trait definition. Fails EALIASALREADYEXISTS if a
// trait with that name already exists.
func (r *Registry) AddTrait(t *Trait) error {
	if _, exists := r.traits[t.Name]; exists {
		return errcode.New(errcode.EALIASALREADYEXISTS, "registry: trait %s already registered", t.Name)
	}
	r.traits[t.Name] = t
	return nil
}

// Trait looks up a trait definition by name.
func (r *Registry) Trait(name string) (*Trait, bool) {
	t, ok := r.traits[name]
	return t, ok
}

// Traits returns every registered trait name.
func (r *Registry) Traits() []string {
	out := make([]string, 0, len(r.traits))
	for name := range r.traits {
		out = append(out, name)
	}
	return out
}

// RegisterObject adds a new object at a canonical path implementing the
// given trait names, which must already be registered. Fails
// EOBJECTEXISTS if path collides with an existing object or alias; no
// path is ever simultaneously an object path and an alias.
func (r *Registry) RegisterObject(path string, traitNames ...string) error {
	if _, exists := r.paths[path]; exists {
		return errcode.New(errcode.EOBJECTEXISTS, "registry: object already exists at %s", path)
	}
	if _, exists := r.aliases[path]; exists {
		return errcode.New(errcode.EOBJECTEXISTS, "registry: %s is already an alias", path)
	}
	for _, tn := range traitNames {
		if _, ok := r.traits[tn]; !ok {
			return errcode.New(errcode.ETRAITNOTFOUND, "registry: trait %s is not registered", tn)
		}
	}
	traits := hashtable.NewSet(len(traitNames))
	for _, tn := range traitNames {
		traits.Add(tn)
	}
	r.paths[path] = &Object{Path: path, Traits: traits}
	return nil
}

// AddAlias points aliasPath at an existing canonical path. Fails
// EPATHNOTFOUND if canonicalPath has no object, and EALIASALREADYEXISTS
// if aliasPath is already taken by either an object or another alias.
func (r *Registry) AddAlias(aliasPath, canonicalPath string) error {
	if _, exists := r.paths[canonicalPath]; !exists {
		return errcode.New(errcode.EPATHNOTFOUND, "registry: no object at %s", canonicalPath)
	}
	if _, exists := r.paths[aliasPath]; exists {
		return errcode.New(errcode.EALIASALREADYEXISTS, "registry: %s is already an object path", aliasPath)
	}
	if _, exists := r.aliases[aliasPath]; exists {
		return errcode.New(errcode.EALIASALREADYEXISTS, "registry: %s is already an alias", aliasPath)
	}
	r.aliases[aliasPath] = canonicalPath
	return nil
}

// RemoveObject deletes the object at canonicalPath along with every
// alias pointing at it.
func (r *Registry) RemoveObject(canonicalPath string) error {
	if _, exists := r.paths[canonicalPath]; !exists {
		return errcode.New(errcode.EPATHNOTFOUND, "registry: no object at %s", canonicalPath)
	}
	delete(r.paths, canonicalPath)
	for alias, target := range r.aliases {
		if target == canonicalPath {
			delete(r.aliases, alias)
		}
	}
	return nil
}

// Resolve follows path through the alias table if needed, returning the
// canonical path and whether path itself was an alias.
func (r *Registry) Resolve(path string) (canonical string, wasAlias bool) {
	if target, ok := r.aliases[path]; ok {
		return target, true
	}
	return path, false
}

// Object looks up the Object at a canonical path (after alias
// resolution).
func (r *Registry) Object(path string) (*Object, string, error) {
	canonical, _ := r.Resolve(path)
	obj, ok := r.paths[canonical]
	if !ok {
		return nil, "", errcode.New(errcode.EPATHNOTFOUND, "registry: no object at %s", path)
	}
	return obj, canonical, nil
}

// GetElement resolves aliases, finds the object, checks it implements
// trait, and fetches elem from the
// trait. Returns the canonical path alongside the element so callers
// needing it (e.g. Subscribe) don't have to resolve twice.
func (r *Registry) GetElement(path, trait, elem string) (canonical string, el *Element, err error) {
	obj, canonical, err := r.Object(path)
	if err != nil {
		return "", nil, err
	}
	if !obj.Traits.Has(trait) {
		return "", nil, errcode.New(errcode.ETRAITNOTFOUND, "registry: %s does not implement %s", canonical, trait)
	}
	t, ok := r.traits[trait]
	if !ok {
		return "", nil, errcode.New(errcode.ETRAITNOTFOUND, "registry: trait %s is not registered", trait)
	}
	el, ok = t.Element(elem)
	if !ok {
		return "", nil, errcode.New(errcode.EELEMENTNOTFOUND, "registry: %s has no element %s:%s", canonical, trait, elem)
	}
	return canonical, el, nil
}

// CheckOp validates that op is legal against el: SET needs a non-readonly
// property, GET needs any property, EXEC needs an operation, SIGNAL needs
// a signal.
func CheckOp(el *Element, op dtf.Op) error {
	switch op {
	case dtf.OpGet:
		if el.Kind != Property {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: GET requires a property, %s is %v", el.Name, el.Kind)
		}
	case dtf.OpSet:
		if el.Kind != Property {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: SET requires a property, %s is %v", el.Name, el.Kind)
		}
		if el.Readonly {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: %s is a readonly property", el.Name)
		}
	case dtf.OpExec:
		if el.Kind != Operation {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: EXEC requires an operation, %s is %v", el.Name, el.Kind)
		}
		if el.Signature == nil || el.Signature.Kind != dtf.FunctionalDesc {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: operation %s lacks a functional signature", el.Name)
		}
	case dtf.OpSignal:
		if el.Kind != Signal {
			return errcode.New(errcode.ENOTSUPPORTED, "registry: SIGNAL requires a signal element, %s is %v", el.Name, el.Kind)
		}
	default:
		return errcode.New(errcode.EINVAL, "registry: unexpected op %v for dispatch", op)
	}
	return nil
}

// Subscribe adds (clientID, canonical-of-path, trait, elem) to the
// subscription table, resolving aliases first. Returns the canonical
// path only when path was an alias: signals arrive with canonical paths,
// so a client that subscribed through an alias needs the mapping back.
func (r *Registry) Subscribe(clientID, path, trait, elem string) (canonicalIfAlias string, err error) {
	canonical, el, err := r.GetElement(path, trait, elem)
	if err != nil {
		return "", err
	}
	if el.Kind != Signal {
		return "", errcode.New(errcode.ENOTSUPPORTED, "registry: %s:%s is not a signal", trait, elem)
	}
	sub := Subscription{ClientID: clientID, Path: canonical, Trait: trait, Elem: elem}
	r.subs.Add(sub.key())
	if canonical != path {
		return canonical, nil
	}
	return "", nil
}

// Unsubscribe removes a prior Subscribe entry. Idempotent: removing a
// subscription that doesn't exist is not an error.
func (r *Registry) Unsubscribe(clientID, path, trait, elem string) {
	canonical, _ := r.Resolve(path)
	sub := Subscription{ClientID: clientID, Path: canonical, Trait: trait, Elem: elem}
	r.subs.Remove(sub.key())
}

// UnsubscribeAll removes every subscription held by clientID, used on
// client disconnect.
func (r *Registry) UnsubscribeAll(clientID string) {
	var stale []string
	r.subs.Range(func(k string) bool {
		if hasClientPrefix(k, clientID) {
			stale = append(stale, k)
		}
		return true
	})
	for _, k := range stale {
		r.subs.Remove(k)
	}
}

func hasClientPrefix(key, clientID string) bool {
	return len(key) > len(clientID) && key[:len(clientID)] == clientID && key[len(clientID)] == 0
}

// Subscribers returns the distinct client ids subscribed to
// (canonicalPath, trait, elem), the fan-out list a raised signal walks.
func (r *Registry) Subscribers(canonicalPath, trait, elem string) []string {
	prefix := Subscription{Path: canonicalPath, Trait: trait, Elem: elem}
	var out []string
	r.subs.Range(func(k string) bool {
		// key format is clientID\x00path\x00trait\x00elem; match everything
		// after the first \x00 against prefix's tail.
		if rest, ok := splitAfterFirstNUL(k); ok && rest == prefix.tail() {
			client, _ := splitBeforeFirstNUL(k)
			out = append(out, client)
		}
		return true
	})
	return out
}

func (s Subscription) tail() string {
	return s.Path + "\x00" + s.Trait + "\x00" + s.Elem
}

func splitAfterFirstNUL(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[i+1:], true
		}
	}
	return "", false
}

func splitBeforeFirstNUL(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], true
		}
	}
	return "", false
}
