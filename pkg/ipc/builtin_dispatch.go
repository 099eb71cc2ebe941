// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
	"github.com/zurutech/dicey-sub001/pkg/registry"
)

// dispatchBuiltin answers a message addressed at one of the server's
// built-in objects: the registry object itself, the
// server's signal manager, and per-trait introspection objects. handled
// is false for anything else, letting the caller fall through to the
// application RequestHandler. When handled is true and err is non-nil,
// the caller is responsible for turning err into an ERROR response;
// otherwise this function has already enqueued the reply itself.
func (s *Server) dispatchBuiltin(c *serverClient, seq uint32, op dtf.Op, path, trait, elem string, value *dtf.Value) (handled bool, err error) {
	switch {
	case path == registry.PathRegistry && trait == registry.TraitRegistry:
		return true, s.dispatchRegistryTrait(c, seq, op, elem, value)
	case trait == registry.TraitIntrospection:
		// Introspection is answerable on every registered object, not
		// just /dicey/registry; the reply describes the target's traits.
		return true, s.dispatchIntrospectionTrait(c, seq, op, elem, path)
	case path == registry.PathServer && trait == registry.TraitSignalManager:
		return true, s.dispatchSignalManagerTrait(c, seq, op, elem, value)
	case path == registry.PathServer && trait == registry.TraitPluginManager:
		return true, s.dispatchPluginManagerTrait(c, seq, op, elem)
	default:
		if trait != registry.TraitTrait {
			return false, nil
		}
		describedName, ok := registry.TraitNameFromObjectPath(path)
		if !ok {
			return false, nil
		}
		t, ok := s.reg.Trait(describedName)
		if !ok {
			return true, errcode.New(errcode.ETRAITNOTFOUND, "ipc: trait %s is not registered", describedName)
		}
		return true, s.dispatchTraitObject(c, seq, op, elem, t)
	}
}

func stringArray(items []string) (*dtf.ArgNode, error) {
	children := make([]*dtf.ArgNode, len(items))
	for i, s := range items {
		children[i] = dtf.NewStr(s)
	}
	return dtf.NewArray(dtf.Str, children)
}

func pathArray(items []string) (*dtf.ArgNode, error) {
	children := make([]*dtf.ArgNode, len(items))
	for i, p := range items {
		children[i] = dtf.NewPath(p)
	}
	return dtf.NewArray(dtf.Path, children)
}

func (s *Server) dispatchRegistryTrait(c *serverClient, seq uint32, op dtf.Op, elem string, value *dtf.Value) error {
	if op != dtf.OpGet && op != dtf.OpExec {
		return errcode.New(errcode.ENOTSUPPORTED, "ipc: dicey.Registry:%s does not support %v", elem, op)
	}
	switch elem {
	case "Objects":
		arr, err := pathArray(s.reg.Objects())
		if err != nil {
			return err
		}
		return c.sendResponse(seq, arr)
	case "Traits":
		arr, err := pathArray(s.reg.Traits())
		if err != nil {
			return err
		}
		return c.sendResponse(seq, arr)
	case "PathExists":
		if value == nil {
			return errcode.New(errcode.EINVAL, "ipc: PathExists requires a path argument")
		}
		p, err := value.Path()
		if err != nil {
			return err
		}
		return c.sendResponse(seq, dtf.NewBool(s.reg.PathExists(p)))
	case "TraitExists":
		if value == nil {
			return errcode.New(errcode.EINVAL, "ipc: TraitExists requires a string argument")
		}
		name, err := value.Str()
		if err != nil {
			return err
		}
		return c.sendResponse(seq, dtf.NewBool(s.reg.TraitExists(name)))
	case "ElementExists":
		path, trait, elemName, err := unpackPathSelectorTuple(value)
		if err != nil {
			return err
		}
		return c.sendResponse(seq, dtf.NewBool(s.reg.ElementExists(path, trait, elemName)))
	default:
		return errcode.New(errcode.EELEMENTNOTFOUND, "ipc: dicey.Registry has no element %s", elem)
	}
}

func (s *Server) dispatchIntrospectionTrait(c *serverClient, seq uint32, op dtf.Op, elem string, path string) error {
	if op != dtf.OpGet || elem != "Data" {
		return errcode.New(errcode.ENOTSUPPORTED, "ipc: dicey.Introspection:%s does not support %v", elem, op)
	}
	entries, err := s.reg.Introspect(path)
	if err != nil {
		return err
	}
	v, err := buildIntrospectionValue(entries)
	if err != nil {
		return err
	}
	return c.sendResponse(seq, v)
}

func (s *Server) dispatchSignalManagerTrait(c *serverClient, seq uint32, op dtf.Op, elem string, value *dtf.Value) error {
	if op != dtf.OpExec {
		return errcode.New(errcode.ENOTSUPPORTED, "ipc: dicey.SignalManager:%s does not support %v", elem, op)
	}
	switch elem {
	case "Subscribe":
		path, trait, elemName, err := unpackPathSelectorPair(value)
		if err != nil {
			return err
		}
		canonical, err := s.reg.Subscribe(c.id, path, trait, elemName)
		if err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.SubscriptionAdded()
		}
		if canonical != "" {
			return c.sendResponse(seq, dtf.NewPath(canonical))
		}
		return c.sendResponse(seq, dtf.NewUnit())
	case "Unsubscribe":
		path, trait, elemName, err := unpackPathSelectorPair(value)
		if err != nil {
			return err
		}
		s.reg.Unsubscribe(c.id, path, trait, elemName)
		if s.metrics != nil {
			s.metrics.SubscriptionRemoved()
		}
		return c.sendResponse(seq, dtf.NewUnit())
	default:
		return errcode.New(errcode.EELEMENTNOTFOUND, "ipc: dicey.SignalManager has no element %s", elem)
	}
}

// dispatchPluginManagerTrait answers dicey.PluginManager's
// registry-visible contract. Subprocess plugin loading is out of scope,
// so ListPlugins always reports an empty list rather than tracking real
// plugin processes.
func (s *Server) dispatchPluginManagerTrait(c *serverClient, seq uint32, op dtf.Op, elem string) error {
	if op != dtf.OpGet || elem != "ListPlugins" {
		return errcode.New(errcode.ENOTSUPPORTED, "ipc: dicey.PluginManager:%s does not support %v", elem, op)
	}
	arr, err := stringArray(nil)
	if err != nil {
		return err
	}
	return c.sendResponse(seq, arr)
}

func (s *Server) dispatchTraitObject(c *serverClient, seq uint32, op dtf.Op, elem string, t *registry.Trait) error {
	if op != dtf.OpGet {
		return errcode.New(errcode.ENOTSUPPORTED, "ipc: dicey.Trait:%s does not support %v", elem, op)
	}
	var names []string
	switch elem {
	case "Properties":
		for _, e := range t.Properties() {
			names = append(names, e.Name)
		}
	case "Signals":
		for _, e := range t.Signals() {
			names = append(names, e.Name)
		}
	case "Operations":
		for _, e := range t.Operations() {
			names = append(names, e.Name)
		}
	default:
		return errcode.New(errcode.EELEMENTNOTFOUND, "ipc: dicey.Trait has no element %s", elem)
	}
	arr, err := stringArray(names)
	if err != nil {
		return err
	}
	return c.sendResponse(seq, arr)
}

// unpackPathSelectorPair reads a Pair(Path, Selector) argument, the shape
// Subscribe/Unsubscribe's "{@%} -> ..." signature describes.
func unpackPathSelectorPair(value *dtf.Value) (path, trait, elem string, err error) {
	if value == nil {
		return "", "", "", errcode.New(errcode.EINVAL, "ipc: expected a (path, selector) pair argument")
	}
	list, err := value.List()
	if err != nil {
		return "", "", "", err
	}
	it := list.Iter()
	if !it.HasNext() {
		return "", "", "", errcode.New(errcode.EBADMSG, "ipc: empty pair argument")
	}
	first, err := it.Next()
	if err != nil {
		return "", "", "", err
	}
	path, err = first.Path()
	if err != nil {
		return "", "", "", err
	}
	if !it.HasNext() {
		return "", "", "", errcode.New(errcode.EBADMSG, "ipc: pair argument is missing its selector")
	}
	second, err := it.Next()
	if err != nil {
		return "", "", "", err
	}
	trait, elem, err = second.Selector()
	return path, trait, elem, err
}

// unpackPathSelectorTuple reads a Tuple(Path, Selector) argument, the
// shape ElementExists's "(@%) -> b" signature describes.
func unpackPathSelectorTuple(value *dtf.Value) (path, trait, elem string, err error) {
	return unpackPathSelectorPair(value)
}

func buildIntrospectionValue(entries []registry.TraitIntrospectionEntry) (*dtf.ArgNode, error) {
	outer := make([]*dtf.ArgNode, len(entries))
	for i, entry := range entries {
		elems := make([]*dtf.ArgNode, len(entry.Elements))
		for j, el := range entry.Elements {
			detail, err := dtf.NewTuple([]*dtf.ArgNode{
				dtf.NewByte(byte(el.Kind)),
				dtf.NewStr(el.Signature),
				dtf.NewBool(el.Readonly),
			})
			if err != nil {
				return nil, err
			}
			pair, err := dtf.NewPair(dtf.NewStr(el.Name), detail)
			if err != nil {
				return nil, err
			}
			elems[j] = pair
		}
		elemArr, err := dtf.NewArray(dtf.Pair, elems)
		if err != nil {
			return nil, err
		}
		pair, err := dtf.NewPair(dtf.NewStr(entry.Trait), elemArr)
		if err != nil {
			return nil, err
		}
		outer[i] = pair
	}
	return dtf.NewArray(dtf.Pair, outer)
}
