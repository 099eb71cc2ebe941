// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package registry

import (
	"testing"

	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

func newTestTrait(t *testing.T, name string) *Trait {
	t.Helper()
	tr := NewTrait(name)
	if err := tr.AddElement(&Element{Name: "Value", Kind: Property, Signature: mustParseT(t, "s")}); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := tr.AddElement(&Element{Name: "Readonly", Kind: Property, Readonly: true, Signature: mustParseT(t, "i")}); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := tr.AddElement(&Element{Name: "Run", Kind: Operation, Signature: mustParseT(t, "s -> b")}); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := tr.AddElement(&Element{Name: "Changed", Kind: Signal, Signature: mustParseT(t, "s")}); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	return tr
}

func mustParseT(t *testing.T, sig string) *dtf.Descriptor {
	t.Helper()
	d, err := dtf.ParseDescriptor(sig)
	if err != nil {
		t.Fatalf("ParseDescriptor(%q): %v", sig, err)
	}
	return d
}

func TestGetElementLookupChain(t *testing.T) {
	r := New()
	tr := newTestTrait(t, "test.Widget")
	if err := r.AddTrait(tr); err != nil {
		t.Fatalf("AddTrait: %v", err)
	}
	if err := r.RegisterObject("/widget/1", "test.Widget"); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}

	if _, _, err := r.GetElement("/nope", "test.Widget", "Value"); !errcode.HasCode(err, errcode.EPATHNOTFOUND) {
		t.Fatalf("unknown path: got %v, want EPATHNOTFOUND", err)
	}
	if _, _, err := r.GetElement("/widget/1", "test.Other", "Value"); !errcode.HasCode(err, errcode.ETRAITNOTFOUND) {
		t.Fatalf("unknown trait: got %v, want ETRAITNOTFOUND", err)
	}
	if _, _, err := r.GetElement("/widget/1", "test.Widget", "Missing"); !errcode.HasCode(err, errcode.EELEMENTNOTFOUND) {
		t.Fatalf("unknown element: got %v, want EELEMENTNOTFOUND", err)
	}

	canonical, el, err := r.GetElement("/widget/1", "test.Widget", "Value")
	if err != nil {
		t.Fatalf("GetElement: %v", err)
	}
	if canonical != "/widget/1" || el.Name != "Value" {
		t.Fatalf("GetElement returned (%s, %s), want (/widget/1, Value)", canonical, el.Name)
	}
}

func TestAliasResolutionAndRemoval(t *testing.T) {
	r := New()
	tr := newTestTrait(t, "test.Widget")
	if err := r.AddTrait(tr); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterObject("/widget/1", "test.Widget"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddAlias("/widget/alias", "/widget/1"); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}

	canonical, el, err := r.GetElement("/widget/alias", "test.Widget", "Value")
	if err != nil {
		t.Fatalf("GetElement via alias: %v", err)
	}
	if canonical != "/widget/1" || el.Name != "Value" {
		t.Fatalf("got (%s, %s), want (/widget/1, Value)", canonical, el.Name)
	}

	if err := r.RemoveObject("/widget/1"); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if _, ok := r.aliases["/widget/alias"]; ok {
		t.Fatal("alias should be removed along with its object")
	}
}

func TestCheckOp(t *testing.T) {
	tr := newTestTrait(t, "test.Widget")
	value, _ := tr.Element("Value")
	readonly, _ := tr.Element("Readonly")
	run, _ := tr.Element("Run")
	changed, _ := tr.Element("Changed")

	cases := []struct {
		name string
		el   *Element
		op   dtf.Op
		ok   bool
	}{
		{"get on writable property", value, dtf.OpGet, true},
		{"get on readonly property", readonly, dtf.OpGet, true},
		{"set on writable property", value, dtf.OpSet, true},
		{"set on readonly property", readonly, dtf.OpSet, false},
		{"exec on operation", run, dtf.OpExec, true},
		{"exec on property", value, dtf.OpExec, false},
		{"signal on signal element", changed, dtf.OpSignal, true},
		{"signal on property", value, dtf.OpSignal, false},
		{"get on operation", run, dtf.OpGet, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := CheckOp(c.el, c.op)
			if c.ok && err != nil {
				t.Fatalf("CheckOp: unexpected error %v", err)
			}
			if !c.ok && err == nil {
				t.Fatal("CheckOp: expected an error, got nil")
			}
		})
	}
}

func TestSubscribeReturnsCanonicalOnlyForAlias(t *testing.T) {
	r := New()
	tr := newTestTrait(t, "test.Widget")
	if err := r.AddTrait(tr); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterObject("/widget/1", "test.Widget"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddAlias("/widget/alias", "/widget/1"); err != nil {
		t.Fatal(err)
	}

	canonical, err := r.Subscribe("client-a", "/widget/1", "test.Widget", "Changed")
	if err != nil {
		t.Fatalf("Subscribe via canonical path: %v", err)
	}
	if canonical != "" {
		t.Fatalf("Subscribe via canonical path returned %q, want empty", canonical)
	}

	canonical, err = r.Subscribe("client-b", "/widget/alias", "test.Widget", "Changed")
	if err != nil {
		t.Fatalf("Subscribe via alias: %v", err)
	}
	if canonical != "/widget/1" {
		t.Fatalf("Subscribe via alias returned %q, want /widget/1", canonical)
	}

	subs := r.Subscribers("/widget/1", "test.Widget", "Changed")
	if len(subs) != 2 {
		t.Fatalf("Subscribers = %v, want 2 entries", subs)
	}

	r.Unsubscribe("client-a", "/widget/1", "test.Widget", "Changed")
	subs = r.Subscribers("/widget/1", "test.Widget", "Changed")
	if len(subs) != 1 || subs[0] != "client-b" {
		t.Fatalf("Subscribers after Unsubscribe = %v, want [client-b]", subs)
	}

	r.UnsubscribeAll("client-b")
	subs = r.Subscribers("/widget/1", "test.Widget", "Changed")
	if len(subs) != 0 {
		t.Fatalf("Subscribers after UnsubscribeAll = %v, want none", subs)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	r := New()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	if !r.PathExists(PathRegistry) {
		t.Fatal("PathExists(/dicey/registry) should be true")
	}
	if !r.PathExists(PathServer) {
		t.Fatal("PathExists(/dicey/server) should be true")
	}
	if !r.TraitExists(TraitRegistry) || !r.TraitExists(TraitIntrospection) || !r.TraitExists(TraitSignalManager) {
		t.Fatal("expected built-in traits to be registered")
	}
	if !r.ElementExists(PathRegistry, TraitRegistry, "PathExists") {
		t.Fatal("expected dicey.Registry:PathExists to exist")
	}

	entries, err := r.Introspect(PathRegistry)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Introspect(/dicey/registry) returned %d traits, want 2", len(entries))
	}
}

func TestRegisterUserTraitCreatesTraitObject(t *testing.T) {
	r := New()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatal(err)
	}
	tr := newTestTrait(t, "sval.Sval")
	if err := r.RegisterUserTrait(tr); err != nil {
		t.Fatalf("RegisterUserTrait: %v", err)
	}
	if !r.PathExists("/dicey/registry/traits/sval.Sval") {
		t.Fatal("expected a trait-object at /dicey/registry/traits/sval.Sval")
	}
}
