// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

func roundTrip(t *testing.T, n *ArgNode) Value {
	t.Helper()
	sizer := NewSizer()
	if err := n.WriteValue(sizer); err != nil {
		t.Fatalf("sizer pass: %v", err)
	}
	buf := NewBuffer(sizer.Len())
	if err := n.WriteValue(buf); err != nil {
		t.Fatalf("buffer pass: %v", err)
	}
	if len(buf.Bytes()) != sizer.Len() {
		t.Fatalf("sizer estimated %d bytes, writer produced %d", sizer.Len(), len(buf.Bytes()))
	}
	v := NewView(buf.Bytes())
	got, err := ProbeValue(&v)
	if err != nil {
		t.Fatalf("ProbeValue: %v", err)
	}
	if v.Len() != 0 {
		t.Fatalf("%d trailing bytes after probing a single value", v.Len())
	}
	return got
}

func TestScalarRoundTrip(t *testing.T) {
	if v := roundTrip(t, NewUnit()); v.Kind != Unit {
		t.Fatalf("Unit round-trip kind = %v", v.Kind)
	}
	if v := roundTrip(t, NewBool(true)); mustBool(t, v) != true {
		t.Fatal("Bool(true) round-trip mismatch")
	}
	if v := roundTrip(t, NewByte(0xAB)); mustByte(t, v) != 0xAB {
		t.Fatal("Byte round-trip mismatch")
	}
	if v := roundTrip(t, NewFloat(3.5)); mustFloat(t, v) != 3.5 {
		t.Fatal("Float round-trip mismatch")
	}
	if v := roundTrip(t, NewInt32(-7)); mustInt32(t, v) != -7 {
		t.Fatal("Int32 round-trip mismatch")
	}
	if v := roundTrip(t, NewUint64(1<<63)); mustUint64(t, v) != 1<<63 {
		t.Fatal("Uint64 round-trip mismatch")
	}
	if v := roundTrip(t, NewStr("hello")); mustStr(t, v) != "hello" {
		t.Fatal("Str round-trip mismatch")
	}
	if v := roundTrip(t, NewBytes([]byte{1, 2, 3})); string(mustBytes(t, v)) != "\x01\x02\x03" {
		t.Fatal("Bytes round-trip mismatch")
	}

	u := uuid.New()
	if v := roundTrip(t, NewUUID(u)); mustUUID(t, v) != u {
		t.Fatal("UUID round-trip mismatch")
	}
}

func mustBool(t *testing.T, v Value) bool      { t.Helper(); r, err := v.Bool(); fatalIf(t, err); return r }
func mustByte(t *testing.T, v Value) byte      { t.Helper(); r, err := v.Byte(); fatalIf(t, err); return r }
func mustFloat(t *testing.T, v Value) float64  { t.Helper(); r, err := v.Float(); fatalIf(t, err); return r }
func mustInt32(t *testing.T, v Value) int32    { t.Helper(); r, err := v.Int32(); fatalIf(t, err); return r }
func mustUint64(t *testing.T, v Value) uint64  { t.Helper(); r, err := v.Uint64(); fatalIf(t, err); return r }
func mustStr(t *testing.T, v Value) string     { t.Helper(); r, err := v.Str(); fatalIf(t, err); return r }
func mustBytes(t *testing.T, v Value) []byte   { t.Helper(); r, err := v.Bytes(); fatalIf(t, err); return r }
func mustUUID(t *testing.T, v Value) uuid.UUID { t.Helper(); r, err := v.UUID(); fatalIf(t, err); return r }

func fatalIf(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	children := []*ArgNode{NewInt32(1), NewInt32(2), NewInt32(3)}
	arr, err := NewArray(Int32, children)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	v := roundTrip(t, arr)
	if v.Kind != Array {
		t.Fatalf("kind = %v, want Array", v.Kind)
	}
	list, err := v.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	it := list.Iter()
	var got []int32
	for it.HasNext() {
		elem, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		n, err := elem.Int32()
		if err != nil {
			t.Fatalf("Int32: %v", err)
		}
		got = append(got, n)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("array elements = %v, want [1 2 3]", got)
	}
}

func TestTupleAndPairRoundTrip(t *testing.T) {
	tup, err := NewTuple([]*ArgNode{NewStr("a"), NewInt16(5), NewBool(false)})
	if err != nil {
		t.Fatalf("NewTuple: %v", err)
	}
	v := roundTrip(t, tup)
	list, _ := v.List()
	it := list.Iter()
	first, _ := it.Next()
	if s, _ := first.Str(); s != "a" {
		t.Fatalf("tuple[0] = %q, want a", s)
	}
	second, _ := it.Next()
	if n, _ := second.Int16(); n != 5 {
		t.Fatalf("tuple[1] = %d, want 5", n)
	}
	third, _ := it.Next()
	if b, _ := third.Bool(); b != false {
		t.Fatalf("tuple[2] = %v, want false", b)
	}
	if it.HasNext() {
		t.Fatal("tuple iterator should be exhausted")
	}
	if _, err := it.Next(); !errcode.HasCode(err, errcode.ENODATA) {
		t.Fatalf("Next past the end: got %v, want ENODATA", err)
	}

	pair, err := NewPair(NewStr("k"), NewInt32(9))
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	pv := roundTrip(t, pair)
	plist, _ := pv.List()
	pit := plist.Iter()
	k, _ := pit.Next()
	if s, _ := k.Str(); s != "k" {
		t.Fatalf("pair.first = %q, want k", s)
	}
	val, _ := pit.Next()
	if n, _ := val.Int32(); n != 9 {
		t.Fatalf("pair.second = %d, want 9", n)
	}
}

func TestNestedArrayOfTuples(t *testing.T) {
	tup1, _ := NewTuple([]*ArgNode{NewStr("x"), NewInt32(1)})
	tup2, _ := NewTuple([]*ArgNode{NewStr("y"), NewInt32(2)})
	arr, err := NewArray(Tuple, []*ArgNode{tup1, tup2})
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	v := roundTrip(t, arr)
	list, _ := v.List()
	it := list.Iter()
	count := 0
	for it.HasNext() {
		elem, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if elem.Kind != Tuple {
			t.Fatalf("element kind = %v, want Tuple", elem.Kind)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("got %d elements, want 2", count)
	}
}

func TestArrayElementTypeMismatchRejected(t *testing.T) {
	_, err := NewArray(Int32, []*ArgNode{NewInt32(1), NewStr("oops")})
	if err == nil {
		t.Fatal("expected a builder type mismatch error")
	}
}

func TestErrorValueNilVsEmptyMessage(t *testing.T) {
	v := roundTrip(t, NewError(42, nil))
	code, msg, err := v.ErrorValue()
	if err != nil {
		t.Fatalf("ErrorValue: %v", err)
	}
	if code != 42 {
		t.Fatalf("code = %d, want 42", code)
	}
	if msg != nil {
		t.Fatal("nil message should decode back to nil, not an empty string pointer")
	}

	msgStr := "boom"
	v2 := roundTrip(t, NewError(1, &msgStr))
	_, msg2, _ := v2.ErrorValue()
	if msg2 == nil || *msg2 != "boom" {
		t.Fatalf("message = %v, want boom", msg2)
	}
}

func TestValueTypeMismatch(t *testing.T) {
	v := roundTrip(t, NewInt32(1))
	if _, err := v.Str(); err == nil {
		t.Fatal("expected a type mismatch error reading an Int32 as Str")
	}
}

func TestDescriptorParserTotality(t *testing.T) {
	valid := []string{"v", "s", "i", "[i]", "{sv}", "{s [{sv}]}", "(s i)", "()", "s -> b", "{@%} -> v", "(@%) -> b"}
	for _, s := range valid {
		if _, err := ParseDescriptor(s); err != nil {
			t.Errorf("ParseDescriptor(%q) failed: %v", s, err)
		}
	}

	invalid := []string{"", "[", "{s}", "(", "z", "s ->", "-> s", "[i", "s extra", "{s s s}"}
	for _, s := range invalid {
		if _, err := ParseDescriptor(s); err == nil {
			t.Errorf("ParseDescriptor(%q) unexpectedly succeeded", s)
		}
	}

	// Fuzz-ish: totality means never panic, for any input.
	r := rand.New(rand.NewSource(2))
	alphabet := "[](){}sibxnqut v#@%ye->"
	for i := 0; i < 2000; i++ {
		n := r.Intn(12)
		buf := make([]byte, n)
		for j := range buf {
			buf[j] = alphabet[r.Intn(len(alphabet))]
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("ParseDescriptor(%q) panicked: %v", string(buf), r)
				}
			}()
			ParseDescriptor(string(buf))
		}()
	}
}

func TestSignatureCompatibilityLaws(t *testing.T) {
	variant, _ := ParseDescriptor("v")
	v := roundTrip(t, NewInt32(5))
	if !v.IsCompatibleWith(variant) {
		t.Fatal("every value should be compatible with the variant wildcard")
	}

	arrDesc, _ := ParseDescriptor("[i]")
	arr, _ := NewArray(Int32, []*ArgNode{NewInt32(1), NewInt32(2)})
	av := roundTrip(t, arr)
	if !av.IsCompatibleWith(arrDesc) {
		t.Fatal("homogeneous int32 array should match [i]")
	}
	badArrDesc, _ := ParseDescriptor("[s]")
	if av.IsCompatibleWith(badArrDesc) {
		t.Fatal("int32 array should not match [s]")
	}

	pairDesc, _ := ParseDescriptor("{s i}")
	pair, _ := NewPair(NewStr("k"), NewInt32(1))
	pv := roundTrip(t, pair)
	if !pv.IsCompatibleWith(pairDesc) {
		t.Fatal("(str, int32) pair should match {s i}")
	}
	wrongPairDesc, _ := ParseDescriptor("{i s}")
	if pv.IsCompatibleWith(wrongPairDesc) {
		t.Fatal("(str, int32) pair should not match {i s}")
	}
}

func TestMessageBuilderPacketRoundTrip(t *testing.T) {
	b := NewMessageBuilder()
	if err := b.Begin(7, OpSet, "/sval", "sval.Sval", "Value"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := b.SetValue(NewStr("hi")); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	pkt, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	raw, err := pkt.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	view := NewView(raw)
	loaded, err := Load(&view)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Kind() != KindMessage || loaded.Op() != OpSet {
		t.Fatalf("kind/op = %v/%v, want MESSAGE/SET", loaded.Kind(), loaded.Op())
	}
	if loaded.Path != "/sval" || loaded.Trait != "sval.Sval" || loaded.Elem != "Value" {
		t.Fatalf("selector mismatch: %+v", loaded)
	}
	val, err := loaded.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if s, err := val.Str(); err != nil || s != "hi" {
		t.Fatalf("value = %q, %v, want hi", s, err)
	}
}

func TestLoadIncompletePacketReturnsEAGAINWithoutConsuming(t *testing.T) {
	b := NewMessageBuilder()
	b.Begin(1, OpGet, "/sval", "sval.Sval", "Value")
	pkt, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	raw, err := pkt.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	partial := raw[:len(raw)-2]
	view := NewView(partial)
	before := view.Len()
	if _, err := Load(&view); !errcode.HasCode(err, errcode.EAGAIN) {
		t.Fatalf("Load on a truncated packet: got %v, want EAGAIN", err)
	}
	if view.Len() != before {
		t.Fatal("a failed Load must not consume any bytes")
	}
}

func TestGetForbidsValue(t *testing.T) {
	b := NewMessageBuilder()
	if err := b.Begin(1, OpGet, "/x", "t.T", "E"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := b.SetValue(NewStr("nope")); err == nil {
		t.Fatal("GET must reject an attached value")
	}
}

func TestValueBuilderContainerStateMachine(t *testing.T) {
	vb := NewValueBuilder()
	if err := vb.ArrayStart(Int32); err != nil {
		t.Fatalf("ArrayStart: %v", err)
	}
	for i := int32(0); i < 3; i++ {
		if err := vb.Next(NewInt32(i)); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if err := vb.ArrayEnd(); err != nil {
		t.Fatalf("ArrayEnd: %v", err)
	}
	node, err := vb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v := roundTrip(t, node)
	if v.Kind != Array {
		t.Fatalf("kind = %v, want Array", v.Kind)
	}
}

func TestValueBuilderRejectsMismatchedArrayElement(t *testing.T) {
	vb := NewValueBuilder()
	if err := vb.ArrayStart(Int32); err != nil {
		t.Fatalf("ArrayStart: %v", err)
	}
	if err := vb.Next(NewStr("nope")); err == nil {
		t.Fatal("expected a builder type mismatch for a wrong-typed array element")
	}
}

func TestValueBuilderThirdPairComponentOverflows(t *testing.T) {
	vb := NewValueBuilder()
	if err := vb.PairStart(); err != nil {
		t.Fatalf("PairStart: %v", err)
	}
	if err := vb.Next(NewInt32(1)); err != nil {
		t.Fatalf("Next (first): %v", err)
	}
	if err := vb.Next(NewInt32(2)); err != nil {
		t.Fatalf("Next (second): %v", err)
	}
	err := vb.Next(NewInt32(3))
	if !errcode.HasCode(err, errcode.EOVERFLOW) {
		t.Fatalf("third Next on a pair: got %v, want EOVERFLOW", err)
	}
}
