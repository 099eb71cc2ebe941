// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hashtable

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestSetGet(t *testing.T) {
	tb := New(0)

	if res := tb.Set("a", 1); res != Inserted {
		t.Fatalf("first Set of a: expected Inserted, got %v", res)
	}
	if res := tb.Set("b", 2); res != Inserted {
		t.Fatalf("first Set of b: expected Inserted, got %v", res)
	}
	if res := tb.Set("a", 3); res != Updated {
		t.Fatalf("second Set of a: expected Updated, got %v", res)
	}

	if v, ok := tb.Get("a"); !ok || v != 3 {
		t.Fatalf("Get(a) = %v, %v, want 3, true", v, ok)
	}
	if v, ok := tb.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %v, %v, want 2, true", v, ok)
	}
	if _, ok := tb.Get("c"); ok {
		t.Fatal("Get(c) found a key that was never set")
	}
	if tb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tb.Len())
	}
}

func TestRemoveLeavesTombstoneButChainWalkable(t *testing.T) {
	tb := New(4)

	keys := []string{"kn1", "kn2", "kn3", "kn4", "kn5", "kn6", "kn7", "kn8"}
	for i, k := range keys {
		tb.Set(k, i)
	}

	if !tb.Remove("kn3") {
		t.Fatal("Remove(kn3) reported key not found")
	}
	if tb.Has("kn3") {
		t.Fatal("kn3 still present after Remove")
	}

	for i, k := range keys {
		if k == "kn3" {
			continue
		}
		v, ok := tb.Get(k)
		if !ok || v != i {
			t.Fatalf("Get(%s) = %v, %v after an unrelated Remove, want %d, true", k, v, ok, i)
		}
	}

	if tb.Len() != len(keys)-1 {
		t.Fatalf("Len() = %d, want %d", tb.Len(), len(keys)-1)
	}
}

func TestRemoveThenReinsertReusesTombstone(t *testing.T) {
	tb := New(4)
	tb.Set("x", 1)
	tb.Remove("x")
	if res := tb.Set("y", 2); res != Inserted {
		t.Fatalf("Set(y) after Remove(x): expected Inserted, got %v", res)
	}
	if v, ok := tb.Get("y"); !ok || v != 2 {
		t.Fatalf("Get(y) = %v, %v, want 2, true", v, ok)
	}
	if tb.Has("x") {
		t.Fatal("x reappeared after being removed")
	}
	if res := tb.Set("x", 3); res != Inserted {
		t.Fatalf("Set(x) after Remove(x): expected Inserted, got %v", res)
	}
	if len(tb.entries) != 2 {
		t.Fatalf("re-inserting x should reuse its tombstone cell: %d cells, want 2", len(tb.entries))
	}
}

func TestRehashPreservesEveryLiveKey(t *testing.T) {
	tb := New(0)
	n := 5000
	for i := 0; i < n; i++ {
		tb.Set(fmt.Sprintf("key-%d", i), i)
	}
	if tb.Len() != n {
		t.Fatalf("Len() = %d, want %d", tb.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, ok := tb.Get(fmt.Sprintf("key-%d", i))
		if !ok || v != i {
			t.Fatalf("Get(key-%d) = %v, %v, want %d, true", i, v, ok, i)
		}
	}
}

// TestSetRemoveMultisetProperty drives the table and a plain map with
// the same random set/remove sequence, then checks they agree: same
// size, same last-written value per key, and iteration visits each live
// key exactly once.
func TestSetRemoveMultisetProperty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tb := New(0)
	model := make(map[string]int)

	keyspace := make([]string, 40)
	for i := range keyspace {
		keyspace[i] = fmt.Sprintf("k%d", i)
	}

	for i := 0; i < 10000; i++ {
		k := keyspace[r.Intn(len(keyspace))]
		if r.Intn(3) == 0 {
			delete(model, k)
			tb.Remove(k)
		} else {
			v := r.Int()
			model[k] = v
			tb.Set(k, v)
		}
	}

	if tb.Len() != len(model) {
		t.Fatalf("Len() = %d, want %d", tb.Len(), len(model))
	}
	for k, want := range model {
		got, ok := tb.Get(k)
		if !ok || got != want {
			t.Fatalf("Get(%s) = %v, %v, want %d, true", k, got, ok, want)
		}
	}

	seen := make(map[string]bool)
	tb.Range(func(k string, _ interface{}) bool {
		if seen[k] {
			t.Fatalf("iteration visited %s more than once", k)
		}
		seen[k] = true
		return true
	})
	if len(seen) != len(model) {
		t.Fatalf("iteration visited %d keys, want %d", len(seen), len(model))
	}
}

func TestSetBasics(t *testing.T) {
	s := NewSet(0)
	if !s.Add("a") {
		t.Fatal("first Add(a) should report newly added")
	}
	if s.Add("a") {
		t.Fatal("second Add(a) should not report newly added")
	}
	if !s.Has("a") {
		t.Fatal("Has(a) should be true")
	}
	if !s.Remove("a") {
		t.Fatal("Remove(a) should report present")
	}
	if s.Has("a") {
		t.Fatal("Has(a) should be false after Remove")
	}
}
