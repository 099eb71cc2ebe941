// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hashtable

import "hash/fnv"

// entry is one cell of the flat entry array. next is 1-based (0 means
// "end of chain") so the zero value of entry is an empty, un-chained
// cell -- this lets a freshly grown entries slice start "correct" with
// no explicit initialization pass.
type entry struct {
	key       string
	value     interface{}
	next      int
	tombstone bool
}

// Table is an open-addressed, intra-array-chained string-keyed map. The
// zero value is not usable; use New. Not safe for concurrent use.
type Table struct {
	buckets []int // 1-based head index into entries, 0 = empty bucket
	entries []entry
	live    int // live (non-tombstone) entries
	free    int // number of reusable tombstone cells
}

// New returns an empty table with at least the given bucket capacity.
func New(capacityHint int) *Table {
	n := nextPrime(capacityHint)
	return &Table{buckets: make([]int, n)}
}

func hashKey(key string, nbuckets int) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(nbuckets))
}

// Len reports the number of live keys.
func (t *Table) Len() int { return t.live }

// Get returns the value set for key and whether it was found.
func (t *Table) Get(key string) (interface{}, bool) {
	if len(t.buckets) == 0 {
		return nil, false
	}
	b := hashKey(key, len(t.buckets))
	for cur := t.buckets[b]; cur != 0; cur = t.entries[cur-1].next {
		e := &t.entries[cur-1]
		if !e.tombstone && e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// SetResult distinguishes an update of an existing key from a fresh
// insertion.
type SetResult int

const (
	Inserted SetResult = iota
	Updated
)

// Set inserts or updates key's value. If the key already exists its
// value is overwritten and Updated is reported; otherwise a new cell is
// taken (reusing a tombstone if one exists in the target bucket's chain,
// else appended) and Inserted is reported. Exceeding a 75% load factor
// after insertion triggers a rehash into the next prime bucket count.
func (t *Table) Set(key string, value interface{}) SetResult {
	if len(t.buckets) == 0 {
		t.buckets = make([]int, nextPrime(0))
	}

	b := hashKey(key, len(t.buckets))

	var reusable int // 1-based index of a tombstone cell in this chain, 0 = none
	for cur := t.buckets[b]; cur != 0; cur = t.entries[cur-1].next {
		e := &t.entries[cur-1]
		if !e.tombstone && e.key == key {
			e.value = value
			return Updated
		}
		if e.tombstone && reusable == 0 {
			reusable = cur
		}
	}

	if reusable != 0 {
		e := &t.entries[reusable-1]
		e.key = key
		e.value = value
		e.tombstone = false
		t.live++
		t.free--
		return Inserted
	}

	t.entries = append(t.entries, entry{key: key, value: value, next: t.buckets[b]})
	idx := len(t.entries)
	t.buckets[b] = idx
	t.live++

	if t.loadFactor() > 0.75 {
		t.rehash(nextPrime(len(t.buckets)))
	}
	return Inserted
}

func (t *Table) loadFactor() float64 {
	if len(t.buckets) == 0 {
		return 1
	}
	return float64(t.live+t.free) / float64(len(t.buckets))
}

// Remove deletes key, leaving a tombstone in place so the chain through
// it stays walkable for other keys that hashed to the same bucket.
// Reports whether the key was present.
func (t *Table) Remove(key string) bool {
	if len(t.buckets) == 0 {
		return false
	}
	b := hashKey(key, len(t.buckets))
	for cur := t.buckets[b]; cur != 0; cur = t.entries[cur-1].next {
		e := &t.entries[cur-1]
		if !e.tombstone && e.key == key {
			e.tombstone = true
			e.value = nil
			t.live--
			t.free++
			return true
		}
	}
	return false
}

// rehash rebuilds the table at a new bucket count, compacting away every
// tombstone in the process.
func (t *Table) rehash(nbuckets int) {
	old := t.entries
	t.buckets = make([]int, nbuckets)
	t.entries = make([]entry, 0, t.live)
	t.free = 0
	t.live = 0
	for _, e := range old {
		if e.tombstone {
			continue
		}
		t.insertFresh(e.key, e.value)
	}
}

// insertFresh appends a brand-new cell without checking for an existing
// key or reusable tombstone -- only valid right after a rehash, where
// both are already known not to apply.
func (t *Table) insertFresh(key string, value interface{}) {
	b := hashKey(key, len(t.buckets))
	t.entries = append(t.entries, entry{key: key, value: value, next: t.buckets[b]})
	t.buckets[b] = len(t.entries)
	t.live++
}

// Range calls fn for every live key/value pair in entry-array order,
// which is stable between mutations. Stops early if fn returns false.
func (t *Table) Range(fn func(key string, value interface{}) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.tombstone {
			continue
		}
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Keys returns every live key, in Range order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.live)
	t.Range(func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
