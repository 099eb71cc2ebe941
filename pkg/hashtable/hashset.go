// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hashtable

// Set is a hashset built atop Table, storing only keys.
type Set struct {
	t *Table
}

// NewSet returns an empty set with at least the given capacity hint.
func NewSet(capacityHint int) *Set {
	return &Set{t: New(capacityHint)}
}

// Len reports the number of members.
func (s *Set) Len() int { return s.t.Len() }

// Add inserts key, reporting whether it was newly added.
func (s *Set) Add(key string) bool {
	return s.t.Set(key, struct{}{}) == Inserted
}

// Has reports whether key is a member.
func (s *Set) Has(key string) bool {
	return s.t.Has(key)
}

// Remove deletes key, reporting whether it was present.
func (s *Set) Remove(key string) bool {
	return s.t.Remove(key)
}

// Range calls fn for every member, stopping early if fn returns false.
func (s *Set) Range(fn func(key string) bool) {
	s.t.Range(func(k string, _ interface{}) bool { return fn(k) })
}

// Keys returns every member.
func (s *Set) Keys() []string {
	return s.t.Keys()
}
