// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package hashtable implements an open-addressed, intra-array-chained
// string-keyed map. It is kept as a dedicated data structure (rather
// than Go's builtin map) because the registry (pkg/registry) relies on
// its specific behaviors: a fixed prime bucket count, tombstone reuse on
// removal, and a 75% load-factor rehash trigger -- properties a builtin
// map does not expose or guarantee.
package hashtable

import "sort"

// primes is a sorted table of bucket counts to grow into. The sequence
// roughly doubles, which keeps amortized rehash cost O(1) per insertion.
var primes = []int{
	11, 23, 47, 97, 197, 397, 797, 1597, 3203, 6421,
	12853, 25717, 51437, 102877, 205759, 411527, 823117,
	1646237, 3292489, 6584983, 13169977, 26339969, 52679969,
}

// nextPrime returns the smallest table size in primes strictly greater
// than n, or grows geometrically past the table's end for pathological
// sizes.
func nextPrime(n int) int {
	i := sort.SearchInts(primes, n+1)
	if i < len(primes) {
		return primes[i]
	}
	last := primes[len(primes)-1]
	for last <= n {
		last = last*2 + 1
	}
	return last
}
