package document

import (
	"slices"
	"sort"
)

// KeySet is an unordered set of document keys.
type KeySet map[string]struct{}

// NewKeySet creates a KeySet holding the given keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is a member of the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in lexical order.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Intersect returns the sorted keys present in both sets.
func (s KeySet) Intersect(other KeySet) []string {
	var shared []string
	for k := range s {
		if other.Has(k) {
			shared = append(shared, k)
		}
	}
	slices.Sort(shared)
	return shared
}
