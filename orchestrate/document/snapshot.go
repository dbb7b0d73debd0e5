package document

import "maps"

// Snapshot is a read-only view of a Document at one version. It is safe to
// share between goroutines without locking.
type Snapshot struct {
	values  map[string]any
	version int
}

// Version is the document version the snapshot was taken at.
func (s Snapshot) Version() int {
	return s.version
}

// Get retrieves a value by key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// String returns the value at key when it is a string.
func (s Snapshot) String(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Len returns the number of keys present.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Keys returns the present keys.
func (s Snapshot) Keys() KeySet {
	ks := make(KeySet, len(s.values))
	for k := range s.values {
		ks[k] = struct{}{}
	}
	return ks
}

// Values returns an independent copy of the snapshot's values.
func (s Snapshot) Values() map[string]any {
	return maps.Clone(s.values)
}
