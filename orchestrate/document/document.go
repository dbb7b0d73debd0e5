// Package document holds the shared record that producers fill in during a job.
//
// A Document is immutable: Merge returns a new Document and leaves the
// receiver untouched, so any Snapshot handed to a running producer stays
// valid for as long as the producer holds it. Merge is the only way keys are
// added, and it enforces the write contract of the producer that returned the
// update.
package document

import (
	"fmt"
	"maps"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

// InputWriter is recorded as the writer of keys supplied with the job input.
const InputWriter = "input"

// Update is the partial result of one producer attempt.
type Update map[string]any

// Keys returns the update's keys as a KeySet.
func (u Update) Keys() KeySet {
	s := make(KeySet, len(u))
	for k := range u {
		s[k] = struct{}{}
	}
	return s
}

// Document is a versioned mapping from section key to section value.
//
// Values are opaque to the orchestrator. Producers must treat values they
// read as read-only since snapshots share them.
type Document struct {
	version int
	values  map[string]any
	writers map[string]string
}

// New creates a Document seeded with the job input at version 0.
func New(input map[string]any) Document {
	d := Document{
		values:  make(map[string]any, len(input)),
		writers: make(map[string]string, len(input)),
	}
	for k, v := range input {
		d.values[k] = v
		d.writers[k] = InputWriter
	}
	return d
}

// Restore rebuilds a Document from persisted values and provenance.
func Restore(version int, values map[string]any, writers map[string]string) Document {
	d := Document{
		version: version,
		values:  maps.Clone(values),
		writers: maps.Clone(writers),
	}
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if d.writers == nil {
		d.writers = make(map[string]string)
	}
	return d
}

// Version counts the merges applied since the input was loaded.
func (d Document) Version() int {
	return d.version
}

// Len returns the number of keys present.
func (d Document) Len() int {
	return len(d.values)
}

// Get retrieves a value by key.
func (d Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Keys returns the present keys.
func (d Document) Keys() KeySet {
	s := make(KeySet, len(d.values))
	for k := range d.values {
		s[k] = struct{}{}
	}
	return s
}

// Writer returns the producer that last wrote key.
func (d Document) Writer(key string) (string, bool) {
	w, ok := d.writers[key]
	return w, ok
}

// Values returns an independent copy of the document's values.
func (d Document) Values() map[string]any {
	return maps.Clone(d.values)
}

// Writers returns an independent copy of the key provenance map.
func (d Document) Writers() map[string]string {
	return maps.Clone(d.writers)
}

// Snapshot returns an immutable view of the current keys and values.
//
// The view shares storage with d. This is safe because no Document method
// mutates an existing map.
func (d Document) Snapshot() Snapshot {
	return Snapshot{values: d.values, version: d.version}
}

// Merge applies a producer's update and returns the resulting Document.
//
// Every key in update must belong to writes, and a key that is already
// present may only be replaced when override is set. A violation returns an
// error wrapping fault.ErrWriteConflict and the receiver is returned as is.
// An empty update still advances the version.
func (d Document) Merge(producer string, update Update, writes KeySet, override bool) (Document, error) {
	for _, key := range update.Keys().Sorted() {
		if !writes.Has(key) {
			return d, fmt.Errorf("%w: %s wrote undeclared key %q", fault.ErrWriteConflict, producer, key)
		}
		if prev, exists := d.writers[key]; exists && !override {
			return d, fmt.Errorf("%w: %s cannot overwrite key %q written by %s", fault.ErrWriteConflict, producer, key, prev)
		}
	}

	next := Document{
		version: d.version + 1,
		values:  maps.Clone(d.values),
		writers: maps.Clone(d.writers),
	}
	if next.values == nil {
		next.values = make(map[string]any, len(update))
		next.writers = make(map[string]string, len(update))
	}
	for k, v := range update {
		next.values[k] = v
		next.writers[k] = producer
	}
	return next, nil
}
