package tracker

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

// Store persists job snapshots.
//
// The tracker saves a job when it is created and when it reaches a terminal
// status, and after every producer completion when scheduler checkpointing
// is enabled. Load is used to answer status and result queries for jobs
// this process no longer holds, for example after a restart.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists s, replacing any earlier snapshot of the same job.
	Save(ctx context.Context, s job.Snapshot) error

	// Load returns the latest snapshot of a job. Returns an error wrapping
	// fault.ErrJobNotFound when the job is unknown.
	Load(ctx context.Context, id string) (job.Snapshot, error)

	// Delete removes a job. Deleting an unknown job is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored job ids, sorted.
	List(ctx context.Context) ([]string, error)
}

type memoryStore struct {
	jobs map[string]job.Snapshot
	mu   sync.RWMutex
}

// NewMemoryStore creates a Store that keeps snapshots in process memory.
//
// The memory store is registered by default as "memory".
func NewMemoryStore() Store {
	return &memoryStore{
		jobs: make(map[string]job.Snapshot),
	}
}

func (m *memoryStore) Save(ctx context.Context, s job.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[s.ID] = s
	return nil
}

func (m *memoryStore) Load(ctx context.Context, id string) (job.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.jobs[id]
	if !exists {
		return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
	}
	return s, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.jobs, id)
	return nil
}

func (m *memoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

var (
	stores = map[string]Store{
		"memory": NewMemoryStore(),
	}
	mutex sync.RWMutex
)

// GetStore retrieves a Store by name from the registry.
//
// Returns error if the requested store is not registered.
func GetStore(name string) (Store, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	store, exists := stores[name]
	if !exists {
		return nil, fmt.Errorf("unknown store: %s", name)
	}
	return store, nil
}

// RegisterStore makes a Store available by name, replacing any store
// already registered under that name.
//
// Example:
//
//	store, err := diskv.New("/var/lib/quoteflow")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tracker.RegisterStore("diskv", store)
func RegisterStore(name string, store Store) {
	mutex.Lock()
	defer mutex.Unlock()

	stores[name] = store
}
