// Package diskv implements a job store backed by diskv.
package diskv

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/peterbourgon/diskv/v3"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

// Diskv is a job store that uses an on-disk key-value store with an
// in-memory read cache.
type Diskv struct {
	d *diskv.Diskv
}

func flatTransform(string) []string {
	return []string{}
}

// New creates a new job store on disk at path.
func New(path string) *Diskv {
	return &Diskv{
		d: diskv.New(diskv.Options{
			BasePath:     filepath.Join(path, "jobs"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		}),
	}
}

func (s *Diskv) Save(_ context.Context, snap job.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}
	if err := s.d.Write(snap.ID, data); err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Diskv) Load(_ context.Context, id string) (job.Snapshot, error) {
	if !s.d.Has(id) {
		return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
	}

	data, err := s.d.Read(id)
	if err != nil {
		return job.Snapshot{}, fmt.Errorf("load job %s: %w", id, err)
	}

	var snap job.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return job.Snapshot{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return snap, nil
}

func (s *Diskv) Delete(_ context.Context, id string) error {
	if !s.d.Has(id) {
		return nil
	}
	if err := s.d.Erase(id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *Diskv) List(ctx context.Context) ([]string, error) {
	cancel := make(chan struct{})
	defer close(cancel)

	ids := []string{}
	for id := range s.d.Keys(cancel) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
