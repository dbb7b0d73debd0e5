// Package file implements a job store that keeps one JSON file per job.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

const ext = ".json"

// Store writes snapshots under root. Writes go through a temporary file
// and a rename so a reader never sees a partial snapshot.
type Store struct {
	root string
}

// New creates a Store rooted at root. The directory is created on first
// save.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid job id: %q", id)
	}
	return filepath.Join(s.root, id+ext), nil
}

func (s *Store) Save(_ context.Context, snap job.Snapshot) error {
	path, err := s.path(snap.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Store) Load(_ context.Context, id string) (job.Snapshot, error) {
	path, err := s.path(id)
	if err != nil {
		return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
		}
		return job.Snapshot{}, fmt.Errorf("load job %s: %w", id, err)
	}

	var snap job.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return job.Snapshot{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return snap, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	slices.Sort(ids)
	return ids, nil
}
