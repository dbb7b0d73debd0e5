// Package test provides the conformance suite every job store backend runs.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
)

func snapshot(id string, status job.Status) job.Snapshot {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return job.Snapshot{
		ID:       id,
		Status:   status,
		Input:    map[string]any{"client_name": "ABC Corp"},
		Document: map[string]any{"client_name": "ABC Corp", "company": "ABC Corp Ltd"},
		Writers:  map[string]string{"client_name": "input", "company": "company_info"},
		Version:  1,
		Producers: map[string]job.ProducerState{
			"company_info": job.ProducerSucceeded,
		},
		Records: []job.ExecutionRecord{{
			Producer:  "company_info",
			Attempts:  1,
			StartedAt: created,
			EndedAt:   created.Add(time.Second),
			Outcome:   job.ProducerSucceeded,
		}},
		Errors:    []job.ErrorEntry{},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Second),
	}
}

// TestStore runs the conformance suite against a fresh store.
func TestStore(t *testing.T, newStore func() (tracker.Store, error)) {
	s, err := newStore()
	require.NoError(t, err)

	ctx := context.Background()
	prefix := time.Now().Format("20060102150405.000000000")
	idA := prefix + "-a"
	idB := prefix + "-b"

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, prefix+"-missing")
		require.ErrorIs(t, err, fault.ErrJobNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		want := snapshot(idA, job.StatusRunning)
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx, idA)
		require.NoError(t, err)
		requireSnapshot(t, want, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		want := snapshot(idA, job.StatusCompleted)
		want.Version = 2
		want.Errors = []job.ErrorEntry{{Producer: "footer", Kind: fault.KindExternalService, Message: "upstream service failed or timed out"}}
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx, idA)
		require.NoError(t, err)
		requireSnapshot(t, want, got)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, snapshot(idB, job.StatusPending)))

		ids, err := s.List(ctx)
		require.NoError(t, err)
		require.Contains(t, ids, idA)
		require.Contains(t, ids, idB)
		require.IsNonDecreasing(t, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, idA))
		require.NoError(t, s.Delete(ctx, idA))

		_, err := s.Load(ctx, idA)
		require.ErrorIs(t, err, fault.ErrJobNotFound)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		require.NotContains(t, ids, idA)

		require.NoError(t, s.Delete(ctx, idB))
	})
}

func requireSnapshot(t *testing.T, want, got job.Snapshot) {
	t.Helper()

	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Status, got.Status)
	require.Equal(t, want.Input, got.Input)
	require.Equal(t, want.Document, got.Document)
	require.Equal(t, want.Writers, got.Writers)
	require.Equal(t, want.Version, got.Version)
	require.Equal(t, want.Producers, got.Producers)
	require.Equal(t, want.Errors, got.Errors)
	require.Len(t, got.Records, len(want.Records))
	for i := range want.Records {
		require.Equal(t, want.Records[i].Producer, got.Records[i].Producer)
		require.Equal(t, want.Records[i].Outcome, got.Records[i].Outcome)
		require.Equal(t, want.Records[i].Attempts, got.Records[i].Attempts)
		require.True(t, want.Records[i].StartedAt.Equal(got.Records[i].StartedAt))
	}
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}
