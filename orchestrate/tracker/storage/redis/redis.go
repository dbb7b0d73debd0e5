// Package redis implements a job store backed by Redis.
//
// Each snapshot is stored as a JSON string under "<prefix>:job:<id>" and the
// ids are indexed in the set "<prefix>:jobs".
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

// Options configures a Store.
type Options struct {
	// Client is the Redis client. Required.
	Client *redis.Client
	// Prefix namespaces every key. Defaults to "quoteflow".
	Prefix string
	// TTL expires snapshots after the given duration. Zero keeps them
	// until deleted.
	TTL time.Duration
}

// Store is a Redis-backed job store.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Store and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "quoteflow"
	}
	if err := opts.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{rdb: opts.Client, prefix: opts.Prefix, ttl: opts.TTL}, nil
}

func (s *Store) keyForJob(id string) string {
	return fmt.Sprintf("%s:job:%s", s.prefix, id)
}

func (s *Store) keyForIndex() string {
	return s.prefix + ":jobs"
}

func (s *Store) Save(ctx context.Context, snap job.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyForJob(snap.ID), data, s.ttl)
		pipe.SAdd(ctx, s.keyForIndex(), snap.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (job.Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.keyForJob(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
	}
	if err != nil {
		return job.Snapshot{}, fmt.Errorf("load job %s: %w", id, err)
	}

	var snap job.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return job.Snapshot{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return snap, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keyForJob(id))
		pipe.SRem(ctx, s.keyForIndex(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// List returns the indexed ids whose snapshot has not expired.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyForIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, s.keyForJob(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		if n == 0 {
			s.rdb.SRem(ctx, s.keyForIndex(), id)
			continue
		}
		live = append(live, id)
	}
	slices.Sort(live)
	return live, nil
}
