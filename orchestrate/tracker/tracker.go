// Package tracker owns the job lifecycle: it creates jobs, runs them on the
// scheduler without blocking the caller and answers status, result and
// cancellation requests.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/scheduler"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("tracker closed")

// Summary is the list view of a job.
type Summary struct {
	ID        string     `json:"id"`
	Status    job.Status `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore replaces the store resolved from configuration.
func WithStore(store Store) Option {
	return func(t *Tracker) {
		t.store = store
	}
}

// WithObserver replaces the observer resolved from configuration for both
// the tracker and its scheduler.
func WithObserver(obs observability.Observer) Option {
	return func(t *Tracker) {
		t.observer = obs
	}
}

// Tracker runs jobs asynchronously against one producer registry.
type Tracker struct {
	cfg       config.TrackerConfig
	scheduler *scheduler.Scheduler
	store     Store
	observer  observability.Observer
	schema    *jsonschema.Schema

	mu     sync.RWMutex
	jobs   map[string]*job.Job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker. The registry is validated and its graph built
// immediately, so configuration defects surface here rather than on Submit.
func New(cfg config.TrackerConfig, registry *producer.Registry, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		cfg:  cfg,
		jobs: make(map[string]*job.Job),
	}

	for _, opt := range opts {
		opt(t)
	}

	schedOpts := []scheduler.Option{}
	if t.observer != nil {
		schedOpts = append(schedOpts, scheduler.WithObserver(t.observer))
	} else {
		obs, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		t.observer = obs
	}

	if t.store == nil {
		store, err := GetStore(cfg.Store.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store: %w", err)
		}
		t.store = store
	}

	schema, err := compileSchema(cfg.InputSchema)
	if err != nil {
		return nil, err
	}
	t.schema = schema

	schedOpts = append(schedOpts, scheduler.WithCheckpoint(t.store.Save))

	sched, err := scheduler.New(cfg.Scheduler, registry, cfg.InputKeys, schedOpts...)
	if err != nil {
		return nil, err
	}
	t.scheduler = sched

	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t, nil
}

// Submit validates input, creates a Pending job and starts it on the
// scheduler. It returns as soon as the job is stored.
//
// Returns an error wrapping fault.ErrValidation when input lacks a
// configured input key or does not match the input schema.
func (t *Tracker) Submit(ctx context.Context, input map[string]any) (string, error) {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return "", ErrClosed
	}

	if err := t.validate(input); err != nil {
		t.observer.OnEvent(ctx, observability.Event{
			Type:      EventJobReject,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "tracker.Submit",
			Data: map[string]any{
				"error": err.Error(),
			},
		})
		return "", err
	}

	j := job.New(uuid.NewString(), input)
	if err := t.store.Save(ctx, j.Snapshot()); err != nil {
		return "", fmt.Errorf("save job %s: %w", j.ID(), err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrClosed
	}
	t.jobs[j.ID()] = j
	t.wg.Add(1)
	t.mu.Unlock()

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobSubmit,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "tracker.Submit",
		Data: map[string]any{
			"job_id":     j.ID(),
			"input_keys": sortedKeys(input),
		},
	})

	go t.run(j)
	return j.ID(), nil
}

func (t *Tracker) run(j *job.Job) {
	defer t.wg.Done()

	if err := t.scheduler.Run(t.ctx, j); err != nil {
		t.observer.OnEvent(t.ctx, observability.Event{
			Type:      EventJobError,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "tracker.run",
			Data: map[string]any{
				"job_id": j.ID(),
				"error":  err.Error(),
			},
		})
	}

	if err := t.save(context.WithoutCancel(t.ctx), j.Snapshot()); err != nil {
		return
	}

	// The store now holds the terminal snapshot and answers for the job.
	t.mu.Lock()
	delete(t.jobs, j.ID())
	t.mu.Unlock()
}

func (t *Tracker) save(ctx context.Context, s job.Snapshot) error {
	err := t.store.Save(ctx, s)

	level := observability.LevelVerbose
	data := map[string]any{
		"job_id": s.ID,
		"status": string(s.Status),
	}
	if err != nil {
		level = observability.LevelError
		data["error"] = err.Error()
	}

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobSave,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "tracker.save",
		Data:      data,
	})
	return err
}

func (t *Tracker) validate(input map[string]any) error {
	var missing []string
	for _, key := range t.cfg.InputKeys {
		if _, ok := input[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fault.Validation("input is missing required keys %v", missing)
	}

	if t.schema == nil {
		return nil
	}

	inst, err := normalize(input)
	if err != nil {
		return fault.Validation("input is not a JSON object: %v", err)
	}
	if err := t.schema.Validate(inst); err != nil {
		return fault.Validation("input does not match schema: %v", err)
	}
	return nil
}

// Status returns the current snapshot of a job, including its execution
// records so far. Jobs not held in memory are loaded from the store.
func (t *Tracker) Status(ctx context.Context, id string) (job.Snapshot, error) {
	if j, ok := t.live(id); ok {
		return j.Snapshot(), nil
	}

	s, err := t.store.Load(ctx, id)
	if err != nil {
		return job.Snapshot{}, err
	}

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobRestore,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "tracker.Status",
		Data: map[string]any{
			"job_id": id,
			"status": string(s.Status),
		},
	})
	return s, nil
}

// Result returns the final document of a job. Returns an error wrapping
// fault.ErrNotReady while the job has not reached a terminal status.
func (t *Tracker) Result(ctx context.Context, id string) (map[string]any, error) {
	s, err := t.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", fault.ErrNotReady, id, s.Status)
	}
	return s.Document, nil
}

// Cancel requests cooperative cancellation. Cancelling a finished job is
// acknowledged without effect.
func (t *Tracker) Cancel(ctx context.Context, id string) error {
	j, ok := t.live(id)
	if !ok {
		_, err := t.store.Load(ctx, id)
		return err
	}

	raised := j.RequestCancel()
	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobCancel,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "tracker.Cancel",
		Data: map[string]any{
			"job_id": id,
			"status": string(j.Status()),
			"raised": raised,
		},
	})
	return nil
}

// List returns every job known to this process or its store, oldest first.
func (t *Tracker) List(ctx context.Context) ([]Summary, error) {
	ids, err := t.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	t.mu.RLock()
	for id := range t.jobs {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	slices.Sort(ids)
	ids = slices.Compact(ids)

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, err := t.Status(ctx, id)
		if errors.Is(err, fault.ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:        s.ID,
			Status:    s.Status,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Wait blocks until the job reaches a terminal status or ctx is done, then
// returns its snapshot.
func (t *Tracker) Wait(ctx context.Context, id string) (job.Snapshot, error) {
	if j, ok := t.live(id); ok {
		select {
		case <-j.Done():
		case <-ctx.Done():
			return job.Snapshot{}, ctx.Err()
		}
	}
	return t.Status(ctx, id)
}

// Close stops accepting jobs, requests cancellation of every running job
// and waits for them to finish or for ctx to expire.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	running := 0
	for _, j := range t.jobs {
		if !j.Status().IsTerminal() {
			running++
		}
	}
	t.mu.Unlock()

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventClose,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "tracker.Close",
		Data: map[string]any{
			"running": running,
		},
	})

	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) live(id string) (*job.Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	j, ok := t.jobs[id]
	return j, ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
