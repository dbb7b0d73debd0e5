package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/graph"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// CheckpointFunc persists an intermediate job snapshot. Errors are logged
// and never fail the job.
type CheckpointFunc func(ctx context.Context, s job.Snapshot) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver replaces the observer resolved from configuration.
func WithObserver(obs observability.Observer) Option {
	return func(s *Scheduler) {
		s.observer = obs
	}
}

// WithCheckpoint installs the function called after each producer completes
// when checkpointing is enabled in configuration.
func WithCheckpoint(fn CheckpointFunc) Option {
	return func(s *Scheduler) {
		s.checkpoint = fn
	}
}

type step struct {
	producer producer.Producer
	contract producer.Contract
}

// Scheduler executes jobs against one validated producer graph. It holds no
// per-job state and may run any number of jobs concurrently.
type Scheduler struct {
	cfg        config.SchedulerConfig
	graph      *graph.Graph
	steps      map[string]step
	rank       map[string]int
	observer   observability.Observer
	checkpoint CheckpointFunc
}

// New validates registry against inputKeys, applies per-producer
// configuration and builds the dependency graph.
//
// Returns errors wrapping fault.ErrWriteConflict, fault.ErrCyclicDependency
// or fault.ErrUnsatisfiableDependency for a misconfigured registry.
func New(cfg config.SchedulerConfig, registry *producer.Registry, inputKeys []string, opts ...Option) (*Scheduler, error) {
	if registry == nil {
		return nil, fmt.Errorf("scheduler %s: nil registry", cfg.Name)
	}

	if err := registry.Validate(inputKeys); err != nil {
		return nil, fmt.Errorf("scheduler %s: %w", cfg.Name, err)
	}

	s := &Scheduler{
		cfg:   cfg,
		steps: make(map[string]step, registry.Len()),
		rank:  make(map[string]int, registry.Len()),
	}

	contracts := make([]producer.Contract, 0, registry.Len())
	for _, name := range registry.List() {
		p, _, err := registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("scheduler %s: %w", cfg.Name, err)
		}
		if pc, ok := cfg.Producers[name]; ok {
			p = producer.Tune(p, pc)
		}
		c := p.Contract().Normalize()
		s.steps[name] = step{producer: p, contract: c}
		contracts = append(contracts, c)
	}

	g, err := graph.Build(contracts, inputKeys)
	if err != nil {
		return nil, fmt.Errorf("scheduler %s: %w", cfg.Name, err)
	}
	s.graph = g

	for i, name := range g.Order() {
		s.rank[name] = i
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.observer == nil {
		obs, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		s.observer = obs
	}

	return s, nil
}

// Graph returns the dependency graph the scheduler executes.
func (s *Scheduler) Graph() *graph.Graph {
	return s.graph
}

// Contract returns the effective contract of a producer after configuration
// was applied.
func (s *Scheduler) Contract(name string) (producer.Contract, bool) {
	st, ok := s.steps[name]
	return st.contract, ok
}

// Run moves j from Pending to Running, executes every producer and leaves j
// in a terminal status.
//
// Producer failures never surface as errors from Run; they are recorded on
// the job. Run returns an error only when j cannot be started, for example
// because it is not Pending.
func (s *Scheduler) Run(ctx context.Context, j *job.Job) error {
	if err := j.Transition(job.StatusRunning); err != nil {
		return fmt.Errorf("scheduler %s: %w", s.cfg.Name, err)
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "scheduler.Run",
		Data: map[string]any{
			"scheduler":      s.cfg.Name,
			"job_id":         j.ID(),
			"producer_count": s.graph.Len(),
		},
	})

	stop := context.AfterFunc(ctx, func() {
		s.requestCancel(ctx, j, "context cancelled")
	})
	defer stop()

	if s.cfg.JobTimeout > 0 {
		timer := time.AfterFunc(s.cfg.JobTimeout.Std(), func() {
			s.requestCancel(ctx, j, "job timeout")
		})
		defer timer.Stop()
	}

	r := newRun(s, j)
	status := r.execute(ctx)

	if err := j.Transition(status); err != nil {
		return fmt.Errorf("scheduler %s: %w", s.cfg.Name, err)
	}

	snap := j.Snapshot()
	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobComplete,
		Level:     completionLevel(status),
		Timestamp: time.Now(),
		Source:    "scheduler.Run",
		Data: map[string]any{
			"scheduler":   s.cfg.Name,
			"job_id":      j.ID(),
			"status":      string(status),
			"succeeded":   snap.Count(job.ProducerSucceeded),
			"failed":      snap.Count(job.ProducerFailed),
			"skipped":     snap.Count(job.ProducerSkipped),
			"error_count": len(snap.Errors),
			"version":     snap.Version,
		},
	})

	return nil
}

func (s *Scheduler) requestCancel(ctx context.Context, j *job.Job, reason string) {
	if !j.RequestCancel() {
		return
	}
	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobCancel,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "scheduler.Run",
		Data: map[string]any{
			"job_id": j.ID(),
			"reason": reason,
		},
	})
}

func completionLevel(status job.Status) observability.Level {
	switch status {
	case job.StatusCompleted:
		return observability.LevelInfo
	case job.StatusFailed:
		return observability.LevelError
	default:
		return observability.LevelWarning
	}
}
