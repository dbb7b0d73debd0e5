package scheduler

import (
	"context"
	"slices"
	"time"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// run is the state of one Run call. It is owned by the scheduler goroutine;
// workers only see tasks and report outcomes.
type run struct {
	s       *Scheduler
	job     *job.Job
	doc     document.Document
	state   map[string]job.ProducerState
	running int

	// stopped is set once no further producers may be launched.
	stopped   bool
	cancelled bool
	internal  bool

	// interrupted holds producers whose retries were cut short by
	// cancellation. They are recorded as failed but never count as a
	// critical failure.
	interrupted map[string]bool
}

func newRun(s *Scheduler, j *job.Job) *run {
	r := &run{
		s:           s,
		job:         j,
		doc:         j.Document(),
		state:       make(map[string]job.ProducerState, s.graph.Len()),
		interrupted: make(map[string]bool),
	}
	for _, name := range s.graph.Nodes() {
		r.state[name] = job.ProducerNotStarted
	}
	return r
}

// execute drives the frontier loop and returns the terminal status.
func (r *run) execute(ctx context.Context) job.Status {
	workers := newPool(ctx, r.s, r.job)
	defer workers.close()

	for {
		if !r.stopped {
			r.launch(ctx, workers)
		}

		if r.running == 0 {
			break
		}

		out := <-workers.results
		r.running--
		r.complete(ctx, out)
	}

	return r.resolve()
}

// launch starts ready producers, at most one per idle worker. Producers
// left over stay NotStarted until a worker frees up, so a cancellation
// requested meanwhile keeps them from starting. Producers that fail read
// validation resolve immediately and may make others ready, so it loops
// until the frontier is stable.
func (r *run) launch(ctx context.Context, workers *pool) {
	for !r.stopped {
		if r.job.CancelRequested() {
			r.stopped = true
			r.cancelled = r.unfinished()
			return
		}

		idle := workers.size - r.running
		ready := r.ready()
		if len(ready) == 0 || idle <= 0 {
			return
		}
		if len(ready) > idle {
			ready = ready[:idle]
		}

		snapshot := r.doc.Snapshot()
		for _, name := range ready {
			st := r.s.steps[name]

			if err := r.job.Start(name); err != nil {
				r.abort(ctx, name, err)
				return
			}
			r.state[name] = job.ProducerRunning

			if err := r.checkReads(st.contract); err != nil {
				now := time.Now()
				r.finish(ctx, outcome{name: name, err: err, started: now, ended: now})
				r.checkpoint(ctx)
				continue
			}

			r.s.observer.OnEvent(ctx, observability.Event{
				Type:      EventProducerStart,
				Level:     observability.LevelInfo,
				Timestamp: time.Now(),
				Source:    "scheduler.launch",
				Data: map[string]any{
					"job_id":   r.job.ID(),
					"producer": name,
					"version":  snapshot.Version(),
				},
			})

			r.running++
			workers.dispatch(task{
				name: name,
				step: st,
				input: producer.Input{
					JobID:    r.job.ID(),
					Snapshot: snapshot,
					Payload:  r.job.Input(),
				},
			})
		}
	}
}

// ready returns the not-started producers whose dependencies have all
// reached a terminal state, in topological order.
func (r *run) ready() []string {
	var ready []string
	for _, name := range r.s.graph.Order() {
		if r.state[name] != job.ProducerNotStarted {
			continue
		}
		resolved := true
		for _, dep := range r.s.graph.Dependencies(name) {
			if !r.state[dep].IsTerminal() {
				resolved = false
				break
			}
		}
		if resolved {
			ready = append(ready, name)
		}
	}
	return ready
}

// checkReads verifies every declared read is present. A missing key is
// tolerated when one of its writers already failed or was skipped.
func (r *run) checkReads(c producer.Contract) error {
	var missing []string
	for _, key := range c.Reads {
		if r.doc.Has(key) {
			continue
		}
		excused := slices.ContainsFunc(r.s.graph.Writers(key), func(w string) bool {
			s := r.state[w]
			return s == job.ProducerFailed || s == job.ProducerSkipped
		})
		if !excused {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fault.Validation("missing required keys %v", missing).WithProducer(c.Name)
	}
	return nil
}

// complete merges a successful update and records the outcome.
func (r *run) complete(ctx context.Context, out outcome) {
	st := r.s.steps[out.name]

	if out.err == nil {
		merged, err := r.doc.Merge(out.name, out.update, st.contract.WriteSet(), st.contract.IsOverride())
		if err != nil {
			out.err = fault.Internal("producer update rejected by merge", err).WithProducer(out.name)
			r.internal = true
			r.stopped = true
		} else {
			if err := r.job.Apply(merged); err != nil {
				r.abort(ctx, out.name, err)
				return
			}
			r.doc = merged

			r.s.observer.OnEvent(ctx, observability.Event{
				Type:      EventDocumentMerge,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "scheduler.complete",
				Data: map[string]any{
					"job_id":   r.job.ID(),
					"producer": out.name,
					"keys":     out.update.Keys().Sorted(),
					"version":  merged.Version(),
				},
			})
		}
	}

	r.finish(ctx, out)
	r.checkpoint(ctx)
}

// finish appends the execution record for a producer that left Running.
func (r *run) finish(ctx context.Context, out outcome) {
	st := r.s.steps[out.name]
	rec := job.ExecutionRecord{
		Producer:  out.name,
		Attempts:  out.attempts,
		StartedAt: out.started,
		EndedAt:   out.ended,
		Outcome:   job.ProducerSucceeded,
	}

	var entry job.ErrorEntry
	if out.err != nil {
		entry = job.NewErrorEntry(out.name, out.err)
		rec.Outcome = job.ProducerFailed
		rec.Error = entry.Detail()
	}

	if err := r.job.Append(rec); err != nil {
		r.abort(ctx, out.name, err)
		return
	}
	r.state[out.name] = rec.Outcome

	r.s.observer.OnEvent(ctx, observability.Event{
		Type:      EventProducerComplete,
		Level:     outcomeLevel(rec.Outcome),
		Timestamp: time.Now(),
		Source:    "scheduler.complete",
		Data: map[string]any{
			"job_id":   r.job.ID(),
			"producer": out.name,
			"outcome":  string(rec.Outcome),
			"attempts": rec.Attempts,
			"duration": rec.Duration().String(),
		},
	})

	if out.err == nil {
		return
	}

	if err := r.job.AddError(entry); err != nil {
		r.abort(ctx, out.name, err)
		return
	}

	if out.cancelled {
		r.stopped = true
		r.cancelled = true
		r.interrupted[out.name] = true
		return
	}

	if st.contract.Critical {
		r.skip(ctx, out.name)
	}
}

// skip marks every transitive dependent of a failed critical producer as
// Skipped.
func (r *run) skip(ctx context.Context, failed string) {
	reason := fault.Skipped(failed)
	for _, name := range r.s.graph.Descendants(failed) {
		if r.state[name] != job.ProducerNotStarted {
			continue
		}

		now := time.Now()
		_, msg := fault.Safe(reason)
		err := r.job.Append(job.ExecutionRecord{
			Producer:  name,
			StartedAt: now,
			EndedAt:   now,
			Outcome:   job.ProducerSkipped,
			Error:     &job.ErrorDetail{Kind: fault.KindDependencyFailure, Message: msg},
		})
		if err != nil {
			r.abort(ctx, name, err)
			return
		}
		r.state[name] = job.ProducerSkipped

		r.s.observer.OnEvent(ctx, observability.Event{
			Type:      EventProducerSkip,
			Level:     observability.LevelWarning,
			Timestamp: now,
			Source:    "scheduler.skip",
			Data: map[string]any{
				"job_id":   r.job.ID(),
				"producer": name,
				"upstream": failed,
			},
		})
	}
}

// abort handles a job mutation the job itself rejected. It can only happen
// when the scheduler's own bookkeeping is wrong, so the job is failed.
func (r *run) abort(ctx context.Context, name string, err error) {
	r.internal = true
	r.stopped = true

	r.s.observer.OnEvent(ctx, observability.Event{
		Type:      EventProducerError,
		Level:     observability.LevelError,
		Timestamp: time.Now(),
		Source:    "scheduler.abort",
		Data: map[string]any{
			"job_id":   r.job.ID(),
			"producer": name,
			"kind":     string(fault.KindInternal),
			"error":    err.Error(),
		},
	})

	_ = r.job.AddError(job.NewErrorEntry(name, fault.Internal("job state rejected update", err)))
}

func (r *run) checkpoint(ctx context.Context) {
	if !r.s.cfg.Checkpoint || r.s.checkpoint == nil {
		return
	}

	snap := r.job.Snapshot()
	err := r.s.checkpoint(ctx, snap)

	level := observability.LevelVerbose
	data := map[string]any{
		"job_id":  snap.ID,
		"version": snap.Version,
		"records": len(snap.Records),
	}
	if err != nil {
		level = observability.LevelWarning
		data["error"] = err.Error()
	}

	r.s.observer.OnEvent(ctx, observability.Event{
		Type:      EventJobCheckpoint,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "scheduler.checkpoint",
		Data:      data,
	})
}

// unfinished reports whether any producer has not reached a terminal state.
func (r *run) unfinished() bool {
	for _, s := range r.state {
		if !s.IsTerminal() {
			return true
		}
	}
	return false
}

// resolve maps producer outcomes to the job's terminal status.
//
// An internal error or a failed critical producer fails the job; a
// producer whose retries were interrupted by cancellation has not failed. A
// cancellation observed while work remained cancels it. Otherwise the job is
// Completed when every producer succeeded and PartiallyCompleted when not.
func (r *run) resolve() job.Status {
	if r.internal {
		return job.StatusFailed
	}

	for name, s := range r.state {
		if s == job.ProducerFailed && r.s.steps[name].contract.Critical && !r.interrupted[name] {
			return job.StatusFailed
		}
	}

	if r.cancelled {
		return job.StatusCancelled
	}

	for _, s := range r.state {
		if s != job.ProducerSucceeded {
			return job.StatusPartiallyCompleted
		}
	}
	return job.StatusCompleted
}

func outcomeLevel(s job.ProducerState) observability.Level {
	switch s {
	case job.ProducerSucceeded:
		return observability.LevelInfo
	case job.ProducerFailed:
		return observability.LevelError
	default:
		return observability.LevelWarning
	}
}
