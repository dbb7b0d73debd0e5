package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

type task struct {
	name  string
	step  step
	input producer.Input
}

type outcome struct {
	name      string
	update    document.Update
	err       error
	attempts  int
	started   time.Time
	ended     time.Time
	cancelled bool
}

// pool runs producer attempts for a single job.
type pool struct {
	s       *Scheduler
	job     *job.Job
	size    int
	tasks   chan task
	results chan outcome
	wg      sync.WaitGroup
}

// calculateWorkerCount determines the worker pool size.
//
// When maxWorkers is 0 the count is min(NumCPU*2, workerCap, itemCount),
// never below 1. When maxWorkers > 0 it is used as is.
func calculateWorkerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	if workerCap <= 0 {
		workerCap = itemCount
	}

	workers := min(min(runtime.NumCPU()*2, workerCap), itemCount)

	if workers <= 0 {
		workers = 1
	}

	return workers
}

// newPool starts the workers. Both channels are sized to the number of
// producers so dispatching and reporting never block.
func newPool(ctx context.Context, s *Scheduler, j *job.Job) *pool {
	size := max(s.graph.Len(), 1)
	p := &pool{
		s:       s,
		job:     j,
		tasks:   make(chan task, size),
		results: make(chan outcome, size),
	}

	p.size = calculateWorkerCount(s.cfg.MaxWorkers, s.cfg.WorkerCap, size)
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				p.results <- p.execute(ctx, t)
			}
		}()
	}
	return p
}

func (p *pool) dispatch(t task) {
	p.tasks <- t
}

func (p *pool) close() {
	close(p.tasks)
	p.wg.Wait()
}

// execute runs every attempt of one producer, sleeping between retries.
func (p *pool) execute(ctx context.Context, t task) outcome {
	out := outcome{name: t.name, started: time.Now()}
	limit := t.step.contract.Attempts()

	for attempt := 1; ; attempt++ {
		out.attempts = attempt
		in := t.input
		in.Attempt = attempt

		p.s.observer.OnEvent(ctx, observability.Event{
			Type:      EventProducerAttempt,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "scheduler.execute",
			Data: map[string]any{
				"job_id":   in.JobID,
				"producer": t.name,
				"attempt":  attempt,
				"limit":    limit,
			},
		})

		update, err := p.attempt(ctx, t.step, in)
		if err == nil {
			out.update = update
			out.err = nil
			break
		}
		out.err = err

		kind := fault.KindOf(err)
		p.s.observer.OnEvent(ctx, observability.Event{
			Type:      EventProducerError,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "scheduler.execute",
			Data: map[string]any{
				"job_id":   in.JobID,
				"producer": t.name,
				"attempt":  attempt,
				"kind":     string(kind),
				"error":    err.Error(),
			},
		})

		if !t.step.contract.Retryable || !kind.Retryable() || attempt >= limit {
			break
		}

		delay := Backoff(p.s.cfg.Retry, attempt)
		p.s.observer.OnEvent(ctx, observability.Event{
			Type:      EventProducerRetry,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "scheduler.execute",
			Data: map[string]any{
				"job_id":   in.JobID,
				"producer": t.name,
				"attempt":  attempt + 1,
				"backoff":  delay.String(),
			},
		})

		if !p.wait(delay) {
			out.err = fault.Cancelled(fmt.Sprintf("cancelled after attempt %d", attempt))
			out.cancelled = true
			break
		}
	}

	out.ended = time.Now()
	return out
}

// attempt runs a single attempt. The attempt does not observe job
// cancellation; it is bounded only by the producer timeout, after which its
// result is abandoned.
func (p *pool) attempt(ctx context.Context, st step, in producer.Input) (document.Update, error) {
	actx := context.WithoutCancel(ctx)
	if st.contract.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, st.contract.Timeout)
		defer cancel()
	}

	type result struct {
		update document.Update
		err    error
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fault.Execution("producer panicked", fmt.Errorf("panic: %v", r))}
			}
		}()
		update, err := st.producer.Attempt(actx, in)
		ch <- result{update: update, err: err}
	}()

	select {
	case r := <-ch:
		return r.update, r.err
	case <-actx.Done():
		select {
		case r := <-ch:
			return r.update, r.err
		default:
		}
		return nil, fault.External(fmt.Sprintf("attempt timed out after %s", st.contract.Timeout), actx.Err())
	}
}

// wait sleeps for d unless cancellation is requested first. It reports
// whether the next attempt may start.
func (p *pool) wait(d time.Duration) bool {
	if p.job.CancelRequested() {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !p.job.CancelRequested()
	case <-p.job.Cancelled():
		return false
	}
}
