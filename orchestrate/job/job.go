// Package job models one document-generation run: its lifecycle status, the
// document it owns, the per-producer states and the execution log.
//
// A Job is safe for concurrent use. The scheduler is its only writer while it
// is Running; status queries read consistent copies through Snapshot. Once a
// job reaches a terminal status every mutating method fails with
// ErrFinished.
package job

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
)

// Sentinel errors for job mutation.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotRunning        = errors.New("job is not running")
	ErrFinished          = errors.New("job is finished")
)

// Job is a single document-generation run.
type Job struct {
	mu        sync.RWMutex
	id        string
	status    Status
	input     map[string]any
	doc       document.Document
	producers map[string]ProducerState
	records   []ExecutionRecord
	errors    []ErrorEntry
	createdAt time.Time
	updatedAt time.Time

	cancelOnce sync.Once
	cancelled  chan struct{}
	done       chan struct{}
}

// New creates a Pending job whose document is seeded with input.
func New(id string, input map[string]any) *Job {
	now := time.Now()
	return &Job{
		id:        id,
		status:    StatusPending,
		input:     maps.Clone(input),
		doc:       document.New(input),
		producers: make(map[string]ProducerState),
		createdAt: now,
		updatedAt: now,
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// FromSnapshot rehydrates a job loaded from a store. A job restored in a
// terminal status is already done.
func FromSnapshot(s Snapshot) *Job {
	j := &Job{
		id:        s.ID,
		status:    s.Status,
		input:     maps.Clone(s.Input),
		doc:       document.Restore(s.Version, s.Document, s.Writers),
		producers: maps.Clone(s.Producers),
		records:   slices.Clone(s.Records),
		errors:    slices.Clone(s.Errors),
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
	if j.producers == nil {
		j.producers = make(map[string]ProducerState)
	}
	if j.status.IsTerminal() {
		close(j.done)
	}
	return j
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Status returns the current lifecycle status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Input returns a copy of the submitted input.
func (j *Job) Input() map[string]any {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return maps.Clone(j.input)
}

// Document returns the current document.
func (j *Job) Document() document.Document {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.doc
}

// ProducerState returns the run state of the named producer.
func (j *Job) ProducerState(name string) ProducerState {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if s, ok := j.producers[name]; ok {
		return s
	}
	return ProducerNotStarted
}

// Transition moves the job to next. Only forward moves are accepted.
func (j *Job) Transition(next Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, next)
	}
	j.status = next
	j.updatedAt = time.Now()

	if next.IsTerminal() {
		close(j.done)
	}
	return nil
}

// Start records that a producer was launched.
func (j *Job) Start(producer string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}
	return j.setProducer(producer, ProducerRunning)
}

// Apply replaces the job's document with the result of a merge.
func (j *Job) Apply(doc document.Document) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}
	j.doc = doc
	j.updatedAt = time.Now()
	return nil
}

// Append adds an execution record and moves the producer to the record's
// outcome.
func (j *Job) Append(rec ExecutionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}
	if !rec.Outcome.IsTerminal() {
		return fmt.Errorf("%w: record outcome %s", ErrInvalidTransition, rec.Outcome)
	}
	if err := j.setProducer(rec.Producer, rec.Outcome); err != nil {
		return err
	}
	j.records = append(j.records, rec)
	j.updatedAt = time.Now()
	return nil
}

// AddError appends to the job's overall error list.
func (j *Job) AddError(entry ErrorEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}
	j.errors = append(j.errors, entry)
	j.updatedAt = time.Now()
	return nil
}

// RequestCancel raises the cancellation flag. It reports whether this call
// raised it. The flag is observed by the scheduler between producer
// attempts; it never interrupts an attempt in flight.
func (j *Job) RequestCancel() bool {
	raised := false
	j.cancelOnce.Do(func() {
		close(j.cancelled)
		raised = true
	})
	return raised
}

// CancelRequested reports whether cancellation has been requested.
func (j *Job) CancelRequested() bool {
	select {
	case <-j.cancelled:
		return true
	default:
		return false
	}
}

// Cancelled is closed once cancellation has been requested.
func (j *Job) Cancelled() <-chan struct{} {
	return j.cancelled
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Snapshot returns a consistent copy of the job.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return Snapshot{
		ID:        j.id,
		Status:    j.status,
		Input:     maps.Clone(j.input),
		Document:  j.doc.Values(),
		Writers:   j.doc.Writers(),
		Version:   j.doc.Version(),
		Producers: maps.Clone(j.producers),
		Records:   append([]ExecutionRecord{}, j.records...),
		Errors:    append([]ErrorEntry{}, j.errors...),
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
}

func (j *Job) writable() error {
	switch {
	case j.status.IsTerminal():
		return fmt.Errorf("%w: %s is %s", ErrFinished, j.id, j.status)
	case j.status != StatusRunning:
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, j.id, j.status)
	}
	return nil
}

func (j *Job) setProducer(name string, next ProducerState) error {
	cur, ok := j.producers[name]
	if !ok {
		cur = ProducerNotStarted
	}
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: producer %s %s -> %s", ErrInvalidTransition, name, cur, next)
	}
	j.producers[name] = next
	return nil
}
