package job_test

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from job.Status
		to   job.Status
		want bool
	}{
		{job.StatusPending, job.StatusRunning, true},
		{job.StatusPending, job.StatusCompleted, false},
		{job.StatusPending, job.StatusCancelled, false},
		{job.StatusRunning, job.StatusCompleted, true},
		{job.StatusRunning, job.StatusPartiallyCompleted, true},
		{job.StatusRunning, job.StatusFailed, true},
		{job.StatusRunning, job.StatusCancelled, true},
		{job.StatusRunning, job.StatusPending, false},
		{job.StatusCompleted, job.StatusRunning, false},
		{job.StatusCancelled, job.StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s.CanTransition(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestJob_Lifecycle(t *testing.T) {
	j := job.New("job-1", map[string]any{"client_name": "ABC Corp"})

	if j.Status() != job.StatusPending {
		t.Fatalf("Status() = %s, want Pending", j.Status())
	}

	if err := j.Start("company_info"); !errors.Is(err, job.ErrNotRunning) {
		t.Errorf("Start before Running error = %v, want ErrNotRunning", err)
	}

	if err := j.Transition(job.StatusRunning); err != nil {
		t.Fatalf("Transition(Running) failed: %v", err)
	}
	if err := j.Start("company_info"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := j.ProducerState("company_info"); got != job.ProducerRunning {
		t.Errorf("ProducerState = %s, want Running", got)
	}

	doc, err := j.Document().Merge("company_info", document.Update{"company": "ABC"}, document.NewKeySet("company"), false)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := j.Apply(doc); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	now := time.Now()
	rec := job.ExecutionRecord{Producer: "company_info", Attempts: 1, StartedAt: now, EndedAt: now, Outcome: job.ProducerSucceeded}
	if err := j.Append(rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := j.Transition(job.StatusCompleted); err != nil {
		t.Fatalf("Transition(Completed) failed: %v", err)
	}

	select {
	case <-j.Done():
	default:
		t.Error("Done() should be closed after terminal transition")
	}

	if err := j.Append(rec); !errors.Is(err, job.ErrFinished) {
		t.Errorf("Append after terminal error = %v, want ErrFinished", err)
	}
	if err := j.Transition(job.StatusRunning); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("Transition after terminal error = %v, want ErrInvalidTransition", err)
	}

	snap := j.Snapshot()
	if snap.Document["company"] != "ABC" {
		t.Errorf("snapshot document = %v", snap.Document)
	}
	if snap.Writers["company"] != "company_info" {
		t.Errorf("snapshot writers = %v", snap.Writers)
	}
	if snap.Count(job.ProducerSucceeded) != 1 {
		t.Errorf("Count(Succeeded) = %d, want 1", snap.Count(job.ProducerSucceeded))
	}
}

func TestJob_ProducerTransitions(t *testing.T) {
	j := job.New("job-2", nil)
	if err := j.Transition(job.StatusRunning); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	skip := job.ExecutionRecord{Producer: "header", Outcome: job.ProducerSkipped}
	if err := j.Append(skip); err != nil {
		t.Fatalf("Append(skip) failed: %v", err)
	}
	if err := j.Start("header"); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("Start after Skipped error = %v, want ErrInvalidTransition", err)
	}

	if err := j.Append(job.ExecutionRecord{Producer: "footer", Outcome: job.ProducerRunning}); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("Append non-terminal error = %v, want ErrInvalidTransition", err)
	}
}

func TestJob_RequestCancel(t *testing.T) {
	j := job.New("job-3", nil)

	if j.CancelRequested() {
		t.Fatal("new job should not be cancelled")
	}
	if !j.RequestCancel() {
		t.Error("first RequestCancel should raise the flag")
	}
	if j.RequestCancel() {
		t.Error("second RequestCancel should report already raised")
	}
	if !j.CancelRequested() {
		t.Error("CancelRequested() = false after RequestCancel")
	}
}

func TestJob_FromSnapshot(t *testing.T) {
	original := job.New("job-4", map[string]any{"client_name": "ABC"})
	if err := original.Transition(job.StatusRunning); err != nil {
		t.Fatal(err)
	}
	if err := original.AddError(job.NewErrorEntry("header", fault.Validation("missing company name"))); err != nil {
		t.Fatal(err)
	}
	if err := original.Transition(job.StatusFailed); err != nil {
		t.Fatal(err)
	}

	restored := job.FromSnapshot(original.Snapshot())

	if restored.Status() != job.StatusFailed {
		t.Errorf("Status() = %s, want Failed", restored.Status())
	}
	select {
	case <-restored.Done():
	default:
		t.Error("restored terminal job should be done")
	}

	snap := restored.Snapshot()
	if len(snap.Errors) != 1 || snap.Errors[0].Producer != "header" || snap.Errors[0].Kind != fault.KindValidation {
		t.Errorf("restored errors = %+v", snap.Errors)
	}
}

var allStatuses = []job.Status{
	job.StatusPending,
	job.StatusRunning,
	job.StatusCompleted,
	job.StatusFailed,
	job.StatusPartiallyCompleted,
	job.StatusCancelled,
}

func rank(s job.Status) int {
	switch s {
	case job.StatusPending:
		return 0
	case job.StatusRunning:
		return 1
	default:
		return 2
	}
}

func TestJob_TransitionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("status only moves forward and never leaves a terminal status", prop.ForAll(
		func(steps []int) bool {
			j := job.New("prop", nil)
			prev := j.Status()
			for _, step := range steps {
				_ = j.Transition(allStatuses[step])
				cur := j.Status()
				if rank(cur) < rank(prev) {
					return false
				}
				if prev.IsTerminal() && cur != prev {
					return false
				}
				prev = cur
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(allStatuses)-1)),
	))

	properties.TestingRun(t)
}
