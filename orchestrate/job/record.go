package job

import (
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

// ErrorDetail is the caller-safe description of a failure.
type ErrorDetail struct {
	Kind    fault.Kind `json:"kind"`
	Message string     `json:"message"`
}

// ExecutionRecord is the append-only log entry for a producer that reached a
// terminal state. Records are ordered by completion time.
type ExecutionRecord struct {
	Producer  string        `json:"producer"`
	Attempts  int           `json:"attempts"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Outcome   ProducerState `json:"outcome"`
	Error     *ErrorDetail  `json:"error,omitempty"`
}

// Duration is the wall time between start and end.
func (r ExecutionRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// ErrorEntry is an item of a job's overall error list.
type ErrorEntry struct {
	Producer string     `json:"producer,omitempty"`
	Kind     fault.Kind `json:"kind"`
	Message  string     `json:"message"`
}

// NewErrorEntry reduces err to its safe kind and message.
func NewErrorEntry(producer string, err error) ErrorEntry {
	kind, msg := fault.Safe(err)
	return ErrorEntry{Producer: producer, Kind: kind, Message: msg}
}

// Detail returns the entry as an ErrorDetail.
func (e ErrorEntry) Detail() *ErrorDetail {
	return &ErrorDetail{Kind: e.Kind, Message: e.Message}
}
