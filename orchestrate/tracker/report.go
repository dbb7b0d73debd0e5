package tracker

import (
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

// Report is the caller-facing status view of a job. It omits the input and
// document, which are only returned as a result.
type Report struct {
	ID        string                       `json:"id"`
	Status    job.Status                   `json:"status"`
	Version   int                          `json:"version"`
	Producers map[string]job.ProducerState `json:"producers"`
	Records   []job.ExecutionRecord        `json:"records"`
	Errors    []job.ErrorEntry             `json:"errors"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// NewReport builds the report of a snapshot.
func NewReport(s job.Snapshot) Report {
	producers := s.Producers
	if producers == nil {
		producers = map[string]job.ProducerState{}
	}
	records := s.Records
	if records == nil {
		records = []job.ExecutionRecord{}
	}
	errs := s.Errors
	if errs == nil {
		errs = []job.ErrorEntry{}
	}

	return Report{
		ID:        s.ID,
		Status:    s.Status,
		Version:   s.Version,
		Producers: producers,
		Records:   records,
		Errors:    errs,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
