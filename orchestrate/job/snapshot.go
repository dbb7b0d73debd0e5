package job

import "time"

// Snapshot is the serializable form of a Job. Stores persist it and the
// tracker returns it from status queries.
type Snapshot struct {
	ID        string                   `json:"id"`
	Status    Status                   `json:"status"`
	Input     map[string]any           `json:"input"`
	Document  map[string]any           `json:"document"`
	Writers   map[string]string        `json:"writers,omitempty"`
	Version   int                      `json:"version"`
	Producers map[string]ProducerState `json:"producers,omitempty"`
	Records   []ExecutionRecord        `json:"records"`
	Errors    []ErrorEntry             `json:"errors"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Record returns the execution record of the named producer, if any.
func (s Snapshot) Record(producer string) (ExecutionRecord, bool) {
	for _, r := range s.Records {
		if r.Producer == producer {
			return r, true
		}
	}
	return ExecutionRecord{}, false
}

// Count returns the number of records with the given outcome.
func (s Snapshot) Count(outcome ProducerState) int {
	n := 0
	for _, r := range s.Records {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}
