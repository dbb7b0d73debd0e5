package tracker

import "github.com/tailored-agentic-units/quoteflow/observability"

const (
	EventJobSubmit  observability.EventType = "job.submit"
	EventJobReject  observability.EventType = "job.reject"
	EventJobCancel  observability.EventType = "job.cancel_request"
	EventJobError   observability.EventType = "job.error"
	EventJobSave    observability.EventType = "job.save"
	EventJobRestore observability.EventType = "job.restore"
	EventClose      observability.EventType = "tracker.close"
)
