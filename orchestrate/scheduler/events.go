package scheduler

import "github.com/tailored-agentic-units/quoteflow/observability"

const (
	// Job lifecycle
	EventJobStart      observability.EventType = "job.start"
	EventJobCancel     observability.EventType = "job.cancel"
	EventJobComplete   observability.EventType = "job.complete"
	EventJobCheckpoint observability.EventType = "job.checkpoint"

	// Producer execution
	EventProducerStart    observability.EventType = "producer.start"
	EventProducerAttempt  observability.EventType = "producer.attempt"
	EventProducerError    observability.EventType = "producer.error"
	EventProducerRetry    observability.EventType = "producer.retry"
	EventProducerComplete observability.EventType = "producer.complete"
	EventProducerSkip     observability.EventType = "producer.skip"

	// Document
	EventDocumentMerge observability.EventType = "document.merge"
)
