package job

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending            Status = "Pending"
	StatusRunning            Status = "Running"
	StatusCompleted          Status = "Completed"
	StatusFailed             Status = "Failed"
	StatusPartiallyCompleted Status = "PartiallyCompleted"
	StatusCancelled          Status = "Cancelled"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartiallyCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a job may move from s to next. Jobs only move
// forward: Pending to Running, then Running to one terminal status.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// ProducerState is the run state of one producer within a job.
type ProducerState string

const (
	ProducerNotStarted ProducerState = "NotStarted"
	ProducerRunning    ProducerState = "Running"
	ProducerSucceeded  ProducerState = "Succeeded"
	ProducerFailed     ProducerState = "Failed"
	ProducerSkipped    ProducerState = "Skipped"
)

// IsTerminal reports whether the producer has finished.
func (s ProducerState) IsTerminal() bool {
	return s == ProducerSucceeded || s == ProducerFailed || s == ProducerSkipped
}

// CanTransition reports whether a producer may move from s to next. A
// skipped producer never passes through Running.
func (s ProducerState) CanTransition(next ProducerState) bool {
	switch s {
	case ProducerNotStarted:
		return next == ProducerRunning || next == ProducerSkipped
	case ProducerRunning:
		return next == ProducerSucceeded || next == ProducerFailed
	default:
		return false
	}
}
