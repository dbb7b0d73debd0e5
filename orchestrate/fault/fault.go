// Package fault defines the error taxonomy shared by the producer registry,
// the dependency graph, the scheduler and the job tracker.
//
// Every failure that reaches a job's public error list is reduced to a Kind
// and a safe message. Raw errors stay reachable through Unwrap for logging
// but are never rendered to callers.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a category of failure.
type Kind string

const (
	KindValidation              Kind = "ValidationError"
	KindProducerExecution       Kind = "ProducerExecutionError"
	KindExternalService         Kind = "ExternalServiceError"
	KindDependencyFailure       Kind = "DependencyFailure"
	KindWriteConflict           Kind = "WriteConflict"
	KindCyclicDependency        Kind = "CyclicDependency"
	KindUnsatisfiableDependency Kind = "UnsatisfiableDependency"
	KindInternal                Kind = "InternalOrchestratorError"
	KindCancelled               Kind = "Cancelled"
)

// Sentinel errors, one per Kind, plus tracker lookups.
var (
	ErrValidation              = errors.New("validation error")
	ErrProducerExecution       = errors.New("producer execution error")
	ErrExternalService         = errors.New("external service error")
	ErrDependencyFailure       = errors.New("dependency failure")
	ErrWriteConflict           = errors.New("write conflict")
	ErrCyclicDependency        = errors.New("cyclic dependency")
	ErrUnsatisfiableDependency = errors.New("unsatisfiable dependency")
	ErrInternal                = errors.New("internal orchestrator error")
	ErrCancelled               = errors.New("cancelled")

	ErrNotReady    = errors.New("job not ready")
	ErrJobNotFound = errors.New("job not found")
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	{KindInternal, ErrInternal},
	{KindWriteConflict, ErrWriteConflict},
	{KindCyclicDependency, ErrCyclicDependency},
	{KindUnsatisfiableDependency, ErrUnsatisfiableDependency},
	{KindValidation, ErrValidation},
	{KindDependencyFailure, ErrDependencyFailure},
	{KindExternalService, ErrExternalService},
	{KindProducerExecution, ErrProducerExecution},
	{KindCancelled, ErrCancelled},
}

// Sentinel returns the sentinel error for k, or nil for an unknown kind.
func (k Kind) Sentinel() error {
	for _, s := range sentinels {
		if s.kind == k {
			return s.err
		}
	}
	return nil
}

// Retryable reports whether failures of this kind may be re-attempted when
// the producer allows retries.
func (k Kind) Retryable() bool {
	return k == KindProducerExecution || k == KindExternalService
}

// Failure is a classified failure produced at the producer boundary.
//
// Message is written for callers and is safe to expose. Err carries the
// underlying cause and is only ever logged.
type Failure struct {
	Kind     Kind
	Producer string
	Message  string
	Err      error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	prefix := string(f.Kind)
	if f.Producer != "" {
		prefix = fmt.Sprintf("%s: %s", f.Kind, f.Producer)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, f.Message)
}

// Unwrap enables errors.Is and errors.As against the cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel error of the failure's kind.
func (f *Failure) Is(target error) bool {
	return target != nil && f.Kind.Sentinel() == target
}

// WithProducer returns a copy of f attributed to the named producer.
func (f *Failure) WithProducer(name string) *Failure {
	c := *f
	c.Producer = name
	return &c
}

// Validation reports missing or malformed producer input. Never retried.
func Validation(format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Execution reports an internal producer failure.
func Execution(message string, err error) *Failure {
	return &Failure{Kind: KindProducerExecution, Message: message, Err: err}
}

// External reports a failed or timed out upstream dependency of a producer.
func External(message string, err error) *Failure {
	return &Failure{Kind: KindExternalService, Message: message, Err: err}
}

// Skipped is the synthetic failure recorded for a producer whose critical
// upstream failed.
func Skipped(upstream string) *Failure {
	return &Failure{
		Kind:    KindDependencyFailure,
		Message: fmt.Sprintf("skipped: critical dependency %s failed", upstream),
	}
}

// Internal reports a violated orchestrator invariant.
func Internal(message string, err error) *Failure {
	return &Failure{Kind: KindInternal, Message: message, Err: err}
}

// Cancelled reports a producer abandoned because its job was cancelled.
func Cancelled(message string) *Failure {
	return &Failure{Kind: KindCancelled, Message: message}
}

// KindOf classifies any error into a safe Kind.
//
// Failures keep their own kind. Errors wrapping one of the sentinels map to
// that sentinel's kind. Deadline errors are treated as upstream timeouts and
// everything else counts as a producer execution failure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindExternalService
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindProducerExecution
}

// Safe returns the kind and caller-facing message for err. The message of a
// Failure is kept; any other error is replaced with a generic description of
// its kind.
func Safe(err error) (Kind, string) {
	kind := KindOf(err)

	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return kind, f.Message
	}

	switch kind {
	case KindExternalService:
		return kind, "upstream service failed or timed out"
	case KindCancelled:
		return kind, "cancelled"
	case KindInternal:
		return kind, "internal orchestrator error"
	default:
		return kind, "producer failed"
	}
}
