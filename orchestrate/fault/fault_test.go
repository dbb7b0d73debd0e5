package fault_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

func TestFailure_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "validation", err: fault.Validation("missing %s", "company"), target: fault.ErrValidation, want: true},
		{name: "external", err: fault.External("timeout", context.DeadlineExceeded), target: fault.ErrExternalService, want: true},
		{name: "external unwraps cause", err: fault.External("timeout", context.DeadlineExceeded), target: context.DeadlineExceeded, want: true},
		{name: "kind mismatch", err: fault.Execution("boom", nil), target: fault.ErrValidation, want: false},
		{name: "wrapped failure", err: fmt.Errorf("attempt 2: %w", fault.Internal("merge", nil)), target: fault.ErrInternal, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fault.Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "failure keeps kind", err: fault.Validation("bad"), want: fault.KindValidation},
		{name: "wrapped sentinel", err: fmt.Errorf("%w: total", fault.ErrWriteConflict), want: fault.KindWriteConflict},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: fault.KindExternalService},
		{name: "canceled", err: context.Canceled, want: fault.KindCancelled},
		{name: "raw error", err: errors.New("nil pointer"), want: fault.KindProducerExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fault.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestSafe_HidesRawErrors(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.7:5432: secret-host refused")

	kind, msg := fault.Safe(raw)
	if kind != fault.KindProducerExecution {
		t.Errorf("kind = %q, want %q", kind, fault.KindProducerExecution)
	}
	if strings.Contains(msg, "secret-host") {
		t.Errorf("safe message leaked raw error: %q", msg)
	}

	kind, msg = fault.Safe(fault.External("pricing backend unavailable", raw))
	if kind != fault.KindExternalService {
		t.Errorf("kind = %q, want %q", kind, fault.KindExternalService)
	}
	if msg != "pricing backend unavailable" {
		t.Errorf("message = %q, want %q", msg, "pricing backend unavailable")
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[fault.Kind]bool{
		fault.KindProducerExecution: true,
		fault.KindExternalService:   true,
		fault.KindValidation:        false,
		fault.KindDependencyFailure: false,
		fault.KindInternal:          false,
		fault.KindCancelled:         false,
	}

	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestFailure_WithProducer(t *testing.T) {
	f := fault.Validation("missing company name")
	named := f.WithProducer("header")

	if f.Producer != "" {
		t.Errorf("original producer = %q, want empty", f.Producer)
	}
	if named.Producer != "header" {
		t.Errorf("producer = %q, want %q", named.Producer, "header")
	}
	if !strings.Contains(named.Error(), "header") {
		t.Errorf("Error() = %q, want producer name", named.Error())
	}
}
