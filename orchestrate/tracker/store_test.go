package tracker_test

import (
	"testing"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/test"
)

func TestMemoryStore(t *testing.T) {
	test.TestStore(t, func() (tracker.Store, error) { return tracker.NewMemoryStore(), nil })
}
