package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/test"
)

func TestMySQLStorage(t *testing.T) {
	testDSN := os.Getenv("QUOTEFLOW_MYSQL_TEST_DSN")
	if testDSN == "" {
		t.Skip("QUOTEFLOW_MYSQL_TEST_DSN not set")
	}

	test.TestStore(t, func() (tracker.Store, error) {
		s, err := New(WithDSN(testDSN))
		if err != nil {
			return nil, err
		}
		if _, err := s.db.ExecContext(context.Background(), Schema); err != nil {
			return nil, err
		}
		return s, nil
	})
}
