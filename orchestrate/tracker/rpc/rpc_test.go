package rpc_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/rpc"
)

func newClient(t *testing.T, release <-chan struct{}) *rpc.Client {
	t.Helper()

	registry := producer.NewRegistry()
	require.NoError(t, registry.Register(producer.New(producer.Contract{
		Name:   "company_info",
		Reads:  []string{"client_name"},
		Writes: []string{"company"},
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		if release != nil {
			<-release
		}
		name, _ := in.Snapshot.String("client_name")
		return document.Update{"company": name + " Ltd"}, nil
	})))

	cfg := config.DefaultTrackerConfig()
	cfg.InputKeys = []string{"client_name"}

	tr, err := tracker.New(cfg, registry,
		tracker.WithStore(tracker.NewMemoryStore()),
		tracker.WithObserver(observability.NoOpObserver{}),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(rpc.NewHandler(tr))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tr.Close(ctx)
	})
	return rpc.NewClient(srv.Client(), srv.URL)
}

func TestClient_Lifecycle(t *testing.T) {
	client := newClient(t, nil)
	ctx := context.Background()

	id, err := client.Submit(ctx, map[string]any{"client_name": "ABC Corp"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var report tracker.Report
	require.Eventually(t, func() bool {
		report, err = client.Status(ctx, id)
		return err == nil && report.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, job.StatusCompleted, report.Status)
	require.Len(t, report.Records, 1)
	require.Equal(t, "company_info", report.Records[0].Producer)

	doc, err := client.Result(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ABC Corp Ltd", doc["company"])

	jobs, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, id, jobs[0].ID)
}

func TestClient_NotReadyAndCancel(t *testing.T) {
	release := make(chan struct{})
	client := newClient(t, release)
	ctx := context.Background()

	id, err := client.Submit(ctx, map[string]any{"client_name": "ABC Corp"})
	require.NoError(t, err)

	_, err = client.Result(ctx, id)
	require.ErrorIs(t, err, fault.ErrNotReady)

	require.NoError(t, client.Cancel(ctx, id))
	close(release)

	require.Eventually(t, func() bool {
		report, err := client.Status(ctx, id)
		return err == nil && report.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClient_Errors(t *testing.T) {
	client := newClient(t, nil)
	ctx := context.Background()

	_, err := client.Status(ctx, "missing")
	require.ErrorIs(t, err, fault.ErrJobNotFound)

	err = client.Cancel(ctx, "missing")
	require.ErrorIs(t, err, fault.ErrJobNotFound)

	_, err = client.Submit(ctx, map[string]any{"other": 1})
	require.ErrorIs(t, err, fault.ErrValidation)

	_, err = client.Status(ctx, "")
	require.ErrorIs(t, err, fault.ErrValidation)
}

func TestClient_Producers(t *testing.T) {
	client := newClient(t, nil)
	ctx := context.Background()

	infos, err := client.Producers(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "company_info", infos[0].Name)

	info, err := client.Producer(ctx, "company_info")
	require.NoError(t, err)
	require.Equal(t, []string{"client_name"}, info.Reads)
	require.Equal(t, []string{"company"}, info.Writes)
	require.Equal(t, 1, info.MaxAttempts)
	require.False(t, info.Critical)

	_, err = client.Producer(ctx, "pricing")
	require.ErrorIs(t, err, producer.ErrNotFound)

	_, err = client.Producer(ctx, "")
	require.ErrorIs(t, err, fault.ErrValidation)

	h, err := client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, tracker.HealthOK, h.Status)
	require.Equal(t, 1, h.Producers)
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{name: "not found", err: fault.ErrJobNotFound, want: connect.CodeNotFound},
		{name: "unknown producer", err: producer.ErrNotFound, want: connect.CodeNotFound},
		{name: "not ready", err: fault.ErrNotReady, want: connect.CodeFailedPrecondition},
		{name: "validation", err: fault.Validation("missing %s", "x"), want: connect.CodeInvalidArgument},
		{name: "closed", err: tracker.ErrClosed, want: connect.CodeUnavailable},
		{name: "other", err: errors.New("boom"), want: connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rpc.Code(tt.err))
		})
	}
}
