package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/flow"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
)

func newServer(t *testing.T, release <-chan struct{}) *httptest.Server {
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

	mux := flow.New()
	Handle(mux, tr, slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tr.Close(ctx)
	})
	return srv
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func submit(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	var created struct {
		ID string `json:"id"`
	}
	code := do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"client_name":"ABC Corp"}`, &created)
	require.Equal(t, http.StatusAccepted, code)
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestJobLifecycle(t *testing.T) {
	srv := newServer(t, nil)
	id := submit(t, srv)

	var report tracker.Report
	require.Eventually(t, func() bool {
		code := do(t, http.MethodGet, srv.URL+"/v1/jobs/"+id, "", &report)
		return code == http.StatusOK && report.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, job.StatusCompleted, report.Status)
	require.Len(t, report.Records, 1)
	require.Equal(t, job.ProducerSucceeded, report.Records[0].Outcome)

	var result struct {
		ID       string         `json:"id"`
		Document map[string]any `json:"document"`
	}
	code := do(t, http.MethodGet, srv.URL+"/v1/jobs/"+id+"/result", "", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ABC Corp Ltd", result.Document["company"])

	var list []tracker.Summary
	code = do(t, http.MethodGet, srv.URL+"/v1/jobs", "", &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	require.Equal(t, id, list[0].ID)
}

func TestResultNotReadyAndCancel(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, release)
	id := submit(t, srv)

	var errBody struct {
		Err string `json:"error"`
	}
	code := do(t, http.MethodGet, srv.URL+"/v1/jobs/"+id+"/result", "", &errBody)
	require.Equal(t, http.StatusConflict, code)
	require.NotEmpty(t, errBody.Err)

	code = do(t, http.MethodPost, srv.URL+"/v1/jobs/"+id+"/cancel", "", nil)
	require.Equal(t, http.StatusAccepted, code)
	close(release)

	var report tracker.Report
	require.Eventually(t, func() bool {
		do(t, http.MethodGet, srv.URL+"/v1/jobs/"+id, "", &report)
		return report.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestErrors(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown job", method: http.MethodGet, path: "/v1/jobs/missing", want: http.StatusNotFound},
		{name: "unknown result", method: http.MethodGet, path: "/v1/jobs/missing/result", want: http.StatusNotFound},
		{name: "unknown cancel", method: http.MethodPost, path: "/v1/jobs/missing/cancel", want: http.StatusNotFound},
		{name: "missing input key", method: http.MethodPost, path: "/v1/jobs", body: `{"other":1}`, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/v1/jobs", body: `[`, want: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodDelete, path: "/v1/jobs", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := do(t, tt.method, srv.URL+tt.path, tt.body, nil)
			require.Equal(t, tt.want, code)
		})
	}
}

func TestProducers(t *testing.T) {
	srv := newServer(t, nil)

	var infos []tracker.ProducerInfo
	code := do(t, http.MethodGet, srv.URL+"/v1/producers", "", &infos)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, infos, 1)
	require.Equal(t, "company_info", infos[0].Name)

	var info tracker.ProducerInfo
	code = do(t, http.MethodGet, srv.URL+"/v1/producers/company_info", "", &info)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"client_name"}, info.Reads)
	require.Equal(t, []string{"company"}, info.Writes)
	require.Empty(t, info.Dependencies)
	require.False(t, info.Critical)
	require.False(t, info.Retryable)
	require.Equal(t, 1, info.MaxAttempts)

	var errBody struct {
		Err string `json:"error"`
	}
	code = do(t, http.MethodGet, srv.URL+"/v1/producers/pricing", "", &errBody)
	require.Equal(t, http.StatusNotFound, code)
	require.Contains(t, errBody.Err, "pricing")
}

func TestHealth(t *testing.T) {
	registry := producer.NewRegistry()
	require.NoError(t, registry.Register(producer.New(producer.Contract{
		Name:   "company_info",
		Writes: []string{"company"},
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		return document.Update{"company": "ProQuote"}, nil
	})))

	tr, err := tracker.New(config.DefaultTrackerConfig(), registry,
		tracker.WithObserver(observability.NoOpObserver{}),
	)
	require.NoError(t, err)

	handler := HealthHandler(tr, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","running":0,"producers":1}`, rec.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"closed","running":0,"producers":1}`, rec.Body.String())
}

func TestStatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, io.ErrUnexpectedEOF, 0)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
