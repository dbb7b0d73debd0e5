// Package http contains HTTP handlers for submitting and inspecting jobs.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
)

var (
	ErrNoID       = errors.New("no job id provided")
	ErrNoProducer = errors.New("no producer name provided")
	ErrNoTracker  = errors.New("no tracker")
)

// Tracker is the job surface the handlers need.
type Tracker interface {
	Submit(ctx context.Context, input map[string]any) (string, error)
	Status(ctx context.Context, id string) (job.Snapshot, error)
	Result(ctx context.Context, id string) (map[string]any, error)
	Cancel(ctx context.Context, id string) error
	List(ctx context.Context) ([]tracker.Summary, error)
	Producers(ctx context.Context) ([]tracker.ProducerInfo, error)
	Producer(ctx context.Context, name string) (tracker.ProducerInfo, error)
	Health(ctx context.Context) (tracker.Health, error)
}

// JSONError encodes err as JSON to w. A statusCode below 1 is derived from
// the error. Errors that map to 500 are replaced with a generic message.
func JSONError(w http.ResponseWriter, err error, statusCode int) {
	if statusCode < 1 {
		statusCode = StatusCode(err)
	}

	msg := err.Error()
	switch {
	case statusCode == http.StatusInternalServerError:
		msg = "internal error"
	case errors.Is(err, fault.ErrValidation):
		_, msg = fault.Safe(err)
	}

	jsonErr := &struct {
		Err string `json:"error"`
	}{Err: msg}
	w.Header().Set("Content-type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonErr)
}

// StatusCode maps tracker errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, fault.ErrJobNotFound), errors.Is(err, producer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fault.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, fault.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Info("encoding json to body", "error", err)
	}
}

// SubmitHandler returns an HTTP handler that submits a job. The request body
// is the job input as a JSON object.
func SubmitHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t == nil {
			logger.Info("submitting job", "error", ErrNoTracker)
			JSONError(w, ErrNoTracker, http.StatusInternalServerError)
			return
		}

		var input map[string]any
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			logger.Info("decoding body", "error", err)
			JSONError(w, fault.Validation("request body must be a JSON object"), http.StatusBadRequest)
			return
		}

		id, err := t.Submit(r.Context(), input)
		if err != nil {
			logger.Info("submitting job", "error", err)
			JSONError(w, err, 0)
			return
		}

		logger.Debug("submitted job", "job_id", id)
		writeJSON(w, logger, http.StatusAccepted, &struct {
			ID string `json:"id"`
		}{ID: id})
	}
}

// ListHandler returns an HTTP handler that lists jobs.
func ListHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := t.List(r.Context())
		if err != nil {
			logger.Info("listing jobs", "error", err)
			JSONError(w, err, 0)
			return
		}

		logger.Debug("listed jobs", "count", len(jobs))
		writeJSON(w, logger, http.StatusOK, jobs)
	}
}

// StatusHandler returns an HTTP handler that reports a job's status and
// execution records.
func StatusHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := flow.Param(r.Context(), "id")
		if id == "" {
			logger.Info("id parameter", "error", ErrNoID)
			JSONError(w, ErrNoID, http.StatusBadRequest)
			return
		}

		logger := logger.With("job_id", id)
		snap, err := t.Status(r.Context(), id)
		if err != nil {
			logger.Info("retrieving status", "error", err)
			JSONError(w, err, 0)
			return
		}

		writeJSON(w, logger, http.StatusOK, tracker.NewReport(snap))
	}
}

// ResultHandler returns an HTTP handler that returns a finished job's
// document. Unfinished jobs answer 409.
func ResultHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := flow.Param(r.Context(), "id")
		if id == "" {
			logger.Info("id parameter", "error", ErrNoID)
			JSONError(w, ErrNoID, http.StatusBadRequest)
			return
		}

		logger := logger.With("job_id", id)
		doc, err := t.Result(r.Context(), id)
		if err != nil {
			logger.Info("retrieving result", "error", err)
			JSONError(w, err, 0)
			return
		}

		writeJSON(w, logger, http.StatusOK, &struct {
			ID       string         `json:"id"`
			Document map[string]any `json:"document"`
		}{ID: id, Document: doc})
	}
}

// CancelHandler returns an HTTP handler that requests cancellation of a job.
func CancelHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := flow.Param(r.Context(), "id")
		if id == "" {
			logger.Info("id parameter", "error", ErrNoID)
			JSONError(w, ErrNoID, http.StatusBadRequest)
			return
		}

		logger := logger.With("job_id", id)
		if err := t.Cancel(r.Context(), id); err != nil {
			logger.Info("cancelling job", "error", err)
			JSONError(w, err, 0)
			return
		}

		logger.Debug("cancel requested")
		writeJSON(w, logger, http.StatusAccepted, &struct {
			ID        string `json:"id"`
			Cancelled bool   `json:"cancel_requested"`
		}{ID: id, Cancelled: true})
	}
}

// ProducersHandler returns an HTTP handler that lists the effective producer
// contracts in execution order.
func ProducersHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := t.Producers(r.Context())
		if err != nil {
			logger.Info("listing producers", "error", err)
			JSONError(w, err, 0)
			return
		}

		writeJSON(w, logger, http.StatusOK, infos)
	}
}

// ProducerHandler returns an HTTP handler that describes one producer.
func ProducerHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := flow.Param(r.Context(), "name")
		if name == "" {
			logger.Info("name parameter", "error", ErrNoProducer)
			JSONError(w, ErrNoProducer, http.StatusBadRequest)
			return
		}

		info, err := t.Producer(r.Context(), name)
		if err != nil {
			logger.Info("retrieving producer", "producer", name, "error", err)
			JSONError(w, err, 0)
			return
		}

		writeJSON(w, logger, http.StatusOK, info)
	}
}

// HealthHandler returns an HTTP handler that reports tracker health. A closed
// tracker answers 503.
func HealthHandler(t Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := t.Health(r.Context())
		if err != nil {
			logger.Info("checking health", "error", err)
			JSONError(w, err, 0)
			return
		}

		code := http.StatusOK
		if h.Status != tracker.HealthOK {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, code, h)
	}
}

// Handle mounts every job, producer and health route on mux.
func Handle(mux *flow.Mux, t Tracker, logger *slog.Logger) {
	mux.Handle("/v1/jobs", SubmitHandler(t, logger.With("handler", "submit job")), "POST")
	mux.Handle("/v1/jobs", ListHandler(t, logger.With("handler", "list jobs")), "GET")
	mux.Handle("/v1/jobs/:id", StatusHandler(t, logger.With("handler", "job status")), "GET")
	mux.Handle("/v1/jobs/:id/result", ResultHandler(t, logger.With("handler", "job result")), "GET")
	mux.Handle("/v1/jobs/:id/cancel", CancelHandler(t, logger.With("handler", "cancel job")), "POST")
	mux.Handle("/v1/producers", ProducersHandler(t, logger.With("handler", "list producers")), "GET")
	mux.Handle("/v1/producers/:name", ProducerHandler(t, logger.With("handler", "producer")), "GET")
	mux.Handle("/healthz", HealthHandler(t, logger.With("handler", "health")), "GET")
}
