package observability

import (
	"context"
	"log/slog"
	"slices"
)

// Event data keys that identify the job and producer an event belongs to.
const (
	KeyJobID    = "job_id"
	KeyProducer = "producer"
	KeyAttempt  = "attempt"
)

var jobKeys = map[string]string{
	KeyJobID:    "id",
	KeyProducer: "producer",
	KeyAttempt:  "attempt",
}

// SlogObserver emits events to a slog.Logger. The event type is the
// message and the level is mapped via SlogLevel. Job and producer
// identifiers are collected into a "job" group; the remaining Data keys
// follow as attributes in key order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]slog.Attr, 0, len(keys)+2)
	attrs = append(attrs, slog.String("source", event.Source))

	var job []any
	for _, k := range []string{KeyJobID, KeyProducer, KeyAttempt} {
		if v, ok := event.Data[k]; ok {
			job = append(job, slog.Any(jobKeys[k], v))
		}
	}
	if len(job) > 0 {
		attrs = append(attrs, slog.Group("job", job...))
	}

	for _, k := range keys {
		if _, ok := jobKeys[k]; ok {
			continue
		}
		attrs = append(attrs, slog.Any(k, event.Data[k]))
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
