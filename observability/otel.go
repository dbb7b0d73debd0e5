package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OTelObserver counts events per type on an OTel meter and, when the context
// carries a recording span, attaches each event to that span. Error-level
// events mark the span as failed.
type OTelObserver struct {
	events metric.Int64Counter
}

// NewOTelObserver creates an OTelObserver recording to the given meter.
func NewOTelObserver(meter metric.Meter) (*OTelObserver, error) {
	counter, err := meter.Int64Counter(
		"quoteflow.events",
		metric.WithDescription("Orchestration events by type and severity"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}
	return &OTelObserver{events: counter}, nil
}

func (o *OTelObserver) OnEvent(ctx context.Context, event Event) {
	base := []attribute.KeyValue{
		attribute.String("event.type", string(event.Type)),
		attribute.String("event.source", event.Source),
		attribute.String("event.severity", event.Level.String()),
	}
	o.events.Add(ctx, 1, metric.WithAttributes(base...))

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(base)+len(event.Data))
	attrs = append(attrs, base...)
	for k, v := range event.Data {
		attrs = append(attrs, attributeOf(k, v))
	}

	opts := []trace.EventOption{trace.WithAttributes(attrs...)}
	if !event.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(event.Timestamp))
	}
	span.AddEvent(string(event.Type), opts...)

	if event.Level >= LevelError {
		span.SetStatus(codes.Error, string(event.Type))
	}
}

func attributeOf(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
