package tracker

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// ProducerInfo is the effective contract of a producer after configuration,
// with its place in the dependency graph.
type ProducerInfo struct {
	Name         string   `json:"name"`
	Reads        []string `json:"reads"`
	Writes       []string `json:"writes"`
	After        []string `json:"after,omitempty"`
	Overrides    string   `json:"overrides,omitempty"`
	Dependencies []string `json:"dependencies"`
	Depth        int      `json:"depth"`
	Critical     bool     `json:"critical"`
	Retryable    bool     `json:"retryable"`
	MaxAttempts  int      `json:"max_attempts"`
	Timeout      string   `json:"timeout,omitempty"`
}

// Health reports whether the tracker accepts jobs.
type Health struct {
	Status    string `json:"status"`
	Running   int    `json:"running"`
	Producers int    `json:"producers"`
}

// Health status values.
const (
	HealthOK     = "ok"
	HealthClosed = "closed"
)

// Producers returns every producer in execution order.
func (t *Tracker) Producers(ctx context.Context) ([]ProducerInfo, error) {
	order := t.scheduler.Graph().Order()
	infos := make([]ProducerInfo, 0, len(order))
	for _, name := range order {
		info, err := t.Producer(ctx, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Producer returns one producer by name. Returns an error wrapping
// producer.ErrNotFound for an unknown name.
func (t *Tracker) Producer(ctx context.Context, name string) (ProducerInfo, error) {
	c, ok := t.scheduler.Contract(name)
	if !ok {
		return ProducerInfo{}, fmt.Errorf("%w: %s", producer.ErrNotFound, name)
	}

	g := t.scheduler.Graph()
	info := ProducerInfo{
		Name:         c.Name,
		Reads:        nonNil(c.Reads),
		Writes:       nonNil(c.Writes),
		After:        c.After,
		Overrides:    c.Overrides,
		Dependencies: nonNil(g.Dependencies(name)),
		Depth:        g.Depth(name),
		Critical:     c.Critical,
		Retryable:    c.Retryable,
		MaxAttempts:  c.Attempts(),
	}
	if c.Timeout > 0 {
		info.Timeout = c.Timeout.String()
	}
	return info, nil
}

// Health reports the tracker's state and the number of jobs in flight.
func (t *Tracker) Health(ctx context.Context) (Health, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := Health{
		Status:    HealthOK,
		Producers: t.scheduler.Graph().Len(),
	}
	if t.closed {
		h.Status = HealthClosed
	}
	for _, j := range t.jobs {
		if !j.Status().IsTerminal() {
			h.Running++
		}
	}
	return h, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
