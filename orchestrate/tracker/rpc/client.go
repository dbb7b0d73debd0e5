package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
)

// Client calls a remote JobService. Errors carry the same sentinels the
// tracker returns, so errors.Is(err, fault.ErrNotReady) works across the
// wire.
type Client struct {
	submit *connect.Client[structpb.Struct, structpb.Struct]
	status *connect.Client[structpb.Struct, structpb.Struct]
	result *connect.Client[structpb.Struct, structpb.Struct]
	cancel *connect.Client[structpb.Struct, structpb.Struct]
	list   *connect.Client[structpb.Struct, structpb.Struct]

	producers *connect.Client[structpb.Struct, structpb.Struct]
	producer  *connect.Client[structpb.Struct, structpb.Struct]
	health    *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		submit: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SubmitProcedure, opts...),
		status: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+StatusProcedure, opts...),
		result: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ResultProcedure, opts...),
		cancel: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CancelProcedure, opts...),
		list:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListProcedure, opts...),

		producers: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ProducersProcedure, opts...),
		producer:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ProducerProcedure, opts...),
		health:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+HealthProcedure, opts...),
	}
}

func call(ctx context.Context, c *connect.Client[structpb.Struct, structpb.Struct], req map[string]any, out any) error {
	return callFor(ctx, c, fault.ErrJobNotFound, req, out)
}

func callFor(ctx context.Context, c *connect.Client[structpb.Struct, structpb.Struct], notFound error, req map[string]any, out any) error {
	msg, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return sentinel(err, notFound)
	}

	if err := fromStruct(resp.Msg, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Submit submits a job and returns its id.
func (c *Client) Submit(ctx context.Context, input map[string]any) (string, error) {
	normalized, err := toStruct(input)
	if err != nil {
		return "", fmt.Errorf("encode input: %w", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := call(ctx, c.submit, normalized.AsMap(), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Status returns the job's status report.
func (c *Client) Status(ctx context.Context, id string) (tracker.Report, error) {
	var out tracker.Report
	if err := call(ctx, c.status, map[string]any{"id": id}, &out); err != nil {
		return tracker.Report{}, err
	}
	return out, nil
}

// Result returns the final document of a finished job.
func (c *Client) Result(ctx context.Context, id string) (map[string]any, error) {
	var out struct {
		Document map[string]any `json:"document"`
	}
	if err := call(ctx, c.result, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.Document, nil
}

// Cancel requests cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	var out struct {
		Requested bool `json:"cancel_requested"`
	}
	return call(ctx, c.cancel, map[string]any{"id": id}, &out)
}

// List returns every known job.
func (c *Client) List(ctx context.Context) ([]tracker.Summary, error) {
	var out struct {
		Jobs []tracker.Summary `json:"jobs"`
	}
	if err := call(ctx, c.list, map[string]any{}, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Producers returns the effective producer contracts in execution order.
func (c *Client) Producers(ctx context.Context) ([]tracker.ProducerInfo, error) {
	var out struct {
		Producers []tracker.ProducerInfo `json:"producers"`
	}
	if err := call(ctx, c.producers, map[string]any{}, &out); err != nil {
		return nil, err
	}
	return out.Producers, nil
}

// Producer returns one producer's effective contract. An unknown name
// returns an error wrapping producer.ErrNotFound.
func (c *Client) Producer(ctx context.Context, name string) (tracker.ProducerInfo, error) {
	var out tracker.ProducerInfo
	if err := callFor(ctx, c.producer, producer.ErrNotFound, map[string]any{"name": name}, &out); err != nil {
		return tracker.ProducerInfo{}, err
	}
	return out, nil
}

// Health returns the remote tracker's health.
func (c *Client) Health(ctx context.Context) (tracker.Health, error) {
	var out tracker.Health
	if err := call(ctx, c.health, map[string]any{}, &out); err != nil {
		return tracker.Health{}, err
	}
	return out, nil
}
