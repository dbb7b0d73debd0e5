// Package rpc exposes the tracker as a Connect JobService.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code. Every procedure is unary and accepts the Connect, gRPC and
// gRPC-Web protocols.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
)

const (
	// ServiceName is the fully-qualified name of the job service.
	ServiceName = "quoteflow.v1.JobService"

	SubmitProcedure = "/" + ServiceName + "/Submit"
	StatusProcedure = "/" + ServiceName + "/Status"
	ResultProcedure = "/" + ServiceName + "/Result"
	CancelProcedure = "/" + ServiceName + "/Cancel"
	ListProcedure   = "/" + ServiceName + "/List"

	ProducersProcedure = "/" + ServiceName + "/Producers"
	ProducerProcedure  = "/" + ServiceName + "/Producer"
	HealthProcedure    = "/" + ServiceName + "/Health"
)

var (
	ErrNoID       = errors.New("no job id provided")
	ErrNoProducer = errors.New("no producer name provided")
)

// Tracker is the job surface the service needs.
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

type service struct {
	t Tracker
}

// NewHandler builds the JobService handler. It returns the path prefix to
// mount the handler on.
func NewHandler(t Tracker, opts ...connect.HandlerOption) (string, http.Handler) {
	s := &service{t: t}

	mux := http.NewServeMux()
	mux.Handle(SubmitProcedure, connect.NewUnaryHandler(SubmitProcedure, s.submit, opts...))
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, s.status, opts...))
	mux.Handle(ResultProcedure, connect.NewUnaryHandler(ResultProcedure, s.result, opts...))
	mux.Handle(CancelProcedure, connect.NewUnaryHandler(CancelProcedure, s.cancel, opts...))
	mux.Handle(ListProcedure, connect.NewUnaryHandler(ListProcedure, s.list, opts...))
	mux.Handle(ProducersProcedure, connect.NewUnaryHandler(ProducersProcedure, s.producers, opts...))
	mux.Handle(ProducerProcedure, connect.NewUnaryHandler(ProducerProcedure, s.producer, opts...))
	mux.Handle(HealthProcedure, connect.NewUnaryHandler(HealthProcedure, s.health, opts...))

	return "/" + ServiceName + "/", mux
}

func (s *service) submit(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := s.t.Submit(ctx, req.Msg.AsMap())
	if err != nil {
		return nil, connectError(err)
	}
	return respond(map[string]any{"id": id})
}

func (s *service) status(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := jobID(req.Msg)
	if err != nil {
		return nil, err
	}

	snap, err := s.t.Status(ctx, id)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(tracker.NewReport(snap))
}

func (s *service) result(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := jobID(req.Msg)
	if err != nil {
		return nil, err
	}

	doc, err := s.t.Result(ctx, id)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(map[string]any{"id": id, "document": doc})
}

func (s *service) cancel(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := jobID(req.Msg)
	if err != nil {
		return nil, err
	}

	if err := s.t.Cancel(ctx, id); err != nil {
		return nil, connectError(err)
	}
	return respond(map[string]any{"id": id, "cancel_requested": true})
}

func (s *service) list(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	jobs, err := s.t.List(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(map[string]any{"jobs": jobs})
}

func (s *service) producers(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	infos, err := s.t.Producers(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(map[string]any{"producers": infos})
}

func (s *service) producer(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	name := field(req.Msg, "name")
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrNoProducer)
	}

	info, err := s.t.Producer(ctx, name)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(info)
}

// health answers with the tracker's state. A closed tracker is reported in
// the status field rather than as an error.
func (s *service) health(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	h, err := s.t.Health(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return respond(h)
}

func jobID(msg *structpb.Struct) (string, error) {
	if id := field(msg, "id"); id != "" {
		return id, nil
	}
	return "", connect.NewError(connect.CodeInvalidArgument, ErrNoID)
}

func field(msg *structpb.Struct, key string) string {
	if v, ok := msg.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func respond(v any) (*connect.Response[structpb.Struct], error) {
	msg, err := toStruct(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
	return connect.NewResponse(msg), nil
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(msg *structpb.Struct, v any) error {
	data, err := msg.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Code maps tracker errors to Connect codes.
func Code(err error) connect.Code {
	switch {
	case errors.Is(err, fault.ErrJobNotFound), errors.Is(err, producer.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, fault.ErrNotReady):
		return connect.CodeFailedPrecondition
	case errors.Is(err, fault.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, tracker.ErrClosed):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

func connectError(err error) *connect.Error {
	code := Code(err)
	switch code {
	case connect.CodeInternal:
		return connect.NewError(code, errors.New("internal error"))
	case connect.CodeInvalidArgument:
		_, msg := fault.Safe(err)
		return connect.NewError(code, errors.New(msg))
	default:
		return connect.NewError(code, err)
	}
}

// sentinel maps a Connect code back to the tracker error it came from.
// notFound is the sentinel the called procedure reports for a missing item.
func sentinel(err, notFound error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}

	switch cerr.Code() {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %s", notFound, cerr.Message())
	case connect.CodeFailedPrecondition:
		return fmt.Errorf("%w: %s", fault.ErrNotReady, cerr.Message())
	case connect.CodeInvalidArgument:
		return fault.Validation("%s", cerr.Message())
	case connect.CodeUnavailable:
		return fmt.Errorf("%w: %s", tracker.ErrClosed, cerr.Message())
	default:
		return err
	}
}
