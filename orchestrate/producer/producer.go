// Package producer defines the capability every document producer implements
// and the registry that validates producer contracts against each other.
package producer

import (
	"context"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
)

// Input is what a producer receives for one attempt.
type Input struct {
	// JobID identifies the job the attempt belongs to.
	JobID string

	// Attempt is 1 for the first attempt and increases with each retry.
	Attempt int

	// Snapshot is the document as of the moment the producer was launched.
	Snapshot document.Snapshot

	// Payload is the job's original input. It must not be modified.
	Payload map[string]any
}

// Producer contributes a disjoint part of the document.
//
// Attempt returns an Update restricted to the declared write-set or an error.
// Errors should be *fault.Failure values so the scheduler can classify them;
// anything else is treated as a ProducerExecutionError.
type Producer interface {
	Contract() Contract
	Attempt(ctx context.Context, in Input) (document.Update, error)
}

// Func is the signature of a producer attempt.
type Func func(ctx context.Context, in Input) (document.Update, error)

type funcProducer struct {
	contract Contract
	fn       Func
}

// New creates a Producer from a contract and an attempt function.
//
// Example:
//
//	footer := producer.New(producer.Contract{
//	    Name:   "footer",
//	    Writes: []string{"footer"},
//	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
//	    return document.Update{"footer": "Thank you for your business."}, nil
//	})
func New(contract Contract, fn Func) Producer {
	return &funcProducer{contract: contract, fn: fn}
}

func (p *funcProducer) Contract() Contract {
	return p.contract
}

func (p *funcProducer) Attempt(ctx context.Context, in Input) (document.Update, error) {
	return p.fn(ctx, in)
}
