package producer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

type rateLimited struct {
	next    Producer
	limiter *rate.Limiter
}

// RateLimited wraps a producer so that every attempt first waits for a token
// from limiter. Share one limiter between producers that call the same
// backend to bound the combined request rate.
//
// A wait that cannot complete before the attempt's deadline fails as an
// ExternalServiceError so it stays eligible for retry.
func RateLimited(p Producer, limiter *rate.Limiter) Producer {
	return &rateLimited{next: p, limiter: limiter}
}

func (r *rateLimited) Contract() Contract {
	return r.next.Contract()
}

func (r *rateLimited) Attempt(ctx context.Context, in Input) (document.Update, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fault.External("rate limit wait", err)
	}
	return r.next.Attempt(ctx, in)
}
