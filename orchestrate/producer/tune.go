package producer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
)

type tuned struct {
	Producer
	contract Contract
}

func (t *tuned) Contract() Contract {
	return t.contract
}

func (t *tuned) Attempt(ctx context.Context, in Input) (document.Update, error) {
	return t.Producer.Attempt(ctx, in)
}

// Tune applies configuration overrides to a producer's contract and, when a
// rate limit is configured, wraps it with RateLimited. Keys, edges and the
// producer's name are never changed by configuration.
func Tune(p Producer, cfg config.ProducerConfig) Producer {
	c := p.Contract()
	c.Critical = cfg.CriticalOr(c.Critical)
	c.Retryable = cfg.RetryableOr(c.Retryable)
	if cfg.MaxAttempts > 0 {
		c.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout.Std()
	}

	var out Producer = &tuned{Producer: p, contract: c}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		out = RateLimited(out, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return out
}

// TuneAll applies per-producer configuration by name.
func TuneAll(producers []Producer, cfgs map[string]config.ProducerConfig) []Producer {
	out := make([]Producer, len(producers))
	for i, p := range producers {
		if cfg, ok := cfgs[p.Contract().Name]; ok {
			out[i] = Tune(p, cfg)
			continue
		}
		out[i] = p
	}
	return out
}
