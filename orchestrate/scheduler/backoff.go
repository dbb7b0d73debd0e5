package scheduler

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
)

// Backoff returns the delay before the attempt that follows attempt.
//
// The delay is InitialBackoff * Multiplier^(attempt-1), capped at MaxBackoff,
// then spread by +/- Jitter of itself. A non-positive result means no delay.
func Backoff(cfg config.RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := float64(cfg.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))

	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter > 0 {
		backoff += backoff * cfg.Jitter * (rand.Float64()*2 - 1)
	}

	if backoff <= 0 {
		return 0
	}
	return time.Duration(backoff)
}
