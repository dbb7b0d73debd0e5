package config

import "time"

// RetryConfig controls the backoff between attempts of retryable producers.
//
// The delay before retry n (n >= 1) is InitialBackoff * Multiplier^(n-1),
// capped at MaxBackoff, with up to Jitter (a fraction) of random spread.
//
// Example YAML:
//
//	retry:
//	  initial_backoff: 200ms
//	  max_backoff: 10s
//	  multiplier: 2
//	  jitter: 0.1
type RetryConfig struct {
	InitialBackoff Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     Duration `json:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64  `json:"multiplier" yaml:"multiplier"`
	Jitter         float64  `json:"jitter" yaml:"jitter"`
}

// DefaultRetryConfig returns doubling backoff from 100ms capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff: Duration(100 * time.Millisecond),
		MaxBackoff:     Duration(5 * time.Second),
		Multiplier:     2.0,
		Jitter:         0,
	}
}

func (c *RetryConfig) Merge(source *RetryConfig) {
	if source.InitialBackoff > 0 {
		c.InitialBackoff = source.InitialBackoff
	}

	if source.MaxBackoff > 0 {
		c.MaxBackoff = source.MaxBackoff
	}

	if source.Multiplier > 0 {
		c.Multiplier = source.Multiplier
	}

	if source.Jitter > 0 {
		c.Jitter = source.Jitter
	}
}
