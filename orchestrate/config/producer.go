package config

// ProducerConfig tunes the contract of one registered producer without
// changing its code. Zero values keep what the producer declares.
type ProducerConfig struct {
	MaxAttempts int      `json:"max_attempts" yaml:"max_attempts"`
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	Critical    *bool    `json:"critical" yaml:"critical"`
	Retryable   *bool    `json:"retryable" yaml:"retryable"`

	// RateLimit caps attempts per second (0 = unlimited). Burst defaults to 1.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `json:"burst" yaml:"burst"`
}

// CriticalOr returns the configured criticality, or fallback when unset.
func (c *ProducerConfig) CriticalOr(fallback bool) bool {
	if c.Critical == nil {
		return fallback
	}
	return *c.Critical
}

// RetryableOr returns the configured retry flag, or fallback when unset.
func (c *ProducerConfig) RetryableOr(fallback bool) bool {
	if c.Retryable == nil {
		return fallback
	}
	return *c.Retryable
}

func (c *ProducerConfig) Merge(source *ProducerConfig) {
	if source.MaxAttempts > 0 {
		c.MaxAttempts = source.MaxAttempts
	}

	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}

	if source.Critical != nil {
		c.Critical = source.Critical
	}

	if source.Retryable != nil {
		c.Retryable = source.Retryable
	}

	if source.RateLimit > 0 {
		c.RateLimit = source.RateLimit
	}

	if source.Burst > 0 {
		c.Burst = source.Burst
	}
}
