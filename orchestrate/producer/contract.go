package producer

import (
	"fmt"
	"slices"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

// Contract is the metadata a producer declares about itself.
//
// Reads and Writes drive both dependency derivation and merge checks. After
// names producers that must finish first even when no key links them.
// Overrides names a producer whose keys this one may replace; the override
// always runs after the producer it overrides.
type Contract struct {
	Name        string        `json:"name" yaml:"name"`
	Reads       []string      `json:"reads,omitempty" yaml:"reads,omitempty"`
	Writes      []string      `json:"writes,omitempty" yaml:"writes,omitempty"`
	After       []string      `json:"after,omitempty" yaml:"after,omitempty"`
	Overrides   string        `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Critical    bool          `json:"critical" yaml:"critical"`
	Retryable   bool          `json:"retryable" yaml:"retryable"`
	MaxAttempts int           `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ReadSet returns the declared reads as a KeySet.
func (c Contract) ReadSet() document.KeySet {
	return document.NewKeySet(c.Reads...)
}

// WriteSet returns the declared writes as a KeySet.
func (c Contract) WriteSet() document.KeySet {
	return document.NewKeySet(c.Writes...)
}

// IsOverride reports whether the producer is an explicit override.
func (c Contract) IsOverride() bool {
	return c.Overrides != ""
}

// Attempts returns the number of attempts the scheduler may make. Producers
// that are not retryable get exactly one.
func (c Contract) Attempts() int {
	if !c.Retryable || c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// Normalize returns a copy with sorted, de-duplicated key lists.
func (c Contract) Normalize() Contract {
	c.Reads = dedupe(c.Reads)
	c.Writes = dedupe(c.Writes)
	c.After = dedupe(c.After)
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	return c
}

// Validate checks the contract in isolation.
func (c Contract) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if c.Name == document.InputWriter {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidContract, c.Name)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: %s: max attempts %d", ErrInvalidContract, c.Name, c.MaxAttempts)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s: negative timeout", ErrInvalidContract, c.Name)
	}
	if c.Overrides == c.Name {
		return fmt.Errorf("%w: %s overrides itself", ErrInvalidContract, c.Name)
	}
	if slices.Contains(c.After, c.Name) {
		return fmt.Errorf("%w: %s runs after itself", fault.ErrCyclicDependency, c.Name)
	}
	if shared := c.ReadSet().Intersect(c.WriteSet()); len(shared) > 0 {
		return fmt.Errorf("%w: %s reads its own writes %v", fault.ErrCyclicDependency, c.Name, shared)
	}
	return nil
}

func dedupe(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
