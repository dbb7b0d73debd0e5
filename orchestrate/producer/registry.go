package producer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
)

// Registry holds the producers of one pipeline together with their
// normalized contracts. Thread-safe for concurrent access.
//
// Register rejects overlapping write-sets at the time the second producer is
// added. Validate performs the checks that need the full set of producers and
// the job's input keys.
type Registry struct {
	mu        sync.RWMutex
	producers map[string]Producer
	contracts map[string]Contract
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		producers: make(map[string]Producer),
		contracts: make(map[string]Contract),
	}
}

// Register adds a producer.
//
// Returns ErrAlreadyRegistered for a duplicate name and an error wrapping
// fault.ErrWriteConflict when the producer's write-set overlaps a registered
// producer's and neither overrides the other.
func (r *Registry) Register(p Producer) error {
	if p == nil {
		return fmt.Errorf("%w: nil producer", ErrInvalidContract)
	}

	c := p.Contract().Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, c.Name)
	}

	if err := r.checkWrites(c); err != nil {
		return err
	}

	r.producers[c.Name] = p
	r.contracts[c.Name] = c
	return nil
}

// Replace swaps the producer registered under the same name, re-checking
// its write-set against every other producer.
func (r *Registry) Replace(p Producer) error {
	if p == nil {
		return fmt.Errorf("%w: nil producer", ErrInvalidContract)
	}

	c := p.Contract().Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[c.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, c.Name)
	}

	if err := r.checkWrites(c); err != nil {
		return err
	}

	r.producers[c.Name] = p
	r.contracts[c.Name] = c
	return nil
}

// Unregister removes a producer by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.producers, name)
	delete(r.contracts, name)
	return nil
}

// Get returns a producer and its normalized contract.
func (r *Registry) Get(name string) (Producer, Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.producers[name]
	if !exists {
		return nil, Contract{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, r.contracts[name], nil
}

// List returns the registered producer names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contracts returns the normalized contracts sorted by name.
func (r *Registry) Contracts() []Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contracts := make([]Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].Name < contracts[j].Name
	})
	return contracts
}

// Len returns the number of registered producers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.contracts)
}

// Validate checks the registry as a whole against the keys every job will
// supply as input.
//
// Every read must be written by another producer or be an input key
// (fault.ErrUnsatisfiableDependency), After and Overrides must name
// registered producers, and no producer may write an input key
// (fault.ErrWriteConflict). All problems are reported together.
func (r *Registry) Validate(inputKeys []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inputs := document.NewKeySet(inputKeys...)
	written := make(map[string][]string)
	for _, c := range r.contracts {
		for _, k := range c.Writes {
			written[k] = append(written[k], c.Name)
		}
	}

	var errs []error
	for _, name := range sortedNames(r.contracts) {
		c := r.contracts[name]

		for _, k := range c.Reads {
			if inputs.Has(k) || len(written[k]) > 0 {
				continue
			}
			errs = append(errs, fmt.Errorf("%w: %s reads %q which no producer writes and is not an input",
				fault.ErrUnsatisfiableDependency, c.Name, k))
		}

		for _, dep := range c.After {
			if _, ok := r.contracts[dep]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s runs after unknown producer %s",
					fault.ErrUnsatisfiableDependency, c.Name, dep))
			}
		}

		if c.IsOverride() {
			if _, ok := r.contracts[c.Overrides]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s overrides unknown producer %s",
					fault.ErrUnsatisfiableDependency, c.Name, c.Overrides))
			}
		}

		if shared := c.WriteSet().Intersect(inputs); len(shared) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s writes input keys %v",
				fault.ErrWriteConflict, c.Name, shared))
		}
	}

	return errors.Join(errs...)
}

// checkWrites must be called with r.mu held.
func (r *Registry) checkWrites(c Contract) error {
	candidate := c.WriteSet()
	for _, name := range sortedNames(r.contracts) {
		if name == c.Name {
			continue
		}
		other := r.contracts[name]
		shared := candidate.Intersect(other.WriteSet())
		if len(shared) == 0 {
			continue
		}
		if r.precedes(c, other.Name) || r.precedes(other, c.Name) {
			continue
		}
		return fmt.Errorf("%w: %s and %s both write %v without an override",
			fault.ErrWriteConflict, c.Name, other.Name, shared)
	}
	return nil
}

// precedes reports whether c overrides target directly or through a chain of
// registered overrides. Must be called with r.mu held.
func (r *Registry) precedes(c Contract, target string) bool {
	seen := map[string]bool{c.Name: true}
	for next := c.Overrides; next != ""; {
		if next == target {
			return true
		}
		if seen[next] {
			return false
		}
		seen[next] = true

		parent, ok := r.contracts[next]
		if !ok {
			return false
		}
		next = parent.Overrides
	}
	return false
}

func sortedNames(contracts map[string]Contract) []string {
	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
