// Package config provides configuration structures for the scheduler, the job
// tracker and its stores.
//
// Configuration only exists during initialization. Constructors such as
// scheduler.New and tracker.New resolve names (observers, stores) through
// registries and copy what they need; nothing here persists into runtime
// components.
//
// # Loading
//
// Load reads a YAML (.yaml, .yml) or JSON file and merges it over
// DefaultTrackerConfig:
//
//	cfg, err := config.Load("quoteflow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := tracker.New(*cfg, registry)
//
// # Configuration Merging
//
// Every type has a DefaultX constructor and a Merge method so loaded configs
// layer over defaults:
//
//   - Strings: Merge if source is non-empty
//   - Integers and floats: Merge if source is greater than zero
//   - Durations: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil
//   - Slices and maps: Merge if source is non-empty
//   - Nested configs: Recursive merge
//
// # Boolean Fields with Non-False Defaults
//
// Booleans whose default depends on something other than the config (for
// example a producer's own contract) use a pointer field and an "Or" accessor
// taking the fallback:
//
//	type ProducerConfig struct {
//	    Critical *bool `json:"critical"`
//	}
//
//	critical := cfg.CriticalOr(contract.Critical)
//
// Durations are written as Go duration strings ("250ms", "1m30s") in both
// YAML and JSON. JSON also accepts integer nanoseconds.
package config
