package config

// StoreConfig selects the persistence backend for jobs.
//
// Kinds:
//   - "memory": in-process map (default)
//   - "file": one JSON file per job under Path
//   - "diskv": diskv store under Path
//   - "mysql": MySQL database at DSN
//   - "redis": Redis server at Addr, keys namespaced by Prefix
type StoreConfig struct {
	Kind   string   `json:"kind" yaml:"kind"`
	Path   string   `json:"path,omitempty" yaml:"path,omitempty"`
	DSN    string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Addr   string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	TTL    Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// DefaultStoreConfig returns the in-memory store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Kind:   "memory",
		Prefix: "quoteflow",
	}
}

func (c *StoreConfig) Merge(source *StoreConfig) {
	if source.Kind != "" {
		c.Kind = source.Kind
	}

	if source.Path != "" {
		c.Path = source.Path
	}

	if source.DSN != "" {
		c.DSN = source.DSN
	}

	if source.Addr != "" {
		c.Addr = source.Addr
	}

	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}

	if source.TTL > 0 {
		c.TTL = source.TTL
	}
}

// TrackerConfig is the top-level configuration of a quoteflow process.
//
// InputKeys are the keys every submitted input must carry; they satisfy
// producer reads during registry validation. InputSchema, when set, is a JSON
// Schema document every submitted input is validated against.
//
// Example YAML:
//
//	observer: slog
//	input_keys: [client_name]
//	input_schema:
//	  type: object
//	  required: [client_name]
//	store:
//	  kind: diskv
//	  path: ./data
//	scheduler:
//	  max_workers: 4
type TrackerConfig struct {
	Observer    string          `json:"observer" yaml:"observer"`
	InputKeys   []string        `json:"input_keys,omitempty" yaml:"input_keys,omitempty"`
	InputSchema map[string]any  `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	Store       StoreConfig     `json:"store" yaml:"store"`
	Scheduler   SchedulerConfig `json:"scheduler" yaml:"scheduler"`
}

// DefaultTrackerConfig returns defaults for the tracker and everything it
// constructs.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Observer:  "slog",
		Store:     DefaultStoreConfig(),
		Scheduler: DefaultSchedulerConfig(),
	}
}

func (c *TrackerConfig) Merge(source *TrackerConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if len(source.InputKeys) > 0 {
		c.InputKeys = source.InputKeys
	}

	if len(source.InputSchema) > 0 {
		c.InputSchema = source.InputSchema
	}

	c.Store.Merge(&source.Store)
	c.Scheduler.Merge(&source.Scheduler)
}
