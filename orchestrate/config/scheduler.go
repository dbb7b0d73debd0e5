package config

// SchedulerConfig defines how a job's producer graph is executed.
//
// Worker Pool Sizing:
//   - MaxWorkers = 0: Auto-detect min(NumCPU*2, WorkerCap, number of producers)
//   - MaxWorkers > 0: Use exact worker count
//
// JobTimeout cancels a job that runs longer than the given duration (0 =
// no limit). Checkpoint saves the job after every merge in addition to the
// terminal save.
//
// Example YAML:
//
//	scheduler:
//	  name: quotation
//	  observer: slog
//	  max_workers: 4
//	  job_timeout: 2m
//	  checkpoint: true
//	  producers:
//	    pricing:
//	      max_attempts: 3
//	      timeout: 10s
type SchedulerConfig struct {
	Name       string                    `json:"name" yaml:"name"`
	Observer   string                    `json:"observer" yaml:"observer"`
	MaxWorkers int                       `json:"max_workers" yaml:"max_workers"`
	WorkerCap  int                       `json:"worker_cap" yaml:"worker_cap"`
	JobTimeout Duration                  `json:"job_timeout" yaml:"job_timeout"`
	Checkpoint bool                      `json:"checkpoint" yaml:"checkpoint"`
	Retry      RetryConfig               `json:"retry" yaml:"retry"`
	Producers  map[string]ProducerConfig `json:"producers,omitempty" yaml:"producers,omitempty"`
}

// DefaultSchedulerConfig returns defaults for scheduler execution.
//
// Default values:
//   - Observer: "slog"
//   - MaxWorkers: 0 (auto-detect)
//   - WorkerCap: 8 (bounds concurrent calls to external backends)
//   - JobTimeout: 0 (no limit)
//   - Retry: DefaultRetryConfig()
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Name:      "quoteflow",
		Observer:  "slog",
		WorkerCap: 8,
		Retry:     DefaultRetryConfig(),
	}
}

func (c *SchedulerConfig) Merge(source *SchedulerConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.JobTimeout > 0 {
		c.JobTimeout = source.JobTimeout
	}

	if source.Checkpoint {
		c.Checkpoint = source.Checkpoint
	}

	c.Retry.Merge(&source.Retry)

	if len(source.Producers) > 0 {
		if c.Producers == nil {
			c.Producers = make(map[string]ProducerConfig, len(source.Producers))
		}
		for name, src := range source.Producers {
			merged := c.Producers[name]
			merged.Merge(&src)
			c.Producers[name] = merged
		}
	}
}
