// Package scheduler runs a job's producer DAG to a terminal status.
//
// A Scheduler is built once per registry. Build validates the registry
// against the job input keys and derives the dependency graph, so every
// registration-time defect (WriteConflict, CyclicDependency,
// UnsatisfiableDependency) is reported before any job can run.
//
// # Execution
//
// Run walks the graph as a frontier: every producer whose dependencies have
// all reached a terminal state is launched against the current document
// snapshot. Attempts run on a bounded worker pool; the scheduler itself only
// waits for the next completion, merges the returned update into the
// document and recomputes the frontier. Merges happen one at a time on the
// scheduler's own goroutine.
//
// # Failures
//
// A failed attempt is retried with capped exponential backoff when the
// producer is retryable, the failure kind allows it and attempts remain.
// When a critical producer fails, every transitive dependent is marked
// Skipped with a DependencyFailure record. Dependents of a non-critical
// failure still run against whatever keys exist.
//
// An update rejected by the document merge check is an orchestrator defect:
// the job stops launching producers and ends Failed with an
// InternalOrchestratorError entry.
//
// # Cancellation
//
// Cancellation is cooperative. Job.RequestCancel, cancelling the Run context
// and the per-job timeout all raise the same flag, which is observed before
// launching producers and between attempts. Attempts in flight run to
// completion, bounded only by their own timeout.
//
// Example:
//
//	sched, err := scheduler.New(config.DefaultSchedulerConfig(), registry, []string{"client_name"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	j := job.New(uuid.NewString(), map[string]any{"client_name": "ABC Corp"})
//	if err := sched.Run(ctx, j); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(j.Status())
package scheduler
