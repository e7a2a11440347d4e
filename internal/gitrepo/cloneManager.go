package gitrepo

import (
	"context"

	"glclone/internal/counter"
	"glclone/internal/destination"
	"glclone/internal/gitlab"
	"glclone/internal/pipe"
)

// Job is one project on its way to a worker. Err is set when no destination
// could be resolved for it.
type Job struct {
	Destination destination.Destination
	Err         error
}

// TransferCounters are updated while transfers run. Nil fields are ignored.
type TransferCounters struct {
	InFlight    *counter.Gauge
	Transferred *counter.Counter
	Skipped     *counter.Counter
	Failed      *counter.Counter
}

func inc(c *counter.Counter) {
	if c != nil {
		c.Inc()
	}
}

func (c TransferCounters) record(outcome Outcome) {
	switch outcome.Kind {
	case Transferred:
		inc(c.Transferred)
	case Skipped:
		inc(c.Skipped)
	default:
		inc(c.Failed)
	}
}

// ResolveDestinations resolves projects in the order they arrive, so that the
// first listed project wins a local path collision.
func ResolveDestinations(ctx context.Context, projects <-chan gitlab.Project, resolver *destination.Resolver) <-chan Job {
	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		for project := range projects {
			dest, err := resolver.Resolve(project)
			select {
			case jobs <- Job{Destination: dest, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return jobs
}

// TransferRepositories runs worker.Transfer for every job with at most
// concurrencyLimit transfers at once, and hands each outcome to sink as soon
// as it completes. It returns once every started transfer has finished.
func TransferRepositories(ctx context.Context, jobs <-chan Job, concurrencyLimit int, worker *Worker, counters TransferCounters, sink func(Outcome)) {
	pipe.RunBounded(ctx, jobs, concurrencyLimit, func(job Job) Outcome {
		if job.Err != nil {
			outcome := Outcome{
				Project: job.Destination.Project.PathWithNamespace,
				Kind:    Failed,
				Stage:   StageResolve,
				Err:     job.Err,
			}
			counters.record(outcome)
			return outcome
		}

		if counters.InFlight != nil {
			counters.InFlight.Inc()
			defer counters.InFlight.Dec()
		}
		outcome := worker.Transfer(ctx, job.Destination)
		counters.record(outcome)
		return outcome
	}, sink)
}
