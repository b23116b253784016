package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pheld/f1load/internal/model"
)

// RetryRunner layers a whole-job retry policy on top of an Orchestrator.
// The pipeline itself never retries; re-invoking a failed job is safe because
// every job is idempotent, so this wrapper simply runs the FAILED subset
// again and splices the fresh reports in.
//
// attempts < 1 defaults to 1 (no retries); delay 0 defaults to one second.
type RetryRunner struct {
	orch     *Orchestrator
	attempts int
	delay    time.Duration
	log      zerolog.Logger
}

func NewRetryRunner(orch *Orchestrator, attempts int, delay time.Duration, log zerolog.Logger) *RetryRunner {
	if attempts < 1 {
		attempts = 1
	}
	if delay == 0 {
		delay = time.Second
	}
	return &RetryRunner{orch: orch, attempts: attempts, delay: delay, log: log}
}

// Run executes the jobs, then re-runs any that ended FAILED until they
// succeed or attempts are exhausted. The returned report keeps the original
// run ID; its duration is the wall time across all attempts, measured from
// one clock so delays are never counted twice.
func (r *RetryRunner) Run(ctx context.Context, jobs []model.ResourceDescriptor, concurrency int) *model.RunReport {
	start := time.Now()
	report := r.orch.Run(ctx, jobs, concurrency)

	for attempt := 2; attempt <= r.attempts && report.HasFailedJob(); attempt++ {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			report.Duration = time.Since(start)
			return report
		}

		var retryJobs []model.ResourceDescriptor
		var slots []int
		for i, jr := range report.Jobs {
			if jr.State != model.JobFailed {
				continue
			}
			for _, job := range jobs {
				if job.Resource == jr.Resource {
					retryJobs = append(retryJobs, job)
					slots = append(slots, i)
					break
				}
			}
		}

		r.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", r.attempts).
			Strs("jobs", report.FailedJobs()).
			Msg("retrying failed jobs")

		again := r.orch.Run(ctx, retryJobs, concurrency)
		for j, slot := range slots {
			prev := report.Jobs[slot].Duration
			report.Jobs[slot] = again.Jobs[j]
			report.Jobs[slot].Duration += prev
		}
	}

	report.Duration = time.Since(start)
	return report
}
