package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pheld/f1load/internal/model"
)

// Source is the narrow view of the record source the pipeline consumes. One
// Fetch call performs a complete page cycle for an endpoint.
type Source interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) ([]model.Record, error)
}

// Gateway applies a batch of upsert operations to one collection.
type Gateway interface {
	Apply(ctx context.Context, collection string, ops []model.UpsertOp) (*model.BatchResult, error)
}

// JobError wraps a job-fatal error with the pipeline stage where it occurred.
type JobError struct {
	Resource string
	Stage    string
	Err      error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Resource, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Orchestrator wires Source → batcher → Gateway for a list of resource jobs.
// It holds no state between runs; all durability lives in the store.
type Orchestrator struct {
	src Source
	gw  Gateway
	log zerolog.Logger
}

func NewOrchestrator(src Source, gw Gateway, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{src: src, gw: gw, log: log}
}

// Run executes every job and returns the aggregate report. Jobs are
// independent: a fatal error in one is captured in its report and never
// stops the others. concurrency <= 1 runs them sequentially; anything higher
// bounds the worker pool. Run itself never fails — the report carries all
// outcomes.
func (o *Orchestrator) Run(ctx context.Context, jobs []model.ResourceDescriptor, concurrency int) *model.RunReport {
	start := time.Now()
	report := &model.RunReport{
		RunID: uuid.NewString(),
		Jobs:  make([]model.JobReport, len(jobs)),
	}

	if concurrency < 1 {
		concurrency = 1
	}

	o.log.Info().
		Str("run_id", report.RunID).
		Int("jobs", len(jobs)).
		Int("concurrency", concurrency).
		Msg("pipeline run starting")

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			report.Jobs[i] = o.RunJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)

	o.log.Info().
		Str("run_id", report.RunID).
		Strs("failed_jobs", report.FailedJobs()).
		Str("duration", report.Duration.String()).
		Msg("pipeline run complete")

	return report
}

// RunJob drives one resource through FETCHING → BATCHING → WRITING. Partial
// per-operation failures leave the job COMPLETE; only an unreachable source
// or store marks it FAILED.
func (o *Orchestrator) RunJob(ctx context.Context, job model.ResourceDescriptor) model.JobReport {
	start := time.Now()
	rep := model.JobReport{Resource: job.Resource, State: model.JobPending}
	log := o.log.With().Str("resource", job.Resource).Logger()

	rep.State = model.JobFetching
	log.Info().Str("endpoint", job.Endpoint).Msg("fetching records")

	records, err := o.src.Fetch(ctx, job.Endpoint, job.Filter)
	if err != nil {
		return o.failJob(rep, "fetch", err, start)
	}
	rep.Fetched = int64(len(records))

	rep.State = model.JobBatching
	ops, rejected := BuildBatch(records, job)
	for _, f := range rejected {
		log.Warn().Str("identity", f.Identity).Str("reason", f.Reason).Msg("record rejected")
	}
	rep.Failed += int64(len(rejected))
	rep.Failures = append(rep.Failures, rejected...)

	// Empty batch: nothing to write, and the store must not be contacted.
	// Zero fetched is benign (the filter matched nothing), not a fault.
	if len(ops) == 0 {
		rep.State = model.JobComplete
		rep.Duration = time.Since(start)
		log.Info().Int64("fetched", rep.Fetched).Msg("no operations to apply")
		return rep
	}

	rep.State = model.JobWriting
	res, err := o.gw.Apply(ctx, job.Resource, ops)
	if res != nil {
		rep.Inserted += res.Inserted
		rep.Updated += res.Updated
		rep.Failed += res.Failed
		rep.Failures = append(rep.Failures, res.Failures...)
	}
	if err != nil {
		return o.failJob(rep, "write", err, start)
	}

	rep.State = model.JobComplete
	rep.Duration = time.Since(start)

	log.Info().
		Int64("fetched", rep.Fetched).
		Int64("inserted", rep.Inserted).
		Int64("updated", rep.Updated).
		Int64("failed", rep.Failed).
		Str("duration", rep.Duration.String()).
		Msg("job complete")

	return rep
}

func (o *Orchestrator) failJob(rep model.JobReport, stage string, err error, start time.Time) model.JobReport {
	jerr := &JobError{Resource: rep.Resource, Stage: stage, Err: err}
	rep.State = model.JobFailed
	rep.FatalError = jerr.Error()
	rep.Duration = time.Since(start)

	o.log.Error().
		Str("resource", rep.Resource).
		Str("stage", stage).
		Err(err).
		Msg("job failed")

	return rep
}
