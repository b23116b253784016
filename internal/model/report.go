package model

import "time"

// JobState tracks a job through the pipeline.
type JobState string

const (
	JobPending  JobState = "PENDING"
	JobFetching JobState = "FETCHING"
	JobBatching JobState = "BATCHING"
	JobWriting  JobState = "WRITING"
	JobComplete JobState = "COMPLETE"
	JobFailed   JobState = "FAILED"
)

// BatchResult reports the outcome of applying one batch of upsert operations.
// Matched-but-unchanged documents count as updated.
type BatchResult struct {
	Inserted int64
	Updated  int64
	Failed   int64
	Failures []OpFailure
}

// Merge folds another batch result into this one.
func (r *BatchResult) Merge(other *BatchResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// JobReport is the per-resource ingestion result. Per-operation failures are
// listed, never silently dropped; FatalError is set only when the job as a
// whole could not finish (source or store unreachable).
type JobReport struct {
	Resource   string        `json:"resource"`
	State      JobState      `json:"state"`
	Fetched    int64         `json:"fetched"`
	Inserted   int64         `json:"inserted"`
	Updated    int64         `json:"updated"`
	Failed     int64         `json:"failed"`
	Failures   []OpFailure   `json:"failures,omitempty"`
	FatalError string        `json:"fatal_error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// RunReport aggregates all job reports from one pipeline run.
type RunReport struct {
	RunID    string        `json:"run_id"`
	Jobs     []JobReport   `json:"jobs"`
	Duration time.Duration `json:"duration"`
}

// HasFailedJob reports whether any job ended in the FAILED state.
func (r *RunReport) HasFailedJob() bool {
	for _, j := range r.Jobs {
		if j.State == JobFailed {
			return true
		}
	}
	return false
}

// HasOpFailures reports whether any job recorded per-operation failures.
func (r *RunReport) HasOpFailures() bool {
	for _, j := range r.Jobs {
		if j.Failed > 0 {
			return true
		}
	}
	return false
}

// FailedJobs returns the resource names of jobs that ended FAILED.
func (r *RunReport) FailedJobs() []string {
	var out []string
	for _, j := range r.Jobs {
		if j.State == JobFailed {
			out = append(out, j.Resource)
		}
	}
	return out
}
