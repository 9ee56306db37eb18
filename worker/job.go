package worker

import (
	"time"

	"github.com/google/uuid"

	cr "github.com/gofhir/clinreview"
)

// Job represents one bundle to process.
type Job struct {
	// ID is a unique identifier for this job.
	ID string

	// Bundle is the FHIR bundle to process (as JSON bytes).
	Bundle []byte

	// Now is the reference time for the run. A zero value means the
	// worker uses the wall clock at processing time.
	Now time.Time
}

// NewJob creates a job with a generated ID.
func NewJob(bundle []byte, now time.Time) Job {
	return Job{
		ID:     uuid.NewString(),
		Bundle: bundle,
		Now:    now,
	}
}

// JobResult represents the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Selection is the relevant subset extracted from the bundle.
	Selection *cr.SelectionResult

	// Items are the derived review items, sorted.
	Items []cr.ReviewItem

	// Error contains any error that occurred during processing.
	Error error

	// Duration is the time taken to process (in nanoseconds).
	Duration int64
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	// Results contains all job results.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs completed (including errors).
	CompletedJobs int

	// FailedJobs is the number of jobs that failed with an error.
	FailedJobs int

	// TotalDuration is the total processing time across jobs (in
	// nanoseconds).
	TotalDuration int64
}

// HasFailures reports whether any job failed.
func (br *BatchResult) HasFailures() bool {
	return br.FailedJobs > 0
}

// ItemCount returns the total number of review items across all
// successful results.
func (br *BatchResult) ItemCount() int {
	count := 0
	for _, r := range br.Results {
		count += len(r.Items)
	}
	return count
}
