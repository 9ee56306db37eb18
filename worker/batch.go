package worker

import (
	"context"
	"sync"
	"time"
)

// Batch processes a fixed slice of jobs and returns results in input
// order, unlike the pool's channel-based delivery.
type Batch struct {
	processor Processor
	workers   int
}

// NewBatch creates a batch runner. If workers <= 0 the jobs run
// sequentially.
func NewBatch(processor Processor, workers int) *Batch {
	return &Batch{processor: processor, workers: workers}
}

// Run processes every job and returns an aggregate result whose
// Results slice is index-aligned with jobs.
func (b *Batch) Run(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()

	var results []*JobResult
	if b.workers > 1 && len(jobs) > 1 {
		results = b.runParallel(ctx, jobs)
	} else {
		results = b.runSequential(ctx, jobs)
	}

	br := &BatchResult{
		Results:       results,
		TotalJobs:     len(jobs),
		TotalDuration: time.Since(start).Nanoseconds(),
	}
	for _, r := range results {
		br.CompletedJobs++
		if r.Error != nil {
			br.FailedJobs++
		}
	}
	return br
}

func (b *Batch) runSequential(ctx context.Context, jobs []Job) []*JobResult {
	results := make([]*JobResult, len(jobs))
	for i, job := range jobs {
		results[i] = b.runJob(ctx, job)
	}
	return results
}

// runParallel fans jobs out over a bounded number of goroutines.
// Results land in indexed slots, so output order matches input order
// regardless of completion order.
func (b *Batch) runParallel(ctx context.Context, jobs []Job) []*JobResult {
	results := make([]*JobResult, len(jobs))
	sem := make(chan struct{}, b.workers)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(slot int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[slot] = b.runJob(ctx, job)
		}(i, job)
	}
	wg.Wait()
	return results
}

func (b *Batch) runJob(ctx context.Context, job Job) *JobResult {
	start := time.Now()

	if b.processor == nil {
		return &JobResult{
			ID:       job.ID,
			Error:    ErrNoProcessor,
			Duration: time.Since(start).Nanoseconds(),
		}
	}

	now := job.Now
	if now.IsZero() {
		now = start.UTC()
	}

	result, err := b.processor.ProcessBytes(ctx, job.Bundle, now)
	if err != nil || result == nil {
		return &JobResult{
			ID:       job.ID,
			Error:    err,
			Duration: time.Since(start).Nanoseconds(),
		}
	}

	result.ID = job.ID
	result.Duration = time.Since(start).Nanoseconds()
	return result
}
