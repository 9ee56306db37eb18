// Package worker provides a pool of goroutines for processing many
// bundles concurrently, plus a batch helper that preserves input order.
package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Processor is the interface the pool uses to process a bundle. It is
// kept minimal to avoid a dependency on the engine package; *engine.Engine
// satisfies it through a small adapter there.
type Processor interface {
	ProcessBytes(ctx context.Context, bundle []byte, now time.Time) (*JobResult, error)
}

// Pool manages a pool of worker goroutines for parallel processing.
type Pool struct {
	workers    int
	jobsChan   chan Job
	resultChan chan *JobResult
	processor  Processor
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	// mu serializes sends on jobsChan against its close, so a Submit
	// that passed the closed check cannot send on a closed channel.
	mu sync.RWMutex

	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool creates a worker pool with the specified number of workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool(processor Processor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan Job, workers*2),
		resultChan: make(chan *JobResult, workers*2),
		processor:  processor,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit submits a job to the pool. It blocks if the queue is full and
// returns false once the pool is closed.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// SubmitAsync submits a job without blocking. It returns false if the
// queue is full or the pool is closed.
func (p *Pool) SubmitAsync(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	default:
		return false
	}
}

// Results returns the channel for receiving job results.
func (p *Pool) Results() <-chan *JobResult {
	return p.resultChan
}

// Close shuts down the pool and waits for workers to finish, discarding
// any results not yet consumed. Use CloseAndWait to collect them.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}

	p.cancel()

	p.mu.Lock()
	close(p.jobsChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for range p.resultChan {
		}
		close(done)
	}()

	p.wg.Wait()
	close(p.resultChan)
	<-done
}

// CloseAndWait closes the pool and collects all pending results.
func (p *Pool) CloseAndWait() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}

	p.mu.Lock()
	close(p.jobsChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.resultChan)
		close(done)
	}()

	results := make([]*JobResult, 0)
	failed := 0
	for result := range p.resultChan {
		if result.Error != nil {
			failed++
		}
		results = append(results, result)
	}
	<-done

	return &BatchResult{
		Results:       results,
		TotalJobs:     int(p.jobsSubmitted.Load()),
		CompletedJobs: int(p.jobsCompleted.Load()),
		FailedJobs:    failed,
		TotalDuration: int64(p.totalDuration.Load()),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	AvgDuration   time.Duration
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		result := p.processJob(job)
		p.jobsCompleted.Add(1)
		p.totalDuration.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- result:
		}
	}
}

func (p *Pool) processJob(job Job) *JobResult {
	start := time.Now()

	if p.processor == nil {
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

	result, err := p.processor.ProcessBytes(p.ctx, job.Bundle, now)
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

func (p *Pool) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}

// ErrNoProcessor is returned when the pool has no processor configured.
var ErrNoProcessor = poolError("no processor configured")

type poolError string

func (e poolError) Error() string {
	return string(e)
}
