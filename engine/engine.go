// Package engine provides the main chart-review engine: a facade that
// parses a bundle, runs the selection pass, and derives review items in
// one call.
package engine

import (
	"context"
	"crypto/sha256"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/analyzer"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/cache"
	"github.com/gofhir/clinreview/selector"
	"github.com/gofhir/clinreview/tables"
	"github.com/gofhir/clinreview/worker"
)

// Report is the combined output of one processing run.
type Report struct {
	// Selection is the relevant subset extracted from the bundle.
	Selection *cr.SelectionResult `json:"selection"`

	// Items are the derived review items, sorted by severity rank and
	// date identified.
	Items []cr.ReviewItem `json:"reviewItems"`
}

// HighSeverityCount returns the number of high-severity items.
func (r *Report) HighSeverityCount() int {
	count := 0
	for _, item := range r.Items {
		if item.Severity == cr.SeverityHigh {
			count++
		}
	}
	return count
}

// reportKey identifies one (bundle, reference time) processing run in
// the result cache.
type reportKey struct {
	digest [sha256.Size]byte
	now    int64
}

// Engine coordinates the selector and the analyzer pipeline. It is
// immutable after construction and safe for concurrent use.
type Engine struct {
	options *cr.Options
	tables  *tables.Tables
	sel     *selector.Selector
	pipe    *analyzer.Pipeline
	metrics *cr.Metrics
	reports *cache.Cache[reportKey, *Report]
}

// New creates an Engine using the default reference tables.
func New(opts ...cr.Option) (*Engine, error) {
	return NewWithTables(nil, opts...)
}

// NewWithTables creates an Engine with custom reference tables. A nil
// table set falls back to tables.Default().
func NewWithTables(t *tables.Tables, opts ...cr.Option) (*Engine, error) {
	if t == nil {
		t = tables.Default()
	}
	options := cr.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		options: options,
		tables:  t,
		sel:     selector.NewWithOptions(t, options),
		pipe:    analyzer.NewDefaultPipeline(options),
		metrics: cr.NewMetrics(),
	}
	if options.ResultCacheSize > 0 {
		e.reports = cache.New[reportKey, *Report](options.ResultCacheSize)
	}
	return e, nil
}

// Select parses bundle JSON and runs the selection pass against the
// given reference time.
func (e *Engine) Select(ctx context.Context, data []byte, now time.Time) (*cr.SelectionResult, error) {
	b, err := bundle.Parse(data)
	if err != nil {
		return nil, err
	}
	return e.SelectBundle(ctx, b, now)
}

// SelectBundle runs the selection pass over an already-parsed bundle.
func (e *Engine) SelectBundle(ctx context.Context, b *bundle.Bundle, now time.Time) (*cr.SelectionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	selection, err := e.sel.Relevant(b, now)
	if err != nil {
		if e.options.CollectMetrics {
			e.metrics.RecordMissingPatient()
		}
		return nil, err
	}

	if e.options.CollectMetrics {
		kept := len(selection.LabValues) + len(selection.Medications) +
			len(selection.Conditions) + len(selection.Encounters)
		e.metrics.RecordSelection(time.Since(start), b.Len(), kept)
	}
	return selection, nil
}

// Review derives the sorted review items from a selection.
func (e *Engine) Review(ctx context.Context, selection *cr.SelectionResult, now time.Time) []cr.ReviewItem {
	return e.pipe.Run(ctx, &analyzer.Context{
		Selection: selection,
		Tables:    e.tables,
		Options:   e.options,
		Now:       now,
	})
}

// Process parses a bundle, runs selection, and derives review items.
// With a result cache configured, repeated calls for the same bundle
// bytes and reference time return the cached report.
func (e *Engine) Process(ctx context.Context, data []byte, now time.Time) (*Report, error) {
	if e.reports == nil {
		return e.process(ctx, data, now)
	}

	key := reportKey{digest: sha256.Sum256(data), now: now.UnixNano()}
	if report, ok := e.reports.Get(key); ok {
		if e.options.CollectMetrics {
			e.metrics.RecordCacheHit()
		}
		return report, nil
	}
	if e.options.CollectMetrics {
		e.metrics.RecordCacheMiss()
	}

	report, err := e.process(ctx, data, now)
	if err != nil {
		return nil, err
	}
	e.reports.Set(key, report)
	return report, nil
}

func (e *Engine) process(ctx context.Context, data []byte, now time.Time) (*Report, error) {
	selection, err := e.Select(ctx, data, now)
	if err != nil {
		return nil, err
	}
	return &Report{
		Selection: selection,
		Items:     e.Review(ctx, selection, now),
	}, nil
}

// ProcessBytes adapts Process to the worker.Processor interface.
func (e *Engine) ProcessBytes(ctx context.Context, data []byte, now time.Time) (*worker.JobResult, error) {
	report, err := e.Process(ctx, data, now)
	if err != nil {
		return nil, err
	}
	return &worker.JobResult{
		Selection: report.Selection,
		Items:     report.Items,
	}, nil
}

// ProcessBatch processes multiple bundles against one reference time.
// The result slice is index-aligned with the input.
func (e *Engine) ProcessBatch(ctx context.Context, bundles [][]byte, now time.Time) *worker.BatchResult {
	jobs := make([]worker.Job, len(bundles))
	for i, data := range bundles {
		jobs[i] = worker.NewJob(data, now)
	}
	return worker.NewBatch(e, e.options.WorkerCount).Run(ctx, jobs)
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *cr.Metrics {
	return e.metrics
}

// Options returns the engine's resolved options.
func (e *Engine) Options() *cr.Options {
	return e.options
}

// Tables returns the engine's reference tables.
func (e *Engine) Tables() *tables.Tables {
	return e.tables
}

// Pipeline returns the analyzer pipeline, for callers that need to
// enable or disable individual analyzers.
func (e *Engine) Pipeline() *analyzer.Pipeline {
	return e.pipe
}

// CacheStats returns result-cache statistics, or a zero value when the
// cache is disabled.
func (e *Engine) CacheStats() cache.Stats {
	if e.reports == nil {
		return cache.Stats{}
	}
	return e.reports.Stats()
}
