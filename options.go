package clinreview

import (
	"runtime"
	"time"
)

// Option configures the engine.
type Option func(*Options)

// Options holds all configuration for selection and review. Every
// window and threshold the pipeline consults lives here so tests can
// pin behavior without touching the code tables.
type Options struct {
	// Recency windows
	RecentLabWindow       time.Duration // labs scoring a recency bonus
	CompletedMedWindow    time.Duration // completed orders still considered
	RecentMedWindow       time.Duration // orders scoring a recency bonus
	RecentConditionWindow time.Duration // conditions scoring a recency bonus
	UnconfirmedWindow     time.Duration // unconfirmed conditions kept
	AdherenceWindow       time.Duration // active duration before an adherence flag

	// Lab delta thresholds, in percent change between consecutive readings
	DeltaNotable  float64 // emit a lab-delta item above this
	DeltaCritical float64 // escalate to high severity above this

	// EncounterLimit caps the recent encounters kept in a selection.
	EncounterLimit int

	// Performance
	ParallelAnalyzers bool
	WorkerCount       int
	ResultCacheSize   int // 0 disables the engine result cache

	// CollectMetrics enables the atomic metrics counters.
	CollectMetrics bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		RecentLabWindow:       90 * 24 * time.Hour,
		CompletedMedWindow:    90 * 24 * time.Hour,
		RecentMedWindow:       30 * 24 * time.Hour,
		RecentConditionWindow: 90 * 24 * time.Hour,
		UnconfirmedWindow:     30 * 24 * time.Hour,
		AdherenceWindow:       90 * 24 * time.Hour,

		DeltaNotable:  30,
		DeltaCritical: 50,

		EncounterLimit: 10,

		ParallelAnalyzers: true,
		WorkerCount:       runtime.NumCPU(),
		ResultCacheSize:   0,

		CollectMetrics: true,
	}
}

// --- Window Options ---

// WithRecentLabWindow sets how recent an observation must be to score
// the recency bonus.
func WithRecentLabWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RecentLabWindow = d
		}
	}
}

// WithCompletedMedWindow sets how recently a completed order must have
// been authored to still qualify for selection.
func WithCompletedMedWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.CompletedMedWindow = d
		}
	}
}

// WithRecentMedWindow sets how recent an order must be to score the
// recency bonus.
func WithRecentMedWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RecentMedWindow = d
		}
	}
}

// WithUnconfirmedWindow sets how recently an unconfirmed condition must
// have been recorded to be kept.
func WithUnconfirmedWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.UnconfirmedWindow = d
		}
	}
}

// WithAdherenceWindow sets how long a medication must have been active
// before an adherence item is emitted.
func WithAdherenceWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.AdherenceWindow = d
		}
	}
}

// --- Threshold Options ---

// WithDeltaThresholds sets the percent-change thresholds for lab-delta
// items: notable emits an item, critical escalates it to high severity.
func WithDeltaThresholds(notable, critical float64) Option {
	return func(o *Options) {
		if notable > 0 {
			o.DeltaNotable = notable
		}
		if critical > notable {
			o.DeltaCritical = critical
		}
	}
}

// WithEncounterLimit caps the recent encounters kept per selection.
func WithEncounterLimit(limit int) Option {
	return func(o *Options) {
		if limit > 0 {
			o.EncounterLimit = limit
		}
	}
}

// --- Performance Options ---

// WithParallelAnalyzers enables running independent analyzers
// concurrently. Output ordering is unaffected: items are sorted
// deterministically after all analyzers finish.
func WithParallelAnalyzers(enable bool) Option {
	return func(o *Options) {
		o.ParallelAnalyzers = enable
	}
}

// WithWorkerCount sets the number of workers for batch processing.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithResultCache enables engine-level memoization of reports keyed by
// bundle digest and reference time. Safe because the pipeline is
// deterministic for a fixed (bundle, now) pair. Use 0 to disable.
func WithResultCache(size int) Option {
	return func(o *Options) {
		if size >= 0 {
			o.ResultCacheSize = size
		}
	}
}

// WithMetrics enables or disables metrics collection.
func WithMetrics(enable bool) Option {
	return func(o *Options) {
		o.CollectMetrics = enable
	}
}

// --- Presets ---

// SequentialOptions returns options for fully deterministic sequential
// execution, useful when profiling a single bundle.
func SequentialOptions() []Option {
	return []Option{
		WithParallelAnalyzers(false),
		WithWorkerCount(1),
	}
}
