package clinreview

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks pipeline throughput using lock-free atomic operations.
// All methods are safe for concurrent use. Metrics are observational
// only; nothing in the pipeline reads them back.
type Metrics struct {
	// Selection counts
	selectionsTotal atomic.Uint64
	resourcesSeen   atomic.Uint64
	resourcesKept   atomic.Uint64
	missingPatients atomic.Uint64

	// Timing (stored as nanoseconds)
	selectionTimeTotal atomic.Uint64

	// Review item counts by severity
	itemsHigh   atomic.Uint64
	itemsMedium atomic.Uint64
	itemsLow    atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Per-analyzer timing
	analyzerTiming sync.Map // map[string]*analyzerMetrics
}

// analyzerMetrics tracks metrics for a single analyzer.
type analyzerMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	itemsFound  atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// --- Recording Methods ---

// RecordSelection records a completed selection pass.
func (m *Metrics) RecordSelection(duration time.Duration, seen, kept int) {
	m.selectionsTotal.Add(1)
	m.selectionTimeTotal.Add(uint64(duration.Nanoseconds()))
	m.resourcesSeen.Add(uint64(seen))
	m.resourcesKept.Add(uint64(kept))
}

// RecordMissingPatient records a selection rejected for lack of a subject.
func (m *Metrics) RecordMissingPatient() {
	m.missingPatients.Add(1)
}

// RecordItems records emitted review items by severity.
func (m *Metrics) RecordItems(items []ReviewItem) {
	for _, item := range items {
		switch item.Severity {
		case SeverityHigh:
			m.itemsHigh.Add(1)
		case SeverityMedium:
			m.itemsMedium.Add(1)
		case SeverityLow:
			m.itemsLow.Add(1)
		}
	}
}

// RecordAnalyzer records one analyzer invocation.
func (m *Metrics) RecordAnalyzer(name string, duration time.Duration, items int) {
	v, _ := m.analyzerTiming.LoadOrStore(name, &analyzerMetrics{})
	am := v.(*analyzerMetrics)
	am.invocations.Add(1)
	am.totalTime.Add(uint64(duration.Nanoseconds()))
	am.itemsFound.Add(uint64(items))
}

// RecordCacheHit records a result-cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a result-cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// --- Reading Methods ---

// SelectionsTotal returns the number of selection passes recorded.
func (m *Metrics) SelectionsTotal() uint64 {
	return m.selectionsTotal.Load()
}

// MissingPatients returns the number of rejected bundles.
func (m *Metrics) MissingPatients() uint64 {
	return m.missingPatients.Load()
}

// ItemCounts returns the emitted item counts by severity.
func (m *Metrics) ItemCounts() (high, medium, low uint64) {
	return m.itemsHigh.Load(), m.itemsMedium.Load(), m.itemsLow.Load()
}

// CacheStats returns result-cache hit and miss counts.
func (m *Metrics) CacheStats() (hits, misses uint64) {
	return m.cacheHits.Load(), m.cacheMisses.Load()
}

// AvgSelectionTime returns the mean selection duration.
func (m *Metrics) AvgSelectionTime() time.Duration {
	total := m.selectionsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.selectionTimeTotal.Load() / total)
}

// SelectionRatio returns kept/seen resource counts.
func (m *Metrics) SelectionRatio() (seen, kept uint64) {
	return m.resourcesSeen.Load(), m.resourcesKept.Load()
}

// AnalyzerStats describes one analyzer's recorded activity.
type AnalyzerStats struct {
	Name        string
	Invocations uint64
	TotalTime   time.Duration
	ItemsFound  uint64
}

// AnalyzerBreakdown returns per-analyzer statistics.
func (m *Metrics) AnalyzerBreakdown() []AnalyzerStats {
	var stats []AnalyzerStats
	m.analyzerTiming.Range(func(key, value any) bool {
		am := value.(*analyzerMetrics)
		stats = append(stats, AnalyzerStats{
			Name:        key.(string),
			Invocations: am.invocations.Load(),
			TotalTime:   time.Duration(am.totalTime.Load()),
			ItemsFound:  am.itemsFound.Load(),
		})
		return true
	})
	return stats
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.selectionsTotal.Store(0)
	m.resourcesSeen.Store(0)
	m.resourcesKept.Store(0)
	m.missingPatients.Store(0)
	m.selectionTimeTotal.Store(0)
	m.itemsHigh.Store(0)
	m.itemsMedium.Store(0)
	m.itemsLow.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.analyzerTiming.Range(func(key, _ any) bool {
		m.analyzerTiming.Delete(key)
		return true
	})
}
