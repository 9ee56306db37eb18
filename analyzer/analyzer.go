// Package analyzer derives ranked review items from a selection
// result: abnormal labs, significant deltas, medication interactions
// and duplicates, adherence risks, and preventive-care gaps.
//
// Analyzers are organized as a small pipeline. Each analyzer handles
// one concern, is stateless, and may run in parallel with others in
// its priority group; results are collected into per-analyzer slots
// and concatenated in registration order before the final sort, so the
// output is deterministic either way.
package analyzer

import (
	"context"
	"sort"
	"sync"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/tables"
)

// Context holds everything an analyzer reads while examining one
// selection. It is never mutated by analyzers.
type Context struct {
	// Selection is the selector output under review.
	Selection *cr.SelectionResult

	// Tables is the reference data (interaction pairs, care-gap rules).
	Tables *tables.Tables

	// Options holds thresholds and windows.
	Options *cr.Options

	// Now is the reference time for every staleness decision.
	Now time.Time
}

// Analyzer examines one aspect of a selection and returns its findings.
//
// Analyzers should be:
//   - Stateless: all state lives in the Context
//   - Thread-safe: a priority group may run its analyzers concurrently
//   - Tolerant: missing data yields fewer items, never an error
type Analyzer interface {
	// Name returns the unique identifier for this analyzer.
	Name() string

	// Analyze returns the review items found in the selection.
	Analyze(ctx context.Context, actx *Context) []cr.ReviewItem
}

// ID uniquely identifies a registered analyzer.
type ID string

// Standard analyzer identifiers.
const (
	IDLabs        ID = "labs"
	IDMedications ID = "medications"
	IDCareGaps    ID = "caregaps"
)

// Priority defines the order in which analyzer groups run. Lower
// values run first. Within a severity band the final sort breaks ties
// by date, so priority mainly fixes the pre-sort concatenation order.
type Priority int

const (
	// PriorityFirst for analyzers that should run first.
	PriorityFirst Priority = 100
	// PriorityNormal for standard analyzers.
	PriorityNormal Priority = 500
	// PriorityLast for analyzers that should run last.
	PriorityLast Priority = 900
)

// Config holds the registration of one analyzer.
type Config struct {
	// Analyzer is the implementation.
	Analyzer Analyzer

	// Priority determines execution order (lower runs first).
	Priority Priority

	// Parallel indicates the analyzer may run concurrently with
	// others of the same priority.
	Parallel bool

	// Enabled indicates the analyzer currently runs.
	Enabled bool
}

// Pipeline orchestrates analyzer execution over one selection.
type Pipeline struct {
	mu      sync.RWMutex
	order   []ID
	configs map[ID]*Config
	options *cr.Options
	metrics *cr.Metrics
}

// NewPipeline creates an empty pipeline. A nil options value falls
// back to defaults.
func NewPipeline(options *cr.Options) *Pipeline {
	if options == nil {
		options = cr.DefaultOptions()
	}
	return &Pipeline{
		configs: make(map[ID]*Config),
		options: options,
		metrics: cr.NewMetrics(),
	}
}

// NewDefaultPipeline creates a pipeline with the three built-in
// analyzers registered in their canonical order: labs, medications,
// care gaps.
func NewDefaultPipeline(options *cr.Options) *Pipeline {
	p := NewPipeline(options)
	p.Register(IDLabs, NewLabsAnalyzer(), WithPriority(PriorityFirst))
	p.Register(IDMedications, NewMedicationsAnalyzer(), WithPriority(PriorityNormal))
	p.Register(IDCareGaps, NewCareGapsAnalyzer(), WithPriority(PriorityLast))
	return p
}

// Option configures an analyzer registration.
type Option func(*Config)

// WithPriority sets the analyzer priority.
func WithPriority(priority Priority) Option {
	return func(c *Config) {
		c.Priority = priority
	}
}

// WithParallel sets whether the analyzer may run in parallel.
func WithParallel(parallel bool) Option {
	return func(c *Config) {
		c.Parallel = parallel
	}
}

// Register adds an analyzer to the pipeline.
func (p *Pipeline) Register(id ID, a Analyzer, opts ...Option) {
	config := &Config{
		Analyzer: a,
		Priority: PriorityNormal,
		Parallel: true,
		Enabled:  true,
	}
	for _, opt := range opts {
		opt(config)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.configs[id]; !exists {
		p.order = append(p.order, id)
	}
	p.configs[id] = config
}

// Enable enables an analyzer by ID.
func (p *Pipeline) Enable(id ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg, ok := p.configs[id]; ok {
		cfg.Enabled = true
	}
}

// Disable disables an analyzer by ID.
func (p *Pipeline) Disable(id ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg, ok := p.configs[id]; ok {
		cfg.Enabled = false
	}
}

// AnalyzerCount returns the number of enabled analyzers.
func (p *Pipeline) AnalyzerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	count := 0
	for _, cfg := range p.configs {
		if cfg.Enabled {
			count++
		}
	}
	return count
}

// Metrics returns the pipeline metrics.
func (p *Pipeline) Metrics() *cr.Metrics {
	return p.metrics
}

// group is one priority band of enabled analyzers, in registration
// order.
type group struct {
	priority Priority
	configs  []*Config
	parallel bool
}

// buildGroups organizes enabled analyzers into priority bands.
func (p *Pipeline) buildGroups() []group {
	p.mu.RLock()
	defer p.mu.RUnlock()

	byPriority := make(map[Priority][]*Config)
	var priorities []Priority
	for _, id := range p.order {
		cfg := p.configs[id]
		if !cfg.Enabled {
			continue
		}
		if _, seen := byPriority[cfg.Priority]; !seen {
			priorities = append(priorities, cfg.Priority)
		}
		byPriority[cfg.Priority] = append(byPriority[cfg.Priority], cfg)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i] < priorities[j] })

	groups := make([]group, 0, len(priorities))
	for _, priority := range priorities {
		configs := byPriority[priority]
		parallel := p.options.ParallelAnalyzers
		for _, cfg := range configs {
			if !cfg.Parallel {
				parallel = false
				break
			}
		}
		groups = append(groups, group{priority: priority, configs: configs, parallel: parallel})
	}
	return groups
}

// Run executes all enabled analyzers over the selection and returns
// the combined items sorted by severity rank ascending with ties
// broken by date identified descending. A nil or empty selection
// yields an empty list, not an error.
func (p *Pipeline) Run(ctx context.Context, actx *Context) []cr.ReviewItem {
	if actx == nil || actx.Selection == nil {
		return []cr.ReviewItem{}
	}
	if actx.Options == nil {
		actx.Options = p.options
	}

	items := make([]cr.ReviewItem, 0, 16)
	for _, g := range p.buildGroups() {
		select {
		case <-ctx.Done():
			return items
		default:
		}
		items = append(items, p.runGroup(ctx, actx, g)...)
	}

	cr.SortReviewItems(items)

	if p.options.CollectMetrics {
		p.metrics.RecordItems(items)
	}
	return items
}

// runGroup executes one priority band, collecting per-analyzer results
// into indexed slots so parallel execution cannot reorder output.
func (p *Pipeline) runGroup(ctx context.Context, actx *Context, g group) []cr.ReviewItem {
	results := make([][]cr.ReviewItem, len(g.configs))

	if g.parallel && len(g.configs) > 1 {
		var wg sync.WaitGroup
		for i, cfg := range g.configs {
			wg.Add(1)
			go func(slot int, cfg *Config) {
				defer wg.Done()
				results[slot] = p.runAnalyzer(ctx, actx, cfg)
			}(i, cfg)
		}
		wg.Wait()
	} else {
		for i, cfg := range g.configs {
			if ctx.Err() != nil {
				break
			}
			results[i] = p.runAnalyzer(ctx, actx, cfg)
		}
	}

	var items []cr.ReviewItem
	for _, r := range results {
		items = append(items, r...)
	}
	return items
}

// runAnalyzer executes a single analyzer with timing.
func (p *Pipeline) runAnalyzer(ctx context.Context, actx *Context, cfg *Config) []cr.ReviewItem {
	start := time.Now()
	items := cfg.Analyzer.Analyze(ctx, actx)
	if p.options.CollectMetrics {
		p.metrics.RecordAnalyzer(cfg.Analyzer.Name(), time.Since(start), len(items))
	}
	return items
}

// Compute runs the default analyzers over a selection and returns the
// sorted review items. It is the convenience entry point for callers
// that do not need a custom pipeline.
func Compute(selection *cr.SelectionResult, t *tables.Tables, options *cr.Options, now time.Time) []cr.ReviewItem {
	if selection == nil {
		return []cr.ReviewItem{}
	}
	if t == nil {
		t = tables.Default()
	}
	if options == nil {
		options = cr.DefaultOptions()
	}
	p := NewDefaultPipeline(options)
	return p.Run(context.Background(), &Context{
		Selection: selection,
		Tables:    t,
		Options:   options,
		Now:       now,
	})
}
