package clinreview

import (
	"sort"
	"time"
)

// Severity ranks a review item for triage.
type Severity string

const (
	// SeverityHigh marks findings that need prompt clinical attention.
	SeverityHigh Severity = "high"
	// SeverityMedium marks findings that should be reviewed.
	SeverityMedium Severity = "medium"
	// SeverityLow marks informational findings.
	SeverityLow Severity = "low"
)

// Rank returns the ordering key for the severity: high sorts first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// IsValid returns true if this is a known severity.
func (s Severity) IsValid() bool {
	return s.Rank() < 3
}

// ReviewItemType identifies the kind of finding a review item reports.
// The string values are a stable vocabulary that downstream consumers
// match on; changing them is a breaking change.
type ReviewItemType string

const (
	// ItemLabAbnormal flags a lab value outside its reference range.
	ItemLabAbnormal ReviewItemType = "lab-abnormal"
	// ItemLabDelta flags a significant change between consecutive
	// readings of the same lab.
	ItemLabDelta ReviewItemType = "lab-delta"
	// ItemMedInteraction flags a known drug-drug interaction or a
	// duplicate order for the same drug.
	ItemMedInteraction ReviewItemType = "med-interaction"
	// ItemMedAdherence flags a long-running medication worth an
	// adherence check.
	ItemMedAdherence ReviewItemType = "med-adherence"
	// ItemCareGap flags a preventive-care action the patient is
	// eligible for but has no recent qualifying evidence of.
	ItemCareGap ReviewItemType = "care-gap"
)

// ReviewItem is a single actionable finding derived from a selection.
// Items are immutable value objects intended to be serialized for a
// rendering or summarization layer.
type ReviewItem struct {
	// ID uniquely identifies the item within one analysis run.
	ID string `json:"id"`

	// Type is the kind of finding (lab-abnormal, care-gap, ...).
	Type ReviewItemType `json:"type"`

	// Severity determines sort precedence: high before medium before low.
	Severity Severity `json:"severity"`

	// Title is a short human-readable headline.
	Title string `json:"title"`

	// Description summarizes the finding in one or two sentences.
	Description string `json:"description"`

	// Details carries supporting data (values, dates, rule output).
	Details string `json:"details,omitempty"`

	// ResourceRef points at the triggering resource (e.g. "Observation/42").
	ResourceRef string `json:"resourceRef,omitempty"`

	// ChartHint suggests a visualization for the finding.
	ChartHint string `json:"chartHint,omitempty"`

	// ActionRequired is true when the finding warrants follow-up.
	ActionRequired bool `json:"actionRequired"`

	// DateIdentified is when the finding applies; used as the sort
	// tiebreaker within a severity band (most recent first).
	DateIdentified time.Time `json:"dateIdentified"`
}

// SortReviewItems orders items by severity rank ascending (high first)
// with ties broken by DateIdentified descending. The sort is stable so
// equal items keep their analyzer emission order.
func SortReviewItems(items []ReviewItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Severity.Rank(), items[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return items[i].DateIdentified.After(items[j].DateIdentified)
	})
}

// ReviewItemBuilder provides a fluent API for building review items.
type ReviewItemBuilder struct {
	item ReviewItem
}

// NewReviewItem creates a new ReviewItemBuilder.
func NewReviewItem(typ ReviewItemType, severity Severity) *ReviewItemBuilder {
	return &ReviewItemBuilder{
		item: ReviewItem{
			Type:     typ,
			Severity: severity,
		},
	}
}

// ID sets the item identifier.
func (b *ReviewItemBuilder) ID(id string) *ReviewItemBuilder {
	b.item.ID = id
	return b
}

// Title sets the headline.
func (b *ReviewItemBuilder) Title(title string) *ReviewItemBuilder {
	b.item.Title = title
	return b
}

// Description sets the summary text.
func (b *ReviewItemBuilder) Description(desc string) *ReviewItemBuilder {
	b.item.Description = desc
	return b
}

// Details sets the supporting data.
func (b *ReviewItemBuilder) Details(details string) *ReviewItemBuilder {
	b.item.Details = details
	return b
}

// Ref sets the triggering resource reference.
func (b *ReviewItemBuilder) Ref(ref string) *ReviewItemBuilder {
	b.item.ResourceRef = ref
	return b
}

// Chart sets the visualization hint.
func (b *ReviewItemBuilder) Chart(hint string) *ReviewItemBuilder {
	b.item.ChartHint = hint
	return b
}

// Action marks the item as requiring follow-up.
func (b *ReviewItemBuilder) Action(required bool) *ReviewItemBuilder {
	b.item.ActionRequired = required
	return b
}

// Identified sets the finding date.
func (b *ReviewItemBuilder) Identified(t time.Time) *ReviewItemBuilder {
	b.item.DateIdentified = t
	return b
}

// Build returns the constructed item.
func (b *ReviewItemBuilder) Build() ReviewItem {
	return b.item
}
