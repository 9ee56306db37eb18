package analyzer

import (
	"context"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/tables"
)

// CareGapsAnalyzer evaluates the preventive-care screening rules and
// emits one care-gap item per triggered rule.
type CareGapsAnalyzer struct{}

// NewCareGapsAnalyzer creates the care-gap analyzer.
func NewCareGapsAnalyzer() *CareGapsAnalyzer {
	return &CareGapsAnalyzer{}
}

// Name returns the analyzer name.
func (a *CareGapsAnalyzer) Name() string {
	return "caregaps"
}

// Analyze evaluates every rule in the table against the selection.
func (a *CareGapsAnalyzer) Analyze(ctx context.Context, actx *Context) []cr.ReviewItem {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	return CareGaps(actx.Selection, actx.Tables, actx.Now)
}

// CareGaps evaluates the screening rules: each rule's demographic
// eligibility first, then its gap check over the selection. A
// selection without a patient yields no items.
func CareGaps(selection *cr.SelectionResult, t *tables.Tables, now time.Time) []cr.ReviewItem {
	if selection == nil || selection.Patient == nil {
		return nil
	}
	if t == nil {
		t = tables.Default()
	}

	var items []cr.ReviewItem
	for _, rule := range t.CareGapRules() {
		if rule.Applies == nil || rule.CheckGap == nil {
			continue
		}
		if !rule.Applies(selection.Patient, now) {
			continue
		}
		if !rule.CheckGap(selection, now) {
			continue
		}
		items = append(items, cr.NewReviewItem(cr.ItemCareGap, cr.SeverityMedium).
			ID("care-gap-"+rule.ID).
			Title(rule.Name).
			Description(rule.Description).
			Details(rule.Recommendation).
			Action(true).
			Identified(now).
			Build())
	}
	return items
}
