package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	cr "github.com/gofhir/clinreview"
)

// LabsAnalyzer emits lab-abnormal items for out-of-range values and
// lab-delta items for significant changes between consecutive readings
// of the same code.
type LabsAnalyzer struct{}

// NewLabsAnalyzer creates the lab analyzer.
func NewLabsAnalyzer() *LabsAnalyzer {
	return &LabsAnalyzer{}
}

// Name returns the analyzer name.
func (a *LabsAnalyzer) Name() string {
	return "labs"
}

// Analyze examines the selection's lab values.
func (a *LabsAnalyzer) Analyze(ctx context.Context, actx *Context) []cr.ReviewItem {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	return Labs(actx.Selection.LabValues, actx.Options)
}

// Labs analyzes a list of processed lab values, which may contain
// multiple readings per code when the caller supplies history beyond
// the deduplicated selection. A nil options value falls back to
// defaults.
func Labs(labs []cr.ProcessedLabValue, options *cr.Options) []cr.ReviewItem {
	if options == nil {
		options = cr.DefaultOptions()
	}

	// Group by code, preserving first-encounter order; each group is
	// examined oldest-first so deltas compare consecutive readings.
	byCode := make(map[string][]cr.ProcessedLabValue)
	var order []string
	for _, lab := range labs {
		if _, seen := byCode[lab.Code]; !seen {
			order = append(order, lab.Code)
		}
		byCode[lab.Code] = append(byCode[lab.Code], lab)
	}

	var items []cr.ReviewItem
	for _, code := range order {
		group := byCode[code]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		for _, lab := range group {
			if lab.IsAbnormal && !lab.ReferenceRange.IsZero() {
				items = append(items, abnormalItem(lab))
			}
		}
		for i := 1; i < len(group); i++ {
			if item, ok := deltaItem(group[i-1], group[i], options); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

// abnormalItem builds a lab-abnormal finding. Severity is fixed at
// medium; triage escalation is a delta concern, not an abnormality one.
func abnormalItem(lab cr.ProcessedLabValue) cr.ReviewItem {
	return cr.NewReviewItem(cr.ItemLabAbnormal, cr.SeverityMedium).
		ID(fmt.Sprintf("lab-abnormal-%s-%s", lab.Code, lab.Date.Format("2006-01-02"))).
		Title(fmt.Sprintf("Abnormal %s", labLabel(lab))).
		Description(fmt.Sprintf("%s is %g %s, outside the reference range %s",
			labLabel(lab), lab.NormalizedValue, lab.NormalizedUnit, rangeText(lab.ReferenceRange))).
		Details(fmt.Sprintf("value=%g unit=%s range=%s", lab.NormalizedValue, lab.NormalizedUnit, rangeText(lab.ReferenceRange))).
		Ref(lab.SourceRef).
		Chart("line").
		Action(true).
		Identified(lab.Date).
		Build()
}

// deltaItem builds a lab-delta finding when the percent change between
// two consecutive readings exceeds the notable threshold. Changes from
// a zero baseline are skipped: the percentage is undefined.
func deltaItem(prev, cur cr.ProcessedLabValue, options *cr.Options) (cr.ReviewItem, bool) {
	if prev.NormalizedValue == 0 {
		return cr.ReviewItem{}, false
	}

	prevDec := decimal.NewFromFloat(prev.NormalizedValue)
	curDec := decimal.NewFromFloat(cur.NormalizedValue)
	change, _ := curDec.Sub(prevDec).Div(prevDec).Mul(decimal.NewFromInt(100)).Float64()
	pctChange := math.Abs(change)

	if pctChange <= options.DeltaNotable {
		return cr.ReviewItem{}, false
	}

	severity := cr.SeverityMedium
	action := false
	if pctChange > options.DeltaCritical {
		severity = cr.SeverityHigh
		action = true
	}

	direction := "increased"
	if cur.NormalizedValue < prev.NormalizedValue {
		direction = "decreased"
	}

	return cr.NewReviewItem(cr.ItemLabDelta, severity).
		ID(fmt.Sprintf("lab-delta-%s-%s", cur.Code, cur.Date.Format("2006-01-02"))).
		Title(fmt.Sprintf("Significant change in %s", labLabel(cur))).
		Description(fmt.Sprintf("%s %s by %.1f%% since %s",
			labLabel(cur), direction, pctChange, prev.Date.Format("2006-01-02"))).
		Details(fmt.Sprintf("previous=%g current=%g change=%.1f%%",
			prev.NormalizedValue, cur.NormalizedValue, pctChange)).
		Ref(cur.SourceRef).
		Chart("line").
		Action(action).
		Identified(cur.Date).
		Build(), true
}

// labLabel returns the display name, falling back to the code.
func labLabel(lab cr.ProcessedLabValue) string {
	if lab.Display != "" {
		return lab.Display
	}
	return lab.Code
}

// rangeText formats a reference range for messages.
func rangeText(r cr.ReferenceRange) string {
	switch {
	case r.Low != nil && r.High != nil:
		return fmt.Sprintf("%g-%g", *r.Low, *r.High)
	case r.Low != nil:
		return fmt.Sprintf(">=%g", *r.Low)
	case r.High != nil:
		return fmt.Sprintf("<=%g", *r.High)
	default:
		return "none"
	}
}
