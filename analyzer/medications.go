package analyzer

import (
	"context"
	"fmt"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/fhirutil"
	"github.com/gofhir/clinreview/tables"
)

// MedicationsAnalyzer emits med-interaction items for known
// drug-drug interactions and duplicate therapy, and med-adherence
// items for long-running active medications.
type MedicationsAnalyzer struct{}

// NewMedicationsAnalyzer creates the medication analyzer.
func NewMedicationsAnalyzer() *MedicationsAnalyzer {
	return &MedicationsAnalyzer{}
}

// Name returns the analyzer name.
func (a *MedicationsAnalyzer) Name() string {
	return "medications"
}

// Analyze examines the selection's medications.
func (a *MedicationsAnalyzer) Analyze(ctx context.Context, actx *Context) []cr.ReviewItem {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	return Medications(actx.Selection.Medications, actx.Tables, actx.Options, actx.Now)
}

// Medications analyzes a medication list. Interaction and duplicate
// checks run over every unordered pair of active orders; a catalogued
// interaction and a true duplicate can both fire for the same pair.
// The adherence check runs over all orders with an authored date.
func Medications(meds []cr.ProcessedMedication, t *tables.Tables, options *cr.Options, now time.Time) []cr.ReviewItem {
	if t == nil {
		t = tables.Default()
	}
	if options == nil {
		options = cr.DefaultOptions()
	}

	var items []cr.ReviewItem

	var active []cr.ProcessedMedication
	for _, m := range meds {
		if m.IsActive {
			active = append(active, m)
		}
	}

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]

			if rule, ok := t.Interaction(a.Code, b.Code); ok {
				items = append(items, interactionItem(a, b, rule, i, j, now))
			}
			if a.Code != "" && a.Code == b.Code {
				items = append(items, duplicateItem(a, b, i, j, now))
			}
		}
	}

	for i, m := range meds {
		if !m.HasAuthoredDate() || !m.IsActive {
			continue
		}
		if fhirutil.WithinWindow(m.AuthoredDate, now, options.AdherenceWindow) {
			continue
		}
		items = append(items, adherenceItem(m, i, now))
	}

	return items
}

// interactionItem builds a finding for a catalogued interaction pair.
// Only high-severity interactions demand action.
func interactionItem(a, b cr.ProcessedMedication, rule tables.InteractionRule, i, j int, now time.Time) cr.ReviewItem {
	return cr.NewReviewItem(cr.ItemMedInteraction, rule.Severity).
		ID(fmt.Sprintf("med-interaction-%s-%s-%d-%d", rule.CodeA, rule.CodeB, i, j)).
		Title(fmt.Sprintf("Interaction: %s and %s", medLabel(a), medLabel(b))).
		Description(rule.Description).
		Details(rule.Action).
		Ref(a.SourceRef).
		Action(rule.Severity == cr.SeverityHigh).
		Identified(now).
		Build()
}

// duplicateItem builds a finding for two active orders sharing one
// canonical drug code.
func duplicateItem(a, b cr.ProcessedMedication, i, j int, now time.Time) cr.ReviewItem {
	return cr.NewReviewItem(cr.ItemMedInteraction, cr.SeverityMedium).
		ID(fmt.Sprintf("med-duplicate-%s-%d-%d", a.Code, i, j)).
		Title("Duplicate Medication").
		Description(fmt.Sprintf("Two active orders for %s", medLabel(a))).
		Details(fmt.Sprintf("orders: %s, %s", a.SourceRef, b.SourceRef)).
		Ref(a.SourceRef).
		Action(true).
		Identified(now).
		Build()
}

// adherenceItem builds a low-priority reminder for a medication active
// beyond the adherence window.
func adherenceItem(m cr.ProcessedMedication, idx int, now time.Time) cr.ReviewItem {
	activeDays := int(now.Sub(m.AuthoredDate).Hours() / 24)
	return cr.NewReviewItem(cr.ItemMedAdherence, cr.SeverityLow).
		ID(fmt.Sprintf("med-adherence-%d", idx)).
		Title(fmt.Sprintf("Adherence check: %s", medLabel(m))).
		Description(fmt.Sprintf("%s has been active for %d days; consider an adherence review",
			medLabel(m), activeDays)).
		Ref(m.SourceRef).
		Action(false).
		Identified(now).
		Build()
}

// medLabel returns the medication name, falling back to the code.
func medLabel(m cr.ProcessedMedication) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Code
}
