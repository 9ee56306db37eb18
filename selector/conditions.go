package selector

import (
	"sort"
	"strings"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

// SNOMED code for severe severity.
const severitySevereCode = "24484000"

// Conditions selects qualifying condition entries: inactive conditions
// are dropped, and unconfirmed conditions are dropped unless recorded
// within the unconfirmed window. The second return is the total number
// of Conditions seen.
func (s *Selector) Conditions(b *bundle.Bundle, now time.Time) ([]cr.ProcessedCondition, int) {
	resources := b.ResourcesOfType("Condition")

	conditions := make([]cr.ProcessedCondition, 0, len(resources))
	for _, resource := range resources {
		clinicalStatus := fhirutil.CodeFromConceptOrText(resource, "clinicalStatus")
		if clinicalStatus == "inactive" {
			continue
		}

		verification := fhirutil.CodeFromConceptOrText(resource, "verificationStatus")
		recorded, _ := fhirutil.DateField(resource, "recordedDate")
		if verification == "unconfirmed" &&
			!fhirutil.WithinWindow(recorded, now, s.options.UnconfirmedWindow) {
			continue
		}

		conditions = append(conditions, s.processCondition(resource, clinicalStatus, verification, recorded, now))
	}

	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].RelevanceScore > conditions[j].RelevanceScore
	})

	return conditions, len(resources)
}

// processCondition classifies and scores one kept condition.
func (s *Selector) processCondition(resource fhirutil.Resource, clinicalStatus, verification string, recorded, now time.Time) cr.ProcessedCondition {
	concept := fhirutil.GetMap(resource, "code")
	code, _ := fhirutil.PickCode(concept, fhirutil.SystemSNOMED)

	cond := cr.ProcessedCondition{
		Name:               fhirutil.ConceptText(concept),
		Code:               code,
		ClinicalStatus:     clinicalStatus,
		VerificationStatus: verification,
		Severity:           conditionSeverity(resource),
		RecordedDate:       recorded,
		IsChronic:          s.tables.IsChronic(code),
		IsActive:           clinicalStatus == "active" || clinicalStatus == "recurrence",
		SourceRef:          fhirutil.SourceRef(resource),
	}
	if onset, ok := fhirutil.DateField(resource, "onsetDateTime"); ok {
		cond.OnsetDate = onset
	}

	score := 4
	if cond.IsActive {
		score += 3
	}
	if cond.IsChronic {
		score += 2
	}
	if isSevere(resource) {
		score += 2
	}
	if fhirutil.WithinWindow(recorded, now, s.options.RecentConditionWindow) {
		score++
	}
	cond.RelevanceScore = score

	return cond
}

// conditionSeverity returns the severity label from the condition's
// severity concept.
func conditionSeverity(resource fhirutil.Resource) string {
	return fhirutil.ConceptText(fhirutil.GetMap(resource, "severity"))
}

// isSevere matches the severity concept against the SNOMED severe code
// or a "severe" label.
func isSevere(resource fhirutil.Resource) bool {
	concept := fhirutil.GetMap(resource, "severity")
	if concept == nil {
		return false
	}
	code, _ := fhirutil.PickCode(concept, fhirutil.SystemSNOMED)
	if code == severitySevereCode {
		return true
	}
	return strings.Contains(strings.ToLower(fhirutil.ConceptText(concept)), "severe")
}
