package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

// medicationResourceTypes are the resource names a medication order may
// arrive under across FHIR versions.
var medicationResourceTypes = []string{"MedicationRequest", "MedicationOrder"}

// ActiveMedications selects qualifying medication orders. Active
// orders always qualify; completed orders qualify only when authored
// within the completed-medication window, otherwise they are dropped
// entirely. Orders are deliberately not deduplicated by drug code so
// the analyzer can surface duplicate therapy. The second return is the
// total number of medication orders seen.
func (s *Selector) ActiveMedications(b *bundle.Bundle, now time.Time) ([]cr.ProcessedMedication, int) {
	var orders []fhirutil.Resource
	for _, rt := range medicationResourceTypes {
		orders = append(orders, b.ResourcesOfType(rt)...)
	}

	meds := make([]cr.ProcessedMedication, 0, len(orders))
	for _, order := range orders {
		status := fhirutil.GetString(order, "status")
		authored, _ := fhirutil.DateField(order, "authoredOn")

		switch status {
		case "active":
		case "completed":
			if !fhirutil.WithinWindow(authored, now, s.options.CompletedMedWindow) {
				continue
			}
		default:
			continue
		}

		med := s.processMedication(order, status, authored, now)
		meds = append(meds, med)
	}

	sort.SliceStable(meds, func(i, j int) bool {
		return meds[i].RelevanceScore > meds[j].RelevanceScore
	})

	return meds, len(orders)
}

// processMedication builds one ProcessedMedication from a qualifying
// order. Missing dosage or timing degrades to empty fields.
func (s *Selector) processMedication(order fhirutil.Resource, status string, authored, now time.Time) cr.ProcessedMedication {
	concept := fhirutil.GetMap(order, "medicationCodeableConcept")
	code, _ := fhirutil.PickCode(concept, fhirutil.SystemRxNorm)
	name := fhirutil.ConceptText(concept)
	if name == "" {
		if ref := fhirutil.GetMap(order, "medicationReference"); ref != nil {
			name = fhirutil.GetString(ref, "display")
		}
	}

	med := cr.ProcessedMedication{
		Name:         name,
		Status:       status,
		IsActive:     status == "active",
		Code:         code,
		Category:     medicationCategory(order),
		AuthoredDate: authored,
		SourceRef:    fhirutil.SourceRef(order),
	}

	if dosages := fhirutil.GetSlice(order, "dosageInstruction"); len(dosages) > 0 {
		if dosage, ok := dosages[0].(map[string]any); ok {
			med.Dosage = fhirutil.GetString(dosage, "text")
			med.Route = fhirutil.ConceptText(fhirutil.GetMap(dosage, "route"))
			med.Frequency = frequencyText(dosage)
		}
	}

	score := 5
	if med.IsActive {
		score += 3
	}
	if fhirutil.WithinWindow(authored, now, s.options.RecentMedWindow) {
		score += 2
	}
	if med.Category == "inpatient" {
		score++
	}
	med.RelevanceScore = score

	return med
}

// medicationCategory returns the first category coding code, falling
// back to the concept text.
func medicationCategory(order fhirutil.Resource) string {
	categories := fhirutil.GetSlice(order, "category")
	if len(categories) == 0 {
		return ""
	}
	concept, ok := categories[0].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := fhirutil.PickCode(concept, "")
	if code != "" {
		return strings.ToLower(code)
	}
	return strings.ToLower(fhirutil.GetString(concept, "text"))
}

// frequencyText derives a human-readable "N times per P unit" string
// from a dosage's timing repeat. Incomplete timing data yields an
// empty string rather than an error.
func frequencyText(dosage fhirutil.Resource) string {
	timing := fhirutil.GetMap(dosage, "timing")
	if timing == nil {
		return ""
	}
	repeat := fhirutil.GetMap(timing, "repeat")
	if repeat == nil {
		return ""
	}

	frequency, ok := fhirutil.GetNumber(repeat, "frequency")
	if !ok || frequency <= 0 {
		return ""
	}
	period, ok := fhirutil.GetNumber(repeat, "period")
	if !ok || period <= 0 {
		return ""
	}
	unit := fhirutil.GetString(repeat, "periodUnit")
	if unit == "" {
		return ""
	}

	return fmt.Sprintf("%g times per %g %s", frequency, period, unit)
}
