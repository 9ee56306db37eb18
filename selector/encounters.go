package selector

import (
	"sort"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

// Encounter statuses that qualify for selection.
var qualifyingEncounterStatus = map[string]bool{
	"finished":    true,
	"in-progress": true,
}

// Encounters keeps finished and in-progress encounters, newest first,
// capped at the configured limit.
func (s *Selector) Encounters(b *bundle.Bundle) []cr.Encounter {
	resources := b.ResourcesOfType("Encounter")

	encounters := make([]cr.Encounter, 0, len(resources))
	for _, resource := range resources {
		status := fhirutil.GetString(resource, "status")
		if !qualifyingEncounterStatus[status] {
			continue
		}

		enc := cr.Encounter{
			ID:     fhirutil.ResourceID(resource),
			Status: status,
			Type:   encounterType(resource),
		}
		if start, ok := fhirutil.PeriodStart(resource, "period"); ok {
			enc.Start = start
		}
		if end, ok := fhirutil.PeriodEnd(resource, "period"); ok {
			enc.End = end
		}
		encounters = append(encounters, enc)
	}

	sort.SliceStable(encounters, func(i, j int) bool {
		return encounters[i].Start.After(encounters[j].Start)
	})

	if len(encounters) > s.options.EncounterLimit {
		encounters = encounters[:s.options.EncounterLimit]
	}
	return encounters
}

// encounterType returns the label of the first type concept.
func encounterType(resource fhirutil.Resource) string {
	types := fhirutil.GetSlice(resource, "type")
	if len(types) == 0 {
		return ""
	}
	concept, ok := types[0].(map[string]any)
	if !ok {
		return ""
	}
	return fhirutil.ConceptText(concept)
}
