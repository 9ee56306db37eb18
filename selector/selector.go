// Package selector reduces a parsed FHIR bundle to its clinically
// relevant subset: deduplicated and unit-normalized lab values, active
// medication orders, active or chronic conditions, and a capped list of
// recent encounters, each scored for relevance.
//
// Every selection function is pure: it reads the bundle, the reference
// tables, and an explicit "now", and allocates fresh output. Malformed
// resources are excluded one at a time, never surfaced as errors; the
// only fatal condition is a bundle without a Patient.
package selector

import (
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
	"github.com/gofhir/clinreview/tables"
)

// Selector applies the selection rules against one set of reference
// tables and options. A Selector is immutable and safe for concurrent
// use across bundles.
type Selector struct {
	tables  *tables.Tables
	options *cr.Options
}

// New creates a Selector. A nil table set falls back to
// tables.Default().
func New(t *tables.Tables, opts ...cr.Option) *Selector {
	if t == nil {
		t = tables.Default()
	}
	options := cr.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Selector{tables: t, options: options}
}

// NewWithOptions creates a Selector from already-resolved options, for
// callers that applied their Option list elsewhere. Nil arguments fall
// back to defaults.
func NewWithOptions(t *tables.Tables, options *cr.Options) *Selector {
	if t == nil {
		t = tables.Default()
	}
	if options == nil {
		options = cr.DefaultOptions()
	}
	return &Selector{tables: t, options: options}
}

// Options returns the resolved options (read-only).
func (s *Selector) Options() *cr.Options {
	return s.options
}

// Relevant runs the full selection pass over a bundle. It fails only
// when the bundle has no Patient resource; every other data-quality
// problem degrades to exclusion, so an otherwise empty bundle yields a
// result with empty lists.
//
// The recorded processing time is observational; it is the one output
// field that differs between identical runs.
func (s *Selector) Relevant(b *bundle.Bundle, now time.Time) (*cr.SelectionResult, error) {
	start := time.Now()

	patientResource, ok := b.Patient()
	if !ok {
		return nil, cr.ErrNoPatient
	}
	patient := parsePatient(patientResource)

	labs, totalObs := s.LabValues(b, now)
	meds, totalMeds := s.ActiveMedications(b, now)
	conditions, totalConds := s.Conditions(b, now)
	encounters := s.Encounters(b)

	activeMeds := 0
	for _, m := range meds {
		if m.IsActive {
			activeMeds++
		}
	}
	chronic := 0
	for _, c := range conditions {
		if c.IsChronic {
			chronic++
		}
	}

	return &cr.SelectionResult{
		Patient:     patient,
		LabValues:   labs,
		Medications: meds,
		Conditions:  conditions,
		Encounters:  encounters,
		Stats: cr.ProcessingStats{
			TotalObservations: totalObs,
			SelectedLabValues: len(labs),
			TotalMedications:  totalMeds,
			ActiveMedications: activeMeds,
			TotalConditions:   totalConds,
			ChronicConditions: chronic,
			ProcessingTimeMs:  time.Since(start).Milliseconds(),
		},
	}, nil
}

// parsePatient extracts demographics from a Patient resource.
// Partially populated patients are fine; selection only needs what the
// rules read.
func parsePatient(resource fhirutil.Resource) *cr.Patient {
	p := &cr.Patient{
		ID:     fhirutil.ResourceID(resource),
		Gender: fhirutil.GetString(resource, "gender"),
	}
	if birth, ok := fhirutil.DateField(resource, "birthDate"); ok {
		p.BirthDate = birth
	}

	if names := fhirutil.GetSlice(resource, "name"); len(names) > 0 {
		if name, ok := names[0].(map[string]any); ok {
			p.FamilyName = fhirutil.GetString(name, "family")
			if given := fhirutil.GetSlice(name, "given"); len(given) > 0 {
				p.GivenName, _ = given[0].(string)
			}
		}
	}

	if identifiers := fhirutil.GetSlice(resource, "identifier"); len(identifiers) > 0 {
		if ident, ok := identifiers[0].(map[string]any); ok {
			p.Identifier = fhirutil.GetString(ident, "value")
		}
	}

	return p
}
