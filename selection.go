package clinreview

import (
	"errors"
	"time"
)

// ErrNoPatient is returned when a bundle contains no Patient resource.
// Selection cannot proceed without a subject, so this is the engine's
// single fatal condition; every other data-quality problem is handled
// by excluding the offending resource.
var ErrNoPatient = errors.New("clinreview: bundle contains no Patient resource")

// ReferenceRange holds the expected low/high bounds for a lab value.
// Either bound may be absent.
type ReferenceRange struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// Contains reports whether v falls inside the range. A missing bound
// is treated as unbounded on that side.
func (r ReferenceRange) Contains(v float64) bool {
	if r.Low != nil && v < *r.Low {
		return false
	}
	if r.High != nil && v > *r.High {
		return false
	}
	return true
}

// IsZero reports whether neither bound is set.
func (r ReferenceRange) IsZero() bool {
	return r.Low == nil && r.High == nil
}

// ProcessedLabValue is the most recent qualifying observation for one
// lab code, with units normalized and abnormality resolved. Exactly one
// exists per code within a SelectionResult.
type ProcessedLabValue struct {
	// Code is the lab code the observation was grouped by (LOINC).
	Code string `json:"code"`

	// Display is the human-readable test name.
	Display string `json:"display"`

	// Value and Unit are the raw quantity as received.
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`

	// NormalizedValue and NormalizedUnit are the quantity after the
	// unit-conversion table has been applied. Codes with no table
	// entry pass through unchanged.
	NormalizedValue float64 `json:"normalizedValue"`
	NormalizedUnit  string  `json:"normalizedUnit,omitempty"`

	// ReferenceRange holds the expected bounds, normalized alongside
	// the value when a conversion applied.
	ReferenceRange ReferenceRange `json:"referenceRange,omitempty"`

	// Interpretation is the source's coded interpretation, if any.
	// It is informational only; abnormality is always re-derived from
	// the reference range.
	Interpretation string `json:"interpretation,omitempty"`

	// Date is the observation's effective date.
	Date time.Time `json:"date"`

	// IsAbnormal is true iff a reference range exists and the
	// normalized value falls outside it.
	IsAbnormal bool `json:"isAbnormal"`

	// RelevanceScore orders selected labs; it is a ranking signal,
	// not a probability, and is always >= 0.
	RelevanceScore int `json:"relevanceScore"`

	// SourceRef points at the source resource ("Observation/<id>").
	SourceRef string `json:"sourceRef,omitempty"`
}

// ProcessedMedication is one qualifying medication order. Orders are
// deliberately not deduplicated by drug code so the analyzer can
// surface duplicate therapy.
type ProcessedMedication struct {
	Name string `json:"name"`

	// Status is the literal order status (active, completed).
	Status string `json:"status"`

	// IsActive is true when the literal status is active.
	IsActive bool `json:"isActive"`

	// Code is the canonical drug code (RxNorm), used for interaction
	// and duplicate matching.
	Code string `json:"code,omitempty"`

	Category  string `json:"category,omitempty"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`

	// AuthoredDate is when the order was written; zero when unknown.
	AuthoredDate time.Time `json:"authoredDate,omitempty"`

	RelevanceScore int    `json:"relevanceScore"`
	SourceRef      string `json:"sourceRef,omitempty"`
}

// HasAuthoredDate reports whether the order carries a usable date.
func (m ProcessedMedication) HasAuthoredDate() bool {
	return !m.AuthoredDate.IsZero()
}

// ProcessedCondition is one qualifying condition/problem entry.
type ProcessedCondition struct {
	Name string `json:"name"`

	// Code is the canonical diagnosis code (SNOMED).
	Code string `json:"code,omitempty"`

	ClinicalStatus     string `json:"clinicalStatus"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
	Severity           string `json:"severity,omitempty"`

	OnsetDate    time.Time `json:"onsetDate,omitempty"`
	RecordedDate time.Time `json:"recordedDate,omitempty"`

	// IsChronic is true when the canonical code belongs to the
	// chronic-condition code set.
	IsChronic bool `json:"isChronic"`

	// IsActive is true when the clinical status is active or recurrence.
	IsActive bool `json:"isActive"`

	RelevanceScore int    `json:"relevanceScore"`
	SourceRef      string `json:"sourceRef,omitempty"`
}

// Patient holds the demographics the engine reads from the bundle's
// Patient resource.
type Patient struct {
	ID         string    `json:"id,omitempty"`
	GivenName  string    `json:"givenName,omitempty"`
	FamilyName string    `json:"familyName,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	BirthDate  time.Time `json:"birthDate,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
}

// Encounter is a capped recent encounter kept for context.
type Encounter struct {
	ID     string    `json:"id,omitempty"`
	Status string    `json:"status"`
	Type   string    `json:"type,omitempty"`
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
}

// ProcessingStats counts how much of the bundle survived selection.
// ProcessingTimeMs is observational only and must not influence
// behavior; it is the single non-deterministic output field.
type ProcessingStats struct {
	TotalObservations int   `json:"totalObservations"`
	SelectedLabValues int   `json:"selectedLabValues"`
	TotalMedications  int   `json:"totalMedications"`
	ActiveMedications int   `json:"activeMedications"`
	TotalConditions   int   `json:"totalConditions"`
	ChronicConditions int   `json:"chronicConditions"`
	ProcessingTimeMs  int64 `json:"processingTimeMs"`
}

// SelectionResult aggregates everything the selector kept from one
// bundle. It is created once per bundle and never mutated after return.
type SelectionResult struct {
	Patient     *Patient              `json:"patient"`
	LabValues   []ProcessedLabValue   `json:"labValues"`
	Medications []ProcessedMedication `json:"medications"`
	Conditions  []ProcessedCondition  `json:"conditions"`
	Encounters  []Encounter           `json:"encounters"`
	Stats       ProcessingStats       `json:"stats"`
}

// ActiveMedications returns the subset of medications whose literal
// status is active.
func (s *SelectionResult) ActiveMedications() []ProcessedMedication {
	var active []ProcessedMedication
	for _, m := range s.Medications {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active
}

// LabByCode returns the processed lab value for a code, if present.
func (s *SelectionResult) LabByCode(code string) (ProcessedLabValue, bool) {
	for _, lab := range s.LabValues {
		if lab.Code == code {
			return lab, true
		}
	}
	return ProcessedLabValue{}, false
}

// HasActiveCondition reports whether any active condition's canonical
// code is in the given set.
func (s *SelectionResult) HasActiveCondition(codes map[string]bool) bool {
	for _, c := range s.Conditions {
		if c.IsActive && codes[c.Code] {
			return true
		}
	}
	return false
}
