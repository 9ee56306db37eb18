// Package fhirutil provides tolerant field access over FHIR resources
// parsed as generic maps.
//
// Real-world clinical bundles are heterogeneous: elements go missing,
// quantities arrive as strings, dates come in several precisions. Every
// accessor here degrades to a zero value instead of failing, so callers
// can exclude a single malformed resource without aborting a whole
// selection pass.
package fhirutil

import (
	"strconv"
	"time"

	"github.com/buger/jsonparser"
)

// Common FHIR coding systems, used to prefer canonical codes when a
// CodeableConcept carries several codings.
const (
	SystemLOINC  = "http://loinc.org"
	SystemSNOMED = "http://snomed.info/sct"
	SystemRxNorm = "http://www.nlm.nih.gov/research/umls/rxnorm"
)

// Resource is a FHIR resource parsed as a generic map.
type Resource = map[string]any

// ResourceType extracts the resourceType from a resource map.
func ResourceType(resource Resource) string {
	rt, _ := resource["resourceType"].(string)
	return rt
}

// ResourceID extracts the id from a resource map.
func ResourceID(resource Resource) string {
	id, _ := resource["id"].(string)
	return id
}

// SourceRef builds a "<Type>/<id>" reference for a resource, or an
// empty string when the id is missing.
func SourceRef(resource Resource) string {
	rt := ResourceType(resource)
	id := ResourceID(resource)
	if rt == "" || id == "" {
		return ""
	}
	return rt + "/" + id
}

// PeekResourceType reads resourceType from raw JSON without a full
// unmarshal. Returns an empty string when absent or unparseable.
func PeekResourceType(data []byte) string {
	rt, err := jsonparser.GetString(data, "resourceType")
	if err != nil {
		return ""
	}
	return rt
}

// GetString returns a string field, or "" when absent or mistyped.
func GetString(resource Resource, field string) string {
	s, _ := resource[field].(string)
	return s
}

// GetMap returns a nested object field.
func GetMap(resource Resource, field string) Resource {
	m, _ := resource[field].(map[string]any)
	return m
}

// GetSlice returns an array field.
func GetSlice(resource Resource, field string) []any {
	s, _ := resource[field].([]any)
	return s
}

// GetNumber returns a numeric field. JSON numbers unmarshal as
// float64; numeric strings are accepted as a fallback because some
// producers quote quantities.
func GetNumber(resource Resource, field string) (float64, bool) {
	switch v := resource[field].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Coding is one system/code/display triple from a CodeableConcept.
type Coding struct {
	System  string
	Code    string
	Display string
}

// Codings extracts all codings from a CodeableConcept map.
func Codings(concept Resource) []Coding {
	if concept == nil {
		return nil
	}
	raw := GetSlice(concept, "coding")
	codings := make([]Coding, 0, len(raw))
	for _, c := range raw {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		coding := Coding{
			System:  GetString(cm, "system"),
			Code:    GetString(cm, "code"),
			Display: GetString(cm, "display"),
		}
		if coding.Code == "" {
			continue
		}
		codings = append(codings, coding)
	}
	return codings
}

// PickCode selects the canonical code from a CodeableConcept,
// preferring the given system and falling back to the first coding
// with a code. The second return is the display text: the coding's
// display when present, otherwise the concept's text element.
func PickCode(concept Resource, preferredSystem string) (code, display string) {
	codings := Codings(concept)
	var chosen *Coding
	for i := range codings {
		if codings[i].System == preferredSystem {
			chosen = &codings[i]
			break
		}
	}
	if chosen == nil && len(codings) > 0 {
		chosen = &codings[0]
	}
	if chosen == nil {
		return "", GetString(concept, "text")
	}
	display = chosen.Display
	if display == "" {
		display = GetString(concept, "text")
	}
	return chosen.Code, display
}

// ConceptText returns the best human-readable label for a
// CodeableConcept: text first, then the first coding display.
func ConceptText(concept Resource) string {
	if concept == nil {
		return ""
	}
	if text := GetString(concept, "text"); text != "" {
		return text
	}
	for _, c := range Codings(concept) {
		if c.Display != "" {
			return c.Display
		}
	}
	return ""
}

// Quantity extracts value and unit from a FHIR Quantity map.
func Quantity(q Resource) (value float64, unit string, ok bool) {
	if q == nil {
		return 0, "", false
	}
	value, ok = GetNumber(q, "value")
	if !ok {
		return 0, "", false
	}
	unit = GetString(q, "unit")
	if unit == "" {
		unit = GetString(q, "code")
	}
	return value, unit, true
}

// fhirDateLayouts are tried in order when parsing FHIR date and
// dateTime values. FHIR allows year, year-month, date, and full
// dateTime precision.
var fhirDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a FHIR date or dateTime string. Returns a zero time
// and false when the value is empty or unparseable.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range fhirDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateField parses a date-valued field from a resource.
func DateField(resource Resource, field string) (time.Time, bool) {
	return ParseDate(GetString(resource, field))
}

// PeriodStart parses the start of a Period-valued field.
func PeriodStart(resource Resource, field string) (time.Time, bool) {
	period := GetMap(resource, field)
	if period == nil {
		return time.Time{}, false
	}
	return ParseDate(GetString(period, "start"))
}

// PeriodEnd parses the end of a Period-valued field.
func PeriodEnd(resource Resource, field string) (time.Time, bool) {
	period := GetMap(resource, field)
	if period == nil {
		return time.Time{}, false
	}
	return ParseDate(GetString(period, "end"))
}

// CodeFromConceptOrText returns the status code of a
// CodeableConcept-or-string field. R4 encodes clinicalStatus as a
// CodeableConcept; older data sometimes carries a bare string.
func CodeFromConceptOrText(resource Resource, field string) string {
	switch v := resource[field].(type) {
	case string:
		return v
	case map[string]any:
		code, _ := PickCode(v, "")
		return code
	default:
		return ""
	}
}

// AgeAt computes a calendar-correct age in whole years at the given
// reference time: the year difference, minus one if the birthday has
// not yet occurred in the reference year.
func AgeAt(birthDate, now time.Time) int {
	if birthDate.IsZero() || birthDate.After(now) {
		return 0
	}
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// WithinWindow reports whether t falls within the trailing window
// ending at now. Zero times are never within a window.
func WithinWindow(t, now time.Time, window time.Duration) bool {
	if t.IsZero() {
		return false
	}
	if t.After(now) {
		return true // future-dated records count as current
	}
	return now.Sub(t) <= window
}
