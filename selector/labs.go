package selector

import (
	"sort"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

// Observation statuses that qualify for selection.
var qualifyingObsStatus = map[string]bool{
	"final":   true,
	"amended": true,
}

// labCandidate tracks the best observation seen so far for one code.
type labCandidate struct {
	resource fhirutil.Resource
	code     string
	display  string
	date     time.Time
}

// LabValues selects at most one processed lab value per lab code: the
// observation with the latest effective date wins, ties keep the first
// encountered. Observations without a final/amended status, a coded
// lab identifier, or a numeric quantity are dropped. The second return
// is the total number of Observations seen.
func (s *Selector) LabValues(b *bundle.Bundle, now time.Time) ([]cr.ProcessedLabValue, int) {
	observations := b.ResourcesOfType("Observation")

	// Group by code, keeping first-encounter order so output stays
	// deterministic for a given bundle.
	byCode := make(map[string]*labCandidate)
	var order []string

	for _, obs := range observations {
		if !qualifyingObsStatus[fhirutil.GetString(obs, "status")] {
			continue
		}

		code, display := fhirutil.PickCode(fhirutil.GetMap(obs, "code"), fhirutil.SystemLOINC)
		if code == "" {
			continue
		}
		if _, _, ok := fhirutil.Quantity(fhirutil.GetMap(obs, "valueQuantity")); !ok {
			continue
		}

		date := observationDate(obs)

		current, seen := byCode[code]
		if !seen {
			byCode[code] = &labCandidate{resource: obs, code: code, display: display, date: date}
			order = append(order, code)
			continue
		}
		if date.After(current.date) {
			byCode[code] = &labCandidate{resource: obs, code: code, display: display, date: date}
		}
	}

	labs := make([]cr.ProcessedLabValue, 0, len(order))
	for _, code := range order {
		labs = append(labs, s.processLab(byCode[code], now))
	}

	sort.SliceStable(labs, func(i, j int) bool {
		if labs[i].RelevanceScore != labs[j].RelevanceScore {
			return labs[i].RelevanceScore > labs[j].RelevanceScore
		}
		if !labs[i].Date.Equal(labs[j].Date) {
			return labs[i].Date.After(labs[j].Date)
		}
		return labs[i].Code < labs[j].Code
	})

	return labs, len(observations)
}

// processLab normalizes units, resolves abnormality against the
// reference range, and scores one winning observation.
func (s *Selector) processLab(c *labCandidate, now time.Time) cr.ProcessedLabValue {
	value, unit, _ := fhirutil.Quantity(fhirutil.GetMap(c.resource, "valueQuantity"))

	lab := cr.ProcessedLabValue{
		Code:            c.code,
		Display:         c.display,
		Value:           value,
		Unit:            unit,
		NormalizedValue: value,
		NormalizedUnit:  unit,
		Date:            c.date,
		SourceRef:       fhirutil.SourceRef(c.resource),
	}

	conv, converted := s.tables.Conversion(c.code, unit)
	if converted {
		lab.NormalizedValue = conv.Apply(value)
		lab.NormalizedUnit = conv.ToUnit
	}

	// Reference range bounds are normalized with the same factor so
	// abnormality is judged in one unit system.
	if low, high, ok := referenceRange(c.resource); ok {
		if converted {
			if low != nil {
				v := conv.Apply(*low)
				low = &v
			}
			if high != nil {
				v := conv.Apply(*high)
				high = &v
			}
		}
		lab.ReferenceRange = cr.ReferenceRange{Low: low, High: high}
		lab.IsAbnormal = !lab.ReferenceRange.Contains(lab.NormalizedValue)
	}

	if interps := fhirutil.GetSlice(c.resource, "interpretation"); len(interps) > 0 {
		if interp, ok := interps[0].(map[string]any); ok {
			code, _ := fhirutil.PickCode(interp, "")
			lab.Interpretation = code
		}
	}

	score := s.tables.LabPriority(c.code)
	if lab.IsAbnormal {
		score += 2
	}
	if fhirutil.WithinWindow(c.date, now, s.options.RecentLabWindow) {
		score++
	}
	lab.RelevanceScore = score

	return lab
}

// observationDate resolves the effective date of an observation,
// trying effectiveDateTime, then effectivePeriod.start, then issued.
// Unparseable dates yield a zero time; the observation is still kept
// but loses recency comparisons.
func observationDate(obs fhirutil.Resource) time.Time {
	if t, ok := fhirutil.DateField(obs, "effectiveDateTime"); ok {
		return t
	}
	if t, ok := fhirutil.PeriodStart(obs, "effectivePeriod"); ok {
		return t
	}
	if t, ok := fhirutil.DateField(obs, "issued"); ok {
		return t
	}
	return time.Time{}
}

// referenceRange extracts the first reference range's numeric bounds.
func referenceRange(obs fhirutil.Resource) (low, high *float64, ok bool) {
	ranges := fhirutil.GetSlice(obs, "referenceRange")
	if len(ranges) == 0 {
		return nil, nil, false
	}
	r, isMap := ranges[0].(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	if v, _, found := fhirutil.Quantity(fhirutil.GetMap(r, "low")); found {
		low = &v
	}
	if v, _, found := fhirutil.Quantity(fhirutil.GetMap(r, "high")); found {
		high = &v
	}
	return low, high, low != nil || high != nil
}
