package tables

import (
	"strings"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/fhirutil"
)

// CareGapRule is a preventive-care screening rule: a demographic
// eligibility predicate plus a gap check over the selection. Rules are
// flat values, not a type hierarchy; custom rule sets supply their own
// function fields.
type CareGapRule struct {
	// ID names the rule; the emitted item's ID is "care-gap-" + ID.
	ID string

	// Name is the human-readable screening name.
	Name string

	// Description explains what the rule screens for.
	Description string

	// Recommendation is the follow-up action when a gap is found.
	Recommendation string

	// Applies reports whether the patient is demographically eligible.
	Applies func(patient *cr.Patient, now time.Time) bool

	// CheckGap reports whether a gap exists: true when no qualifying
	// recent evidence is found in the selection.
	CheckGap func(selection *cr.SelectionResult, now time.Time) bool
}

// HasRecentEvidence scans the selection's lab values for qualifying
// evidence: a code in codes, or a display containing one of the
// keywords (case-insensitive). It returns true when the most recent
// match falls within the trailing window ending at now.
func HasRecentEvidence(selection *cr.SelectionResult, codes, keywords []string, window time.Duration, now time.Time) bool {
	var newest time.Time
	for _, lab := range selection.LabValues {
		if !evidenceMatches(lab, codes, keywords) {
			continue
		}
		if lab.Date.After(newest) {
			newest = lab.Date
		}
	}
	if newest.IsZero() {
		return false
	}
	return fhirutil.WithinWindow(newest, now, window)
}

func evidenceMatches(lab cr.ProcessedLabValue, codes, keywords []string) bool {
	for _, code := range codes {
		if lab.Code == code {
			return true
		}
	}
	display := strings.ToLower(lab.Display)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(display, kw) {
			return true
		}
	}
	return false
}

// ageBetween builds an Applies predicate for an inclusive age band,
// optionally restricted to one gender. Age is computed with
// calendar-correct arithmetic from the birth date.
func ageBetween(minAge, maxAge int, gender string) func(*cr.Patient, time.Time) bool {
	return func(p *cr.Patient, now time.Time) bool {
		if p == nil || p.BirthDate.IsZero() {
			return false
		}
		if gender != "" && p.Gender != gender {
			return false
		}
		age := fhirutil.AgeAt(p.BirthDate, now)
		return age >= minAge && age <= maxAge
	}
}

// Staleness windows for the default screening rules, in days.
const (
	mammographyWindowDays = 730
	colonoscopyWindowDays = 3650
	hba1cWindowDays       = 180
	lipidWindowDays       = 1825
)

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// DefaultCareGapRules returns the built-in screening rules.
func DefaultCareGapRules() []CareGapRule {
	return []CareGapRule{
		{
			ID:             "mammography-screening",
			Name:           "Mammography Screening",
			Description:    "Breast cancer screening for women aged 50-74",
			Recommendation: "Schedule a screening mammogram",
			Applies:        ageBetween(50, 74, "female"),
			CheckGap: func(sel *cr.SelectionResult, now time.Time) bool {
				return !HasRecentEvidence(sel,
					[]string{"24606-6"}, []string{"mammogra"},
					days(mammographyWindowDays), now)
			},
		},
		{
			ID:             "colonoscopy-screening",
			Name:           "Colonoscopy Screening",
			Description:    "Colorectal cancer screening for adults aged 45-75",
			Recommendation: "Schedule colorectal cancer screening",
			Applies:        ageBetween(45, 75, ""),
			CheckGap: func(sel *cr.SelectionResult, now time.Time) bool {
				return !HasRecentEvidence(sel,
					[]string{"18746-8"}, []string{"colonoscop"},
					days(colonoscopyWindowDays), now)
			},
		},
		{
			ID:             "hba1c-monitoring",
			Name:           "HbA1c Monitoring",
			Description:    "Glycemic control monitoring for patients with diabetes",
			Recommendation: "Order an HbA1c test",
			// Eligibility is not demographic; the active-diabetes
			// check in CheckGap is the whole gate.
			Applies: func(p *cr.Patient, _ time.Time) bool {
				return p != nil
			},
			CheckGap: func(sel *cr.SelectionResult, now time.Time) bool {
				// Only evaluated for patients with an active
				// diabetes condition.
				if !sel.HasActiveCondition(diabetesCodeSet()) {
					return false
				}
				return !HasRecentEvidence(sel,
					[]string{"4548-4"}, []string{"hba1c", "hemoglobin a1c"},
					days(hba1cWindowDays), now)
			},
		},
		{
			ID:             "lipid-panel",
			Name:           "Lipid Panel",
			Description:    "Cholesterol screening for adults aged 40 and over",
			Recommendation: "Order a fasting lipid panel",
			Applies:        ageBetween(40, 120, ""),
			CheckGap: func(sel *cr.SelectionResult, now time.Time) bool {
				return !HasRecentEvidence(sel,
					[]string{"57698-3", "2093-3", "2089-1"},
					[]string{"lipid", "cholesterol"},
					days(lipidWindowDays), now)
			},
		},
	}
}
