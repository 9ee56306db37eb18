package tables

import (
	"testing"
	"time"

	cr "github.com/gofhir/clinreview"
)

var testNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func patientAged(age int, gender string) *cr.Patient {
	return &cr.Patient{
		Gender:    gender,
		BirthDate: testNow.AddDate(-age, 0, -1),
	}
}

func ruleByID(t *testing.T, id string) CareGapRule {
	t.Helper()
	for _, rule := range DefaultCareGapRules() {
		if rule.ID == id {
			return rule
		}
	}
	t.Fatalf("rule %q not found", id)
	return CareGapRule{}
}

func TestHasRecentEvidence(t *testing.T) {
	sel := &cr.SelectionResult{
		LabValues: []cr.ProcessedLabValue{
			{Code: "24606-6", Display: "Mammogram report", Date: testNow.AddDate(-1, 0, 0)},
			{Code: "4548-4", Display: "Hemoglobin A1c", Date: testNow.AddDate(0, -2, 0)},
		},
	}

	if !HasRecentEvidence(sel, []string{"24606-6"}, nil, days(730), testNow) {
		t.Error("code match within window = false, want true")
	}
	if !HasRecentEvidence(sel, nil, []string{"mammogra"}, days(730), testNow) {
		t.Error("keyword match within window = false, want true")
	}
	if HasRecentEvidence(sel, []string{"24606-6"}, nil, days(180), testNow) {
		t.Error("evidence outside window = true, want false")
	}
	if HasRecentEvidence(sel, []string{"99999-9"}, []string{"colonoscop"}, days(3650), testNow) {
		t.Error("no matching evidence = true, want false")
	}
}

func TestMammographyRule(t *testing.T) {
	rule := ruleByID(t, "mammography-screening")

	tests := []struct {
		name    string
		patient *cr.Patient
		want    bool
	}{
		{"eligible female", patientAged(60, "female"), true},
		{"male", patientAged(60, "male"), false},
		{"too young", patientAged(45, "female"), false},
		{"too old", patientAged(80, "female"), false},
		{"no birth date", &cr.Patient{Gender: "female"}, false},
		{"nil patient", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Applies(tt.patient, testNow); got != tt.want {
				t.Errorf("Applies() = %v, want %v", got, tt.want)
			}
		})
	}

	// Gap exists with no evidence, closes with a recent mammogram.
	empty := &cr.SelectionResult{}
	if !rule.CheckGap(empty, testNow) {
		t.Error("CheckGap(no evidence) = false, want true")
	}
	screened := &cr.SelectionResult{
		LabValues: []cr.ProcessedLabValue{
			{Code: "24606-6", Date: testNow.AddDate(-1, 0, 0)},
		},
	}
	if rule.CheckGap(screened, testNow) {
		t.Error("CheckGap(recent mammogram) = true, want false")
	}
}

func TestHbA1cRuleAppliesRegardlessOfDemographics(t *testing.T) {
	rule := ruleByID(t, "hba1c-monitoring")

	// The condition check in CheckGap is the whole gate; a child
	// diabetic or a patient without a birth date is still eligible.
	if !rule.Applies(patientAged(12, "male"), testNow) {
		t.Error("Applies(12-year-old) = false, want true")
	}
	if !rule.Applies(&cr.Patient{Gender: "female"}, testNow) {
		t.Error("Applies(no birth date) = false, want true")
	}
	if rule.Applies(nil, testNow) {
		t.Error("Applies(nil patient) = true, want false")
	}
}

func TestHbA1cRuleRequiresDiabetes(t *testing.T) {
	rule := ruleByID(t, "hba1c-monitoring")

	noDiabetes := &cr.SelectionResult{
		Conditions: []cr.ProcessedCondition{
			{Code: "38341003", IsActive: true}, // hypertension
		},
	}
	if rule.CheckGap(noDiabetes, testNow) {
		t.Error("CheckGap without diabetes = true, want false")
	}

	diabetic := &cr.SelectionResult{
		Conditions: []cr.ProcessedCondition{
			{Code: "44054006", IsActive: true},
		},
	}
	if !rule.CheckGap(diabetic, testNow) {
		t.Error("CheckGap(diabetic, no HbA1c) = false, want true")
	}

	// Inactive diabetes does not trigger monitoring.
	resolved := &cr.SelectionResult{
		Conditions: []cr.ProcessedCondition{
			{Code: "44054006", IsActive: false},
		},
	}
	if rule.CheckGap(resolved, testNow) {
		t.Error("CheckGap(resolved diabetes) = true, want false")
	}

	monitored := &cr.SelectionResult{
		Conditions: []cr.ProcessedCondition{
			{Code: "44054006", IsActive: true},
		},
		LabValues: []cr.ProcessedLabValue{
			{Code: "4548-4", Date: testNow.AddDate(0, -2, 0)},
		},
	}
	if rule.CheckGap(monitored, testNow) {
		t.Error("CheckGap(recent HbA1c) = true, want false")
	}
}

func TestColonoscopyRuleAgeBand(t *testing.T) {
	rule := ruleByID(t, "colonoscopy-screening")

	if !rule.Applies(patientAged(45, "male"), testNow) {
		t.Error("Applies(45) = false, want true")
	}
	if !rule.Applies(patientAged(75, "female"), testNow) {
		t.Error("Applies(75) = false, want true")
	}
	if rule.Applies(patientAged(44, "male"), testNow) {
		t.Error("Applies(44) = true, want false")
	}
	if rule.Applies(patientAged(76, "male"), testNow) {
		t.Error("Applies(76) = true, want false")
	}
}
