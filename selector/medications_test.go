package selector

import (
	"testing"

	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

func medicationRequest(id, code, display, status, authored string) fhirutil.Resource {
	return fhirutil.Resource{
		"resourceType": "MedicationRequest",
		"id":           id,
		"status":       status,
		"medicationCodeableConcept": map[string]any{
			"coding": []any{
				map[string]any{"system": fhirutil.SystemRxNorm, "code": code, "display": display},
			},
			"text": display,
		},
		"authoredOn": authored,
	}
}

func TestActiveMedicationsStatusRules(t *testing.T) {
	s := New(nil)
	b := bundle.FromResources(
		medicationRequest("m1", "11289", "Warfarin", "active", "2024-01-10"),
		medicationRequest("m2", "1191", "Aspirin", "completed", "2024-02-01"),  // recent completed: kept
		medicationRequest("m3", "5640", "Ibuprofen", "completed", "2023-10-01"), // stale completed: dropped
		medicationRequest("m4", "7646", "Omeprazole", "stopped", "2024-02-01"),  // dropped
	)

	meds, total := s.ActiveMedications(b, testNow)
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(meds) != 2 {
		t.Fatalf("len(meds) = %d, want 2", len(meds))
	}

	byName := make(map[string]bool)
	for _, m := range meds {
		byName[m.Name] = m.IsActive
	}
	if active, ok := byName["Warfarin"]; !ok || !active {
		t.Error("active warfarin missing or not marked active")
	}
	if active, ok := byName["Aspirin"]; !ok || active {
		t.Error("recent completed aspirin missing or wrongly marked active")
	}
}

func TestActiveMedicationsNotDeduplicated(t *testing.T) {
	s := New(nil)
	b := bundle.FromResources(
		medicationRequest("m1", "1191", "Aspirin 81mg", "active", "2024-01-10"),
		medicationRequest("m2", "1191", "Aspirin 325mg", "active", "2024-02-01"),
	)

	meds, _ := s.ActiveMedications(b, testNow)
	if len(meds) != 2 {
		t.Errorf("len(meds) = %d, want 2 (duplicates preserved for the analyzer)", len(meds))
	}
}

func TestActiveMedicationsLegacyResourceType(t *testing.T) {
	legacy := medicationRequest("m1", "11289", "Warfarin", "active", "2024-01-10")
	legacy["resourceType"] = "MedicationOrder"

	s := New(nil)
	meds, total := s.ActiveMedications(bundle.FromResources(legacy), testNow)
	if total != 1 || len(meds) != 1 {
		t.Errorf("MedicationOrder not selected: total=%d kept=%d", total, len(meds))
	}
}

func TestProcessMedicationFields(t *testing.T) {
	order := medicationRequest("m1", "29046", "Lisinopril", "active", "2024-02-20")
	order["dosageInstruction"] = []any{
		map[string]any{
			"text":  "10 mg once daily",
			"route": map[string]any{"text": "oral"},
			"timing": map[string]any{
				"repeat": map[string]any{"frequency": 1.0, "period": 1.0, "periodUnit": "d"},
			},
		},
	}
	order["category"] = []any{
		map[string]any{"coding": []any{map[string]any{"code": "outpatient"}}},
	}

	s := New(nil)
	meds, _ := s.ActiveMedications(bundle.FromResources(order), testNow)
	if len(meds) != 1 {
		t.Fatalf("len(meds) = %d, want 1", len(meds))
	}
	m := meds[0]

	if m.Code != "29046" {
		t.Errorf("Code = %q, want 29046", m.Code)
	}
	if m.Dosage != "10 mg once daily" {
		t.Errorf("Dosage = %q", m.Dosage)
	}
	if m.Route != "oral" {
		t.Errorf("Route = %q, want oral", m.Route)
	}
	if m.Frequency != "1 times per 1 d" {
		t.Errorf("Frequency = %q, want \"1 times per 1 d\"", m.Frequency)
	}
	if m.Category != "outpatient" {
		t.Errorf("Category = %q, want outpatient", m.Category)
	}
	// active (+3) and recent (+2) on the base of 5.
	if m.RelevanceScore != 10 {
		t.Errorf("RelevanceScore = %d, want 10", m.RelevanceScore)
	}
}

func TestProcessMedicationInpatientBonus(t *testing.T) {
	order := medicationRequest("m1", "11289", "Warfarin", "active", "2024-02-20")
	order["category"] = []any{
		map[string]any{"coding": []any{map[string]any{"code": "inpatient"}}},
	}

	s := New(nil)
	meds, _ := s.ActiveMedications(bundle.FromResources(order), testNow)
	if meds[0].RelevanceScore != 11 {
		t.Errorf("RelevanceScore = %d, want 11 with inpatient bonus", meds[0].RelevanceScore)
	}
}

func TestProcessMedicationNameFallback(t *testing.T) {
	order := fhirutil.Resource{
		"resourceType":        "MedicationRequest",
		"id":                  "m1",
		"status":              "active",
		"medicationReference": map[string]any{"display": "Metformin 500mg"},
	}

	s := New(nil)
	meds, _ := s.ActiveMedications(bundle.FromResources(order), testNow)
	if len(meds) != 1 {
		t.Fatalf("len(meds) = %d, want 1", len(meds))
	}
	if meds[0].Name != "Metformin 500mg" {
		t.Errorf("Name = %q, want reference display fallback", meds[0].Name)
	}
	if meds[0].HasAuthoredDate() {
		t.Error("HasAuthoredDate() = true, want false without authoredOn")
	}
}

func TestActiveMedicationsSortedByScore(t *testing.T) {
	s := New(nil)
	b := bundle.FromResources(
		medicationRequest("old", "1191", "Aspirin", "completed", "2024-01-15"), // 5
		medicationRequest("new", "11289", "Warfarin", "active", "2024-02-20"),  // 10
	)

	meds, _ := s.ActiveMedications(b, testNow)
	if meds[0].Name != "Warfarin" {
		t.Errorf("meds[0] = %q, want highest-scored Warfarin", meds[0].Name)
	}
}
