package analyzer

import (
	"strings"
	"testing"
	"time"

	cr "github.com/gofhir/clinreview"
)

func activeMed(name, code string, authoredDaysAgo int) cr.ProcessedMedication {
	return cr.ProcessedMedication{
		Name:         name,
		Code:         code,
		Status:       "active",
		IsActive:     true,
		AuthoredDate: testNow.AddDate(0, 0, -authoredDaysAgo),
		SourceRef:    "MedicationRequest/" + name,
	}
}

func TestMedicationsInteraction(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("warfarin", "11289", 10),
		activeMed("aspirin", "1191", 5),
	}

	items := Medications(meds, nil, nil, testNow)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	item := items[0]

	if item.Type != cr.ItemMedInteraction {
		t.Errorf("Type = %q, want med-interaction", item.Type)
	}
	if item.Severity != cr.SeverityHigh {
		t.Errorf("Severity = %q, want high", item.Severity)
	}
	if !item.ActionRequired {
		t.Error("high-severity interaction should require action")
	}
	if !strings.HasPrefix(item.ID, "med-interaction-") {
		t.Errorf("ID = %q, want med-interaction- prefix", item.ID)
	}
	if !item.DateIdentified.Equal(testNow) {
		t.Errorf("DateIdentified = %v, want now", item.DateIdentified)
	}
}

func TestMedicationsMediumInteractionNoAction(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("lisinopril", "29046", 10),
		activeMed("spironolactone", "9997", 10),
	}

	items := Medications(meds, nil, nil, testNow)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].Severity != cr.SeverityMedium {
		t.Errorf("Severity = %q, want medium", items[0].Severity)
	}
	if items[0].ActionRequired {
		t.Error("medium interaction should not require action")
	}
}

func TestMedicationsInactiveExcluded(t *testing.T) {
	completed := activeMed("warfarin", "11289", 10)
	completed.Status = "completed"
	completed.IsActive = false

	meds := []cr.ProcessedMedication{
		completed,
		activeMed("aspirin", "1191", 5),
	}

	if items := Medications(meds, nil, nil, testNow); len(items) != 0 {
		t.Errorf("len(items) = %d, want 0 when one drug is inactive", len(items))
	}
}

func TestMedicationsDuplicate(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("aspirin-81", "1191", 10),
		activeMed("aspirin-325", "1191", 5),
	}

	items := Medications(meds, nil, nil, testNow)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	item := items[0]

	if item.Type != cr.ItemMedInteraction {
		t.Errorf("Type = %q, want med-interaction", item.Type)
	}
	if !strings.HasPrefix(item.ID, "med-duplicate-1191-") {
		t.Errorf("ID = %q, want med-duplicate-1191- prefix", item.ID)
	}
	if item.Severity != cr.SeverityMedium || !item.ActionRequired {
		t.Errorf("duplicate = (%q, action=%v), want medium with action", item.Severity, item.ActionRequired)
	}
}

func TestMedicationsEmptyCodeNeverDuplicates(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("mystery-a", "", 10),
		activeMed("mystery-b", "", 5),
	}
	if items := Medications(meds, nil, nil, testNow); len(items) != 0 {
		t.Errorf("len(items) = %d, want 0 for uncoded orders", len(items))
	}
}

func TestMedicationsAdherence(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("metformin", "6809", 120), // beyond the 90-day window
		activeMed("aspirin", "1191", 10),    // within window
	}

	items := Medications(meds, nil, nil, testNow)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	item := items[0]

	if item.Type != cr.ItemMedAdherence {
		t.Errorf("Type = %q, want med-adherence", item.Type)
	}
	if item.Severity != cr.SeverityLow {
		t.Errorf("Severity = %q, want low", item.Severity)
	}
	if item.ActionRequired {
		t.Error("adherence reminders should not require action")
	}
	if !strings.Contains(item.Description, "120 days") {
		t.Errorf("Description = %q, want active-days count", item.Description)
	}
}

func TestMedicationsAdherenceSkipsUndatedAndInactive(t *testing.T) {
	undated := activeMed("metformin", "6809", 0)
	undated.AuthoredDate = time.Time{}

	inactive := activeMed("warfarin", "11289", 200)
	inactive.IsActive = false
	inactive.Status = "completed"

	if items := Medications([]cr.ProcessedMedication{undated, inactive}, nil, nil, testNow); len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestMedicationsInteractionAndDuplicateBothFire(t *testing.T) {
	meds := []cr.ProcessedMedication{
		activeMed("warfarin", "11289", 10),
		activeMed("aspirin-81", "1191", 5),
		activeMed("aspirin-325", "1191", 3),
	}

	items := Medications(meds, nil, nil, testNow)

	var interactions, duplicates int
	for _, item := range items {
		switch {
		case strings.HasPrefix(item.ID, "med-interaction-"):
			interactions++
		case strings.HasPrefix(item.ID, "med-duplicate-"):
			duplicates++
		}
	}
	if interactions != 2 {
		t.Errorf("interactions = %d, want 2 (warfarin against each aspirin)", interactions)
	}
	if duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", duplicates)
	}
}
