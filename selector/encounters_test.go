package selector

import (
	"fmt"
	"testing"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/bundle"
	"github.com/gofhir/clinreview/fhirutil"
)

func encounter(id, status, start string) fhirutil.Resource {
	r := fhirutil.Resource{
		"resourceType": "Encounter",
		"id":           id,
		"status":       status,
		"type": []any{
			map[string]any{"text": "Office visit"},
		},
	}
	if start != "" {
		r["period"] = map[string]any{"start": start}
	}
	return r
}

func TestEncountersFilterAndSort(t *testing.T) {
	s := New(nil)
	b := bundle.FromResources(
		encounter("e1", "finished", "2024-01-10"),
		encounter("e2", "planned", "2024-02-20"),
		encounter("e3", "in-progress", "2024-02-25"),
		encounter("e4", "cancelled", "2024-02-01"),
		encounter("e5", "finished", "2024-02-15"),
	)

	encounters := s.Encounters(b)
	if len(encounters) != 3 {
		t.Fatalf("len(encounters) = %d, want 3", len(encounters))
	}

	want := []string{"e3", "e5", "e1"} // newest first
	for i, id := range want {
		if encounters[i].ID != id {
			t.Errorf("encounters[%d].ID = %q, want %q", i, encounters[i].ID, id)
		}
	}
	if encounters[0].Type != "Office visit" {
		t.Errorf("Type = %q, want Office visit", encounters[0].Type)
	}
}

func TestEncountersLimit(t *testing.T) {
	resources := make([]fhirutil.Resource, 0, 15)
	for i := 0; i < 15; i++ {
		resources = append(resources,
			encounter(fmt.Sprintf("e%02d", i), "finished", fmt.Sprintf("2024-01-%02d", i+1)))
	}

	s := New(nil, cr.WithEncounterLimit(5))
	encounters := s.Encounters(bundle.FromResources(resources...))
	if len(encounters) != 5 {
		t.Fatalf("len(encounters) = %d, want capped 5", len(encounters))
	}
	if encounters[0].ID != "e14" {
		t.Errorf("encounters[0].ID = %q, want newest e14", encounters[0].ID)
	}
}

func TestEncountersPeriodEnd(t *testing.T) {
	e := encounter("e1", "finished", "2024-01-10")
	e["period"] = map[string]any{"start": "2024-01-10", "end": "2024-01-12"}

	s := New(nil)
	encounters := s.Encounters(bundle.FromResources(e))
	if encounters[0].End.IsZero() {
		t.Error("End not parsed from period")
	}
}
