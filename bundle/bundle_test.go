package bundle

import (
	"testing"

	"github.com/gofhir/clinreview/fhirutil"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "p1"}},
			{"resource": {"resourceType": "Observation", "id": "o1"}},
			{"resource": {"resourceType": "Observation", "id": "o2"}},
			{"note": "entry without a resource"},
			{"resource": {"id": "no-type"}}
		]
	}`)

	b, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if b.Type != "collection" {
		t.Errorf("Type = %q, want collection", b.Type)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (malformed entries skipped)", b.Len())
	}

	obs := b.ResourcesOfType("Observation")
	if len(obs) != 2 {
		t.Fatalf("len(ResourcesOfType(Observation)) = %d, want 2", len(obs))
	}
	if fhirutil.ResourceID(obs[0]) != "o1" || fhirutil.ResourceID(obs[1]) != "o2" {
		t.Errorf("observation order = [%s, %s], want [o1, o2]",
			fhirutil.ResourceID(obs[0]), fhirutil.ResourceID(obs[1]))
	}

	patient, ok := b.Patient()
	if !ok {
		t.Fatal("Patient() not found")
	}
	if fhirutil.ResourceID(patient) != "p1" {
		t.Errorf("patient id = %q, want p1", fhirutil.ResourceID(patient))
	}
}

func TestParseSingleResource(t *testing.T) {
	b, err := Parse([]byte(`{"resourceType": "Patient", "id": "p1"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
	if _, ok := b.Patient(); !ok {
		t.Error("Patient() not found in wrapped single resource")
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{broken`)); err == nil {
		t.Error("Parse(invalid JSON) error = nil, want error")
	}
}

func TestFromResources(t *testing.T) {
	b := FromResources(
		fhirutil.Resource{"resourceType": "Patient", "id": "p1"},
		nil,
		fhirutil.Resource{"id": "typeless"},
		fhirutil.Resource{"resourceType": "Condition", "id": "c1"},
	)
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if _, ok := b.FirstOfType("Condition"); !ok {
		t.Error("FirstOfType(Condition) not found")
	}
	if _, ok := b.FirstOfType("Encounter"); ok {
		t.Error("FirstOfType(Encounter) found, want absent")
	}
}
