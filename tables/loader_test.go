package tables

import (
	"testing"

	"github.com/gofhir/fhir/r4"
)

func strptr(s string) *string { return &s }

func TestChronicCodesFromValueSetExpansion(t *testing.T) {
	vs := &r4.ValueSet{
		Url: strptr("http://example.org/ValueSet/chronic"),
		Expansion: &r4.ValueSetExpansion{
			Contains: []r4.ValueSetExpansionContains{
				{Code: strptr("44054006")},
				{
					Code: strptr("38341003"),
					Contains: []r4.ValueSetExpansionContains{
						{Code: strptr("59621000")}, // nested
					},
				},
				{Code: strptr("44054006")}, // duplicate
			},
		},
	}

	codes, err := ChronicCodesFromValueSet(vs)
	if err != nil {
		t.Fatalf("ChronicCodesFromValueSet() error = %v", err)
	}
	want := []string{"44054006", "38341003", "59621000"}
	if len(codes) != len(want) {
		t.Fatalf("len(codes) = %d, want %d (%v)", len(codes), len(want), codes)
	}
	for i, code := range want {
		if codes[i] != code {
			t.Errorf("codes[%d] = %q, want %q", i, codes[i], code)
		}
	}
}

func TestChronicCodesFromValueSetCompose(t *testing.T) {
	vs := &r4.ValueSet{
		Url: strptr("http://example.org/ValueSet/chronic"),
		Compose: &r4.ValueSetCompose{
			Include: []r4.ValueSetComposeInclude{
				{
					System: strptr("http://snomed.info/sct"),
					Concept: []r4.ValueSetComposeIncludeConcept{
						{Code: strptr("195967001")},
						{Code: strptr("13645005")},
					},
				},
			},
		},
	}

	codes, err := ChronicCodesFromValueSet(vs)
	if err != nil {
		t.Fatalf("ChronicCodesFromValueSet() error = %v", err)
	}
	if len(codes) != 2 || codes[0] != "195967001" || codes[1] != "13645005" {
		t.Errorf("codes = %v, want [195967001 13645005]", codes)
	}
}

func TestChronicCodesFromValueSetErrors(t *testing.T) {
	if _, err := ChronicCodesFromValueSet(nil); err == nil {
		t.Error("nil valueset: error = nil, want error")
	}
	empty := &r4.ValueSet{Url: strptr("http://example.org/empty")}
	if _, err := ChronicCodesFromValueSet(empty); err == nil {
		t.Error("empty valueset: error = nil, want error")
	}
}

func TestLabPrioritiesFromCodeSystem(t *testing.T) {
	cs := &r4.CodeSystem{
		Url: strptr("http://example.org/CodeSystem/lab-priorities"),
		Concept: []r4.CodeSystemConcept{
			{
				Code: strptr("4548-4"),
				Property: []r4.CodeSystemConceptProperty{
					{Code: strptr("priority"), ValueCode: strptr("10")},
				},
			},
			{
				Code: strptr("panel"),
				Concept: []r4.CodeSystemConcept{
					{
						Code: strptr("2345-7"),
						Property: []r4.CodeSystemConceptProperty{
							{Code: strptr("priority"), ValueCode: strptr("9")},
						},
					},
				},
			},
			{
				Code: strptr("no-priority"),
				Property: []r4.CodeSystemConceptProperty{
					{Code: strptr("status"), ValueCode: strptr("active")},
				},
			},
			{
				Code: strptr("bad-value"),
				Property: []r4.CodeSystemConceptProperty{
					{Code: strptr("priority"), ValueCode: strptr("high")},
				},
			},
		},
	}

	priorities, err := LabPrioritiesFromCodeSystem(cs)
	if err != nil {
		t.Fatalf("LabPrioritiesFromCodeSystem() error = %v", err)
	}
	if len(priorities) != 2 {
		t.Errorf("len(priorities) = %d, want 2 (%v)", len(priorities), priorities)
	}
	if priorities["4548-4"] != 10 {
		t.Errorf("priorities[4548-4] = %d, want 10", priorities["4548-4"])
	}
	if priorities["2345-7"] != 9 {
		t.Errorf("nested priorities[2345-7] = %d, want 9", priorities["2345-7"])
	}
}

func TestLabPrioritiesFromCodeSystemErrors(t *testing.T) {
	if _, err := LabPrioritiesFromCodeSystem(nil); err == nil {
		t.Error("nil codesystem: error = nil, want error")
	}
	empty := &r4.CodeSystem{Url: strptr("http://example.org/empty")}
	if _, err := LabPrioritiesFromCodeSystem(empty); err == nil {
		t.Error("codesystem without priorities: error = nil, want error")
	}
}
