package tables

import (
	"fmt"
	"strconv"

	"github.com/gofhir/fhir/r4"
)

// ChronicCodesFromValueSet extracts condition codes from an R4
// ValueSet, preferring the expansion and falling back to explicitly
// listed compose concepts. Use the result as Config.ChronicCodes to
// drive the chronic classification from a published value set instead
// of the built-in list.
func ChronicCodesFromValueSet(vs *r4.ValueSet) ([]string, error) {
	if vs == nil || vs.Url == nil {
		return nil, fmt.Errorf("tables: valueset is nil or has no URL")
	}

	var codes []string
	seen := make(map[string]bool)
	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	if vs.Expansion != nil {
		for i := range vs.Expansion.Contains {
			collectContains(&vs.Expansion.Contains[i], add)
		}
	}
	if len(codes) == 0 && vs.Compose != nil {
		for i := range vs.Compose.Include {
			include := &vs.Compose.Include[i]
			for j := range include.Concept {
				if include.Concept[j].Code != nil {
					add(*include.Concept[j].Code)
				}
			}
		}
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("tables: valueset %s contains no enumerable codes", *vs.Url)
	}
	return codes, nil
}

func collectContains(contains *r4.ValueSetExpansionContains, add func(string)) {
	if contains.Code != nil {
		add(*contains.Code)
	}
	for i := range contains.Contains {
		collectContains(&contains.Contains[i], add)
	}
}

// LabPrioritiesFromCodeSystem extracts lab priority weights from an R4
// CodeSystem whose concepts carry an integer-valued "priority"
// property. Concepts without the property are skipped and fall back to
// DefaultLabPriority at lookup time.
func LabPrioritiesFromCodeSystem(cs *r4.CodeSystem) (map[string]int, error) {
	if cs == nil || cs.Url == nil {
		return nil, fmt.Errorf("tables: codesystem is nil or has no URL")
	}

	priorities := make(map[string]int)
	collectConceptPriorities(cs.Concept, priorities)
	if len(priorities) == 0 {
		return nil, fmt.Errorf("tables: codesystem %s has no priority properties", *cs.Url)
	}
	return priorities, nil
}

func collectConceptPriorities(concepts []r4.CodeSystemConcept, priorities map[string]int) {
	for i := range concepts {
		concept := &concepts[i]
		if concept.Code != nil {
			for _, prop := range concept.Property {
				if prop.Code == nil || *prop.Code != "priority" || prop.ValueCode == nil {
					continue
				}
				if weight, err := strconv.Atoi(*prop.ValueCode); err == nil {
					priorities[*concept.Code] = weight
				}
			}
		}
		if len(concept.Concept) > 0 {
			collectConceptPriorities(concept.Concept, priorities)
		}
	}
}
