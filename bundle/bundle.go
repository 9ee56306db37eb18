// Package bundle parses FHIR bundles into the generic resource maps
// the selection pipeline consumes.
//
// Parsing is deliberately lenient: entries without a resource, with an
// unknown resourceType, or with malformed bodies are skipped rather
// than rejected. The engine only needs the handful of fields each
// selection rule reads; full schema validation is a caller concern.
package bundle

import (
	"encoding/json"
	"fmt"

	"github.com/gofhir/clinreview/fhirutil"
)

// Bundle holds the parsed entries of a FHIR bundle in document order.
type Bundle struct {
	// Type is the bundle type (collection, searchset, ...).
	Type string

	// Resources holds each entry's resource map, in entry order.
	Resources []fhirutil.Resource
}

// Parse parses a FHIR bundle from JSON. A top-level resource that is
// not a Bundle is wrapped as a single-entry bundle, which lets callers
// feed individual resources through the same path.
func Parse(data []byte) (*Bundle, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("bundle: invalid JSON: %w", err)
	}
	return FromMap(root), nil
}

// FromMap builds a Bundle from an already-parsed resource map.
func FromMap(root map[string]any) *Bundle {
	if fhirutil.ResourceType(root) != "Bundle" {
		b := &Bundle{}
		if fhirutil.ResourceType(root) != "" {
			b.Resources = append(b.Resources, root)
		}
		return b
	}

	b := &Bundle{Type: fhirutil.GetString(root, "type")}
	for _, e := range fhirutil.GetSlice(root, "entry") {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		resource := fhirutil.GetMap(entry, "resource")
		if resource == nil || fhirutil.ResourceType(resource) == "" {
			continue
		}
		b.Resources = append(b.Resources, resource)
	}
	return b
}

// FromResources builds a Bundle directly from resource maps, skipping
// any without a resourceType. Useful in tests.
func FromResources(resources ...fhirutil.Resource) *Bundle {
	b := &Bundle{}
	for _, r := range resources {
		if r == nil || fhirutil.ResourceType(r) == "" {
			continue
		}
		b.Resources = append(b.Resources, r)
	}
	return b
}

// ResourcesOfType returns all entries with the given resourceType, in
// bundle order.
func (b *Bundle) ResourcesOfType(resourceType string) []fhirutil.Resource {
	var matched []fhirutil.Resource
	for _, r := range b.Resources {
		if fhirutil.ResourceType(r) == resourceType {
			matched = append(matched, r)
		}
	}
	return matched
}

// FirstOfType returns the first entry with the given resourceType.
func (b *Bundle) FirstOfType(resourceType string) (fhirutil.Resource, bool) {
	for _, r := range b.Resources {
		if fhirutil.ResourceType(r) == resourceType {
			return r, true
		}
	}
	return nil, false
}

// Patient returns the bundle's Patient resource, if present.
func (b *Bundle) Patient() (fhirutil.Resource, bool) {
	return b.FirstOfType("Patient")
}

// Len returns the number of parsed entries.
func (b *Bundle) Len() int {
	return len(b.Resources)
}
