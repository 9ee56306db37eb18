// Package tables holds the static reference data the selection and
// review stages consult: lab priority weights, the chronic-condition
// code set, unit conversions, medication interaction pairs, and
// preventive-care screening rules.
//
// A Tables value is immutable once built. The package-level Default()
// table is constructed from embedded data at first use; tests and
// deployments can build alternate tables and pass them explicitly, so
// no behavior hides behind package state.
package tables

import (
	"strings"

	"github.com/shopspring/decimal"

	cr "github.com/gofhir/clinreview"
)

// DefaultLabPriority is the weight assigned to lab codes absent from
// the priority table.
const DefaultLabPriority = 3

// UnitConversion normalizes one (code, unit) pair to a target unit by
// scalar multiplication.
type UnitConversion struct {
	// Factor multiplies the source value.
	Factor decimal.Decimal

	// ToUnit is the unit label after conversion.
	ToUnit string
}

// Apply converts a source value to the target unit.
func (c UnitConversion) Apply(value float64) float64 {
	converted, _ := decimal.NewFromFloat(value).Mul(c.Factor).Float64()
	return converted
}

// InteractionRule describes a known interaction between two drugs,
// matched symmetrically by canonical code pair.
type InteractionRule struct {
	// CodeA and CodeB are the RxNorm ingredient codes of the pair.
	CodeA string
	CodeB string

	// Severity of the interaction finding.
	Severity cr.Severity

	// Description explains the interaction.
	Description string

	// Action is the recommended follow-up.
	Action string
}

// Matches reports whether the rule covers the given code pair, in
// either order.
func (r InteractionRule) Matches(a, b string) bool {
	return (r.CodeA == a && r.CodeB == b) || (r.CodeA == b && r.CodeB == a)
}

// conversionKey identifies a unit conversion by lab code and source unit.
type conversionKey struct {
	code string
	unit string
}

// pairKey identifies an interaction by its ordered code pair.
type pairKey struct {
	a string
	b string
}

func orderedPair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Tables aggregates all reference data. Build one with New or
// Default(); do not mutate it afterwards.
type Tables struct {
	labPriorities map[string]int
	chronicCodes  map[string]bool
	conversions   map[conversionKey]UnitConversion
	interactions  map[pairKey]InteractionRule
	careGaps      []CareGapRule
}

// Config carries the raw data New assembles into a Tables value.
type Config struct {
	LabPriorities   map[string]int
	ChronicCodes    []string
	UnitConversions map[string]map[string]UnitConversion // code -> unit -> conversion
	Interactions    []InteractionRule
	CareGaps        []CareGapRule
}

// New builds an immutable Tables from a Config. All inputs are copied.
func New(cfg Config) *Tables {
	t := &Tables{
		labPriorities: make(map[string]int, len(cfg.LabPriorities)),
		chronicCodes:  make(map[string]bool, len(cfg.ChronicCodes)),
		conversions:   make(map[conversionKey]UnitConversion),
		interactions:  make(map[pairKey]InteractionRule, len(cfg.Interactions)),
		careGaps:      make([]CareGapRule, len(cfg.CareGaps)),
	}
	for code, weight := range cfg.LabPriorities {
		t.labPriorities[code] = weight
	}
	for _, code := range cfg.ChronicCodes {
		t.chronicCodes[code] = true
	}
	for code, byUnit := range cfg.UnitConversions {
		for unit, conv := range byUnit {
			t.conversions[conversionKey{code: code, unit: normalizeUnit(unit)}] = conv
		}
	}
	for _, rule := range cfg.Interactions {
		t.interactions[orderedPair(rule.CodeA, rule.CodeB)] = rule
	}
	copy(t.careGaps, cfg.CareGaps)
	return t
}

// DefaultConfig returns the built-in reference data as a mutable
// Config, for callers that want to adjust it before building tables.
func DefaultConfig() Config {
	return Config{
		LabPriorities:   defaultLabPriorities(),
		ChronicCodes:    defaultChronicCodes(),
		UnitConversions: defaultUnitConversions(),
		Interactions:    defaultInteractions(),
		CareGaps:        DefaultCareGapRules(),
	}
}

// Default returns the built-in reference tables.
func Default() *Tables {
	return New(DefaultConfig())
}

// LabPriority returns the priority weight for a lab code, falling back
// to DefaultLabPriority for unknown codes.
func (t *Tables) LabPriority(code string) int {
	if w, ok := t.labPriorities[code]; ok {
		return w
	}
	return DefaultLabPriority
}

// IsChronic reports whether the code belongs to the chronic-condition set.
func (t *Tables) IsChronic(code string) bool {
	return t.chronicCodes[code]
}

// Conversion returns the unit conversion for a (code, unit) pair.
func (t *Tables) Conversion(code, unit string) (UnitConversion, bool) {
	conv, ok := t.conversions[conversionKey{code: code, unit: normalizeUnit(unit)}]
	return conv, ok
}

// Interaction returns the interaction rule covering the code pair, in
// either order.
func (t *Tables) Interaction(a, b string) (InteractionRule, bool) {
	if a == "" || b == "" {
		return InteractionRule{}, false
	}
	rule, ok := t.interactions[orderedPair(a, b)]
	return rule, ok
}

// CareGapRules returns the screening rules in evaluation order.
func (t *Tables) CareGapRules() []CareGapRule {
	return t.careGaps
}

// normalizeUnit canonicalizes unit strings for table lookup.
func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// defaultLabPriorities maps common LOINC codes to priority weights.
func defaultLabPriorities() map[string]int {
	return map[string]int{
		"4548-4":  10, // Hemoglobin A1c
		"2345-7":  9,  // Glucose, serum
		"2339-0":  9,  // Glucose, blood
		"2160-0":  9,  // Creatinine
		"2823-3":  9,  // Potassium
		"5902-2":  9,  // INR
		"33914-3": 8,  // eGFR
		"2951-2":  8,  // Sodium
		"2093-3":  8,  // Cholesterol, total
		"2089-1":  8,  // LDL cholesterol
		"718-7":   8,  // Hemoglobin
		"57698-3": 8,  // Lipid panel
		"2085-9":  7,  // HDL cholesterol
		"2571-8":  7,  // Triglycerides
		"6690-2":  7,  // WBC count
		"777-3":   7,  // Platelets
		"3016-3":  7,  // TSH
		"1742-6":  6,  // ALT
		"1920-8":  6,  // AST
		"1975-2":  5,  // Bilirubin, total
	}
}

// defaultChronicCodes lists the SNOMED codes treated as chronic.
func defaultChronicCodes() []string {
	return []string{
		"44054006",  // Type 2 diabetes mellitus
		"46635009",  // Type 1 diabetes mellitus
		"73211009",  // Diabetes mellitus
		"38341003",  // Hypertensive disorder
		"55822004",  // Hyperlipidemia
		"49601007",  // Disorder of cardiovascular system
		"709044004", // Chronic kidney disease
		"195967001", // Asthma
		"13645005",  // COPD
		"69896004",  // Rheumatoid arthritis
		"56265001",  // Heart disease
	}
}

// diabetesCodeSet is the diabetes subset of the chronic set, used by
// the HbA1c monitoring rule.
func diabetesCodeSet() map[string]bool {
	return map[string]bool{
		"44054006": true, // Type 2 diabetes mellitus
		"46635009": true, // Type 1 diabetes mellitus
		"73211009": true, // Diabetes mellitus
	}
}

// defaultUnitConversions maps (lab code, source unit) to scalar
// conversions into the unit system the reference ranges use.
func defaultUnitConversions() map[string]map[string]UnitConversion {
	return map[string]map[string]UnitConversion{
		"4548-4": {
			"mmol/mol": {Factor: decimal.RequireFromString("0.0915"), ToUnit: "%"},
		},
		"2345-7": {
			"mmol/l": {Factor: decimal.RequireFromString("18.0182"), ToUnit: "mg/dL"},
		},
		"2339-0": {
			"mmol/l": {Factor: decimal.RequireFromString("18.0182"), ToUnit: "mg/dL"},
		},
		"2093-3": {
			"mmol/l": {Factor: decimal.RequireFromString("38.67"), ToUnit: "mg/dL"},
		},
		"2089-1": {
			"mmol/l": {Factor: decimal.RequireFromString("38.67"), ToUnit: "mg/dL"},
		},
		"2085-9": {
			"mmol/l": {Factor: decimal.RequireFromString("38.67"), ToUnit: "mg/dL"},
		},
		"2571-8": {
			"mmol/l": {Factor: decimal.RequireFromString("88.57"), ToUnit: "mg/dL"},
		},
		"2160-0": {
			"umol/l": {Factor: decimal.RequireFromString("0.0113"), ToUnit: "mg/dL"},
			"µmol/l": {Factor: decimal.RequireFromString("0.0113"), ToUnit: "mg/dL"},
		},
	}
}

// defaultInteractions lists known RxNorm ingredient pair interactions.
func defaultInteractions() []InteractionRule {
	return []InteractionRule{
		{
			CodeA: "11289", CodeB: "1191", // warfarin + aspirin
			Severity:    cr.SeverityHigh,
			Description: "Warfarin with aspirin increases bleeding risk",
			Action:      "Review anticoagulation; consider gastroprotection",
		},
		{
			CodeA: "11289", CodeB: "5640", // warfarin + ibuprofen
			Severity:    cr.SeverityHigh,
			Description: "Warfarin with ibuprofen increases bleeding risk",
			Action:      "Avoid NSAIDs; suggest alternative analgesia",
		},
		{
			CodeA: "29046", CodeB: "8591", // lisinopril + potassium chloride
			Severity:    cr.SeverityMedium,
			Description: "ACE inhibitor with potassium supplement may cause hyperkalemia",
			Action:      "Monitor serum potassium",
		},
		{
			CodeA: "29046", CodeB: "9997", // lisinopril + spironolactone
			Severity:    cr.SeverityMedium,
			Description: "ACE inhibitor with potassium-sparing diuretic may cause hyperkalemia",
			Action:      "Monitor serum potassium and renal function",
		},
		{
			CodeA: "36567", CodeB: "703", // simvastatin + amiodarone
			Severity:    cr.SeverityHigh,
			Description: "Simvastatin with amiodarone increases myopathy risk",
			Action:      "Limit simvastatin dose or switch statin",
		},
		{
			CodeA: "3407", CodeB: "703", // digoxin + amiodarone
			Severity:    cr.SeverityHigh,
			Description: "Amiodarone raises digoxin levels",
			Action:      "Reduce digoxin dose; monitor levels",
		},
		{
			CodeA: "36437", CodeB: "10689", // sertraline + tramadol
			Severity:    cr.SeverityMedium,
			Description: "SSRI with tramadol raises serotonin syndrome risk",
			Action:      "Watch for serotonergic symptoms",
		},
		{
			CodeA: "32968", CodeB: "7646", // clopidogrel + omeprazole
			Severity:    cr.SeverityMedium,
			Description: "Omeprazole may reduce clopidogrel effectiveness",
			Action:      "Consider pantoprazole instead",
		},
	}
}
