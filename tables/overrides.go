package tables

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.yaml.in/yaml/v3"

	cr "github.com/gofhir/clinreview"
)

// Overrides adjusts a Config from a YAML document, so deployments can
// tune priorities, the chronic set, conversions, and interaction pairs
// without recompiling. Care-gap rules are code, not data, and are not
// overridable here.
type Overrides struct {
	LabPriorities map[string]int        `yaml:"labPriorities"`
	ChronicCodes  []string              `yaml:"chronicCodes"`
	Conversions   []ConversionOverride  `yaml:"conversions"`
	Interactions  []InteractionOverride `yaml:"interactions"`
}

// ConversionOverride is one unit-conversion entry in override YAML.
type ConversionOverride struct {
	Code   string `yaml:"code"`
	Unit   string `yaml:"unit"`
	Factor string `yaml:"factor"`
	ToUnit string `yaml:"toUnit"`
}

// InteractionOverride is one interaction entry in override YAML.
type InteractionOverride struct {
	CodeA       string `yaml:"codeA"`
	CodeB       string `yaml:"codeB"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
	Action      string `yaml:"action"`
}

// ParseOverrides decodes an override YAML document.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("tables: invalid override YAML: %w", err)
	}
	return &o, nil
}

// Apply merges the overrides into a Config: priorities and conversions
// replace same-key entries, chronic codes and interactions append.
func (o *Overrides) Apply(cfg Config) (Config, error) {
	if len(o.LabPriorities) > 0 {
		merged := make(map[string]int, len(cfg.LabPriorities)+len(o.LabPriorities))
		for code, w := range cfg.LabPriorities {
			merged[code] = w
		}
		for code, w := range o.LabPriorities {
			merged[code] = w
		}
		cfg.LabPriorities = merged
	}

	cfg.ChronicCodes = append(append([]string{}, cfg.ChronicCodes...), o.ChronicCodes...)

	if len(o.Conversions) > 0 {
		merged := make(map[string]map[string]UnitConversion, len(cfg.UnitConversions))
		for code, byUnit := range cfg.UnitConversions {
			merged[code] = byUnit
		}
		for _, c := range o.Conversions {
			factor, err := decimal.NewFromString(c.Factor)
			if err != nil {
				return cfg, fmt.Errorf("tables: conversion factor %q for %s: %w", c.Factor, c.Code, err)
			}
			if merged[c.Code] == nil {
				merged[c.Code] = make(map[string]UnitConversion)
			}
			merged[c.Code][c.Unit] = UnitConversion{Factor: factor, ToUnit: c.ToUnit}
		}
		cfg.UnitConversions = merged
	}

	for _, i := range o.Interactions {
		severity := cr.Severity(i.Severity)
		if !severity.IsValid() {
			return cfg, fmt.Errorf("tables: unknown interaction severity %q", i.Severity)
		}
		cfg.Interactions = append(cfg.Interactions, InteractionRule{
			CodeA:       i.CodeA,
			CodeB:       i.CodeB,
			Severity:    severity,
			Description: i.Description,
			Action:      i.Action,
		})
	}

	return cfg, nil
}
