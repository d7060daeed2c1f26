// Package cost implements the tiered cost ledger (§4.5): per-model pricing
// profiles loaded from an embedded YAML table, and a running ledger that
// prices each completion call and accumulates totals for the session.
package cost

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var embeddedPricingYAML []byte

// PricingProfile is the per-model rate card (§3): base input/output rates
// per million tokens, and an optional long-context tier that applies once
// cumulative input crosses longContextThreshold tokens.
type PricingProfile struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`

	LongContextThreshold int64   `yaml:"long_context_threshold,omitempty"`
	LongInputPerMillion  float64 `yaml:"long_input_per_million,omitempty"`
	LongOutputPerMillion float64 `yaml:"long_output_per_million,omitempty"`
}

// hasLongContextTier reports whether this profile defines a long-context
// rate pair at all (§4.5 step 2: "if defined").
func (p PricingProfile) hasLongContextTier() bool {
	return p.LongContextThreshold > 0
}

// pricingTable is the on-disk/embedded shape: model name (or prefix) to
// profile, plus a designated default model used as the fallback. Grounded
// on haasonsaas-nexus's internal/status/cost.go (DefaultModelCosts,
// per-model table with fallback) generalized from a nested provider→model
// map to a flat model-keyed table, since this spec's Provider abstraction
// already disambiguates vendor at the call site.
type pricingTable struct {
	Default string                    `yaml:"default"`
	Models  map[string]PricingProfile `yaml:"models"`
}

// LoadPricingTable parses a YAML pricing table in the embedded format. It
// parses data alone: nil or empty data yields an empty table, and nothing is
// merged with or taken from the embedded table.
func LoadPricingTable(data []byte) (*pricingTable, error) {
	var t pricingTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// defaultPricingTable parses the embedded YAML once, panicking on failure
// since a malformed embedded asset is a build-time defect, not a runtime
// one.
var defaultPricingTable = func() *pricingTable {
	t, err := LoadPricingTable(embeddedPricingYAML)
	if err != nil {
		panic("cost: embedded pricing.yaml is invalid: " + err.Error())
	}
	return t
}()

// Resolve looks up a model's pricing profile (§4.5: "keyed by model name at
// construction via a fixed pricing table"). Exact match first, then a
// longest-matching-prefix scan (so e.g. "gemini-2.5-pro-latest" resolves
// via "gemini-2.5-pro"), then the table's designated default model.
func (t *pricingTable) Resolve(model string) PricingProfile {
	if p, ok := t.Models[model]; ok {
		return p
	}
	var best string
	for name := range t.Models {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return t.Models[best]
	}
	return t.Models[t.Default]
}

// ResolveProfile resolves a model's pricing profile against the built-in
// embedded table (§4.5's "fixed pricing table").
func ResolveProfile(model string) PricingProfile {
	return defaultPricingTable.Resolve(model)
}
