package docqa

import (
	"fmt"
	"os"

	"github.com/brunobiangulo/docqa/embedproviders"
	"gopkg.in/yaml.v3"
)

// Config is the engine's immutable, file-loadable configuration. It is
// the typed surface curators edit; New compiles it into the internal
// packages' already-compiled gate/resolver configs, so an invalid
// regex or pattern is always a construction-time failure, never one
// that surfaces mid-query.
type Config struct {
	OOD       OODConfig       `json:"ood" yaml:"ood"`
	Gate      GateConfig      `json:"gate" yaml:"gate"`
	Ambiguity AmbiguityConfig `json:"ambiguity" yaml:"ambiguity"`
	Coverage  CoverageConfig  `json:"coverage" yaml:"coverage"`
	Entities  EntitiesConfig  `json:"entities" yaml:"entities"`

	// FetchK is the configured floor for how many candidates to pull
	// from the store before gating; retrieve.SafeFetchK enlarges it
	// when final_k/max_options demand more headroom.
	FetchK int `json:"fetch_k" yaml:"fetch_k"`

	Embedding embedproviders.Config `json:"embedding" yaml:"embedding"`
}

// OODConfig mirrors ood.Config's raw (uncompiled) form.
type OODConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	AllowPatterns []string `json:"allow_patterns" yaml:"allow_patterns"`
	DenyPatterns  []string `json:"deny_patterns" yaml:"deny_patterns"`
}

// GateConfig mirrors gate.Config.
type GateConfig struct {
	FinalK    int      `json:"final_k" yaml:"final_k"`
	MaxL2     float64  `json:"max_l2" yaml:"max_l2"`
	MinKeep   int      `json:"min_keep" yaml:"min_keep"`
	MinGap    *float64 `json:"min_gap,omitempty" yaml:"min_gap,omitempty"`
	SoftMaxL2 *float64 `json:"soft_max_l2,omitempty" yaml:"soft_max_l2,omitempty"`
}

// AmbiguityConfig mirrors ambiguity.Config's raw (uncompiled) form.
type AmbiguityConfig struct {
	MaxOptions  int      `json:"max_options" yaml:"max_options"`
	MinGroupGap *float64 `json:"min_group_gap,omitempty" yaml:"min_group_gap,omitempty"`
	StrictSig   bool     `json:"strict_signature" yaml:"strict_signature"`

	EnableSigTiebreak bool     `json:"enable_signature_tiebreak" yaml:"enable_signature_tiebreak"`
	MinSigSim         *float64 `json:"min_signature_similarity,omitempty" yaml:"min_signature_similarity,omitempty"`
	MinSigSimGap      *float64 `json:"min_signature_similarity_gap,omitempty" yaml:"min_signature_similarity_gap,omitempty"`

	EnableAnchorTiebreak bool     `json:"enable_anchor_tiebreak" yaml:"enable_anchor_tiebreak"`
	MinAnchorSim         *float64 `json:"min_anchor_similarity,omitempty" yaml:"min_anchor_similarity,omitempty"`
	MinAnchorSimGap      *float64 `json:"min_anchor_similarity_gap,omitempty" yaml:"min_anchor_similarity_gap,omitempty"`

	EnableEntityResolve       bool `json:"enable_entity_resolve" yaml:"enable_entity_resolve"`
	RequireFullEntityCoverage bool `json:"require_full_entity_coverage" yaml:"require_full_entity_coverage"`

	KeepAmbiguousForGenericQueries bool     `json:"keep_ambiguous_for_generic_queries" yaml:"keep_ambiguous_for_generic_queries"`
	GenericQueryPatterns           []string `json:"generic_query_patterns" yaml:"generic_query_patterns"`
	FacetQueryPatterns             []string `json:"facet_query_patterns" yaml:"facet_query_patterns"`
}

// CoverageConfig mirrors coverage.Config's raw form.
type CoverageConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	CompareMarkers []string `json:"compare_markers" yaml:"compare_markers"`
	GenericMarkers []string `json:"generic_markers" yaml:"generic_markers"`
}

// EntitiesConfig mirrors entity.Compile's inputs: Order fixes the
// deterministic report order, Aliases gives each entity its match
// patterns.
type EntitiesConfig struct {
	Order   []string            `json:"order" yaml:"order"`
	Aliases map[string][]string `json:"aliases" yaml:"aliases"`
}

// DefaultConfig returns sensible defaults for local Ollama inference,
// matching the gate/ambiguity thresholds spec.md's worked scenarios
// assume. The OOD gate is enabled with no allow patterns, so it refuses
// every query until the caller supplies OOD allow patterns; entity and
// coverage patterns are empty as well.
func DefaultConfig() Config {
	minGap := 0.05
	return Config{
		OOD: OODConfig{Enabled: true},
		Gate: GateConfig{
			FinalK:  4,
			MaxL2:   0.45,
			MinKeep: 1,
			MinGap:  &minGap,
		},
		Ambiguity: AmbiguityConfig{
			MaxOptions:          5,
			EnableEntityResolve: true,
		},
		Coverage: CoverageConfig{Enabled: true},
		FetchK:   20,
		Embedding: embedproviders.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
	}
}

// LoadConfig reads a YAML config file from path, starting from
// DefaultConfig so unset fields keep their defaults. JSON is valid YAML,
// so a JSON config file loads unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("docqa: reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("docqa: parsing config %s: %w", path, err)
	}

	return cfg, nil
}
