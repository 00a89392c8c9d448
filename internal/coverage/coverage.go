// Package coverage implements the post-gate coverage check (spec.md
// §4.6): refuse a compare or generic query whose extracted entities
// aren't all backed by the retrieved documents' metadata, ported from
// original_source/src/rag/coverage.py.
package coverage

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/docqa/internal/doc"
	"github.com/brunobiangulo/docqa/internal/entity"
	"github.com/dlclark/regexp2"
)

// Config mirrors coverage.py's CoverageConfig.
type Config struct {
	Enabled         bool
	ComparePatterns []*regexp2.Regexp
	GenericPatterns []*regexp2.Regexp
	Entities        entity.Extractor
}

// Compile builds a Config, compiling compare/generic markers
// case-insensitively and the entity aliases via entity.Compile.
func Compile(enabled bool, compareMarkers, genericMarkers []string, entityOrder []string, entityAliases map[string][]string) (Config, error) {
	compare, err := compileAll(compareMarkers)
	if err != nil {
		return Config{}, fmt.Errorf("coverage: compare_markers: %w", err)
	}
	generic, err := compileAll(genericMarkers)
	if err != nil {
		return Config{}, fmt.Errorf("coverage: generic_markers: %w", err)
	}
	extractor, err := entity.Compile(entityOrder, entityAliases)
	if err != nil {
		return Config{}, fmt.Errorf("coverage: entity_aliases: %w", err)
	}
	return Config{Enabled: enabled, ComparePatterns: compare, GenericPatterns: generic, Entities: extractor}, nil
}

func compileAll(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(patterns []*regexp2.Regexp, text string) bool {
	for _, p := range patterns {
		ok, err := p.MatchString(text)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Result is the coverage gate's verdict.
type Result struct {
	Refused bool
	Reason  string
}

var pass = Result{}

// Check runs the coverage gate for query against the already-selected
// docs. Disabled configs and empty doc sets are no-ops; an empty query
// refuses (coverage.py treats it as a reject, not a pass-through, since
// by this stage a query should always be present).
func Check(query string, docs []doc.Document, cfg Config) Result {
	if !cfg.Enabled {
		return pass
	}

	q := strings.TrimSpace(query)
	if q == "" {
		return Result{Refused: true, Reason: "Empty or invalid query"}
	}

	if len(docs) == 0 {
		return pass
	}

	isCompare := anyMatch(cfg.ComparePatterns, q)
	isGeneric := anyMatch(cfg.GenericPatterns, q)

	entitiesInQuery := cfg.Entities.Extract(q)
	if len(entitiesInQuery) == 0 {
		return pass
	}

	docEntities := uniqueEntities(docs)

	var missing []string
	for _, e := range entitiesInQuery {
		if _, ok := docEntities[e]; !ok {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return pass
	}

	if isCompare && len(entitiesInQuery) >= 2 {
		return Result{Refused: true, Reason: fmt.Sprintf("Missing document coverage for: %s", strings.Join(missing, ", "))}
	}
	if isGeneric {
		return Result{Refused: true, Reason: fmt.Sprintf("Missing document coverage for: %s", strings.Join(missing, ", "))}
	}

	return pass
}

func uniqueEntities(docs []doc.Document) map[string]struct{} {
	out := make(map[string]struct{})
	for _, d := range docs {
		for e := range d.EntitySet() {
			out[e] = struct{}{}
		}
	}
	return out
}
