// Package entity extracts curated entity names from a free-text query
// via per-entity alias regexes (spec.md §4.8's entity-coverage inputs),
// ported from original_source/src/rag/entity_extract.py.
package entity

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/samber/lo"
)

// Extractor holds, per entity name, the alias patterns that identify it
// in a query. names is kept in configuration order so Extract's
// output order is deterministic and matches how curators listed them.
type Extractor struct {
	names    []string
	patterns map[string][]*regexp2.Regexp
}

// Compile builds an Extractor from entity name -> alias pattern lists,
// given in the order entities should be reported in Extract's output.
func Compile(order []string, aliases map[string][]string) (Extractor, error) {
	patterns := make(map[string][]*regexp2.Regexp, len(order))
	for _, name := range order {
		compiled := make([]*regexp2.Regexp, 0, len(aliases[name]))
		for _, p := range aliases[name] {
			if strings.TrimSpace(p) == "" {
				continue
			}
			re, err := regexp2.Compile(p, regexp2.IgnoreCase)
			if err != nil {
				return Extractor{}, fmt.Errorf("entity: invalid pattern %q for %q: %w", p, name, err)
			}
			compiled = append(compiled, re)
		}
		patterns[name] = compiled
	}
	return Extractor{names: append([]string(nil), order...), patterns: patterns}, nil
}

// Extract returns every entity whose alias patterns match query, in the
// order the extractor was configured.
func (e Extractor) Extract(query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	hits := lo.Filter(e.names, func(name string, _ int) bool {
		return anyMatch(e.patterns[name], q)
	})
	if len(hits) == 0 {
		return nil
	}
	return hits
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
