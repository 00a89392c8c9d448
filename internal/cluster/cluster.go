// Package cluster buckets scored documents by tag signature
// (spec.md §4.4), the fan-in point for AmbiguityResolver.
package cluster

import (
	"sort"

	"github.com/brunobiangulo/docqa/internal/doc"
)

// Group is a non-empty bucket of candidates sharing a tag signature,
// sorted ascending by distance.
type Group struct {
	Signature doc.Signature
	Docs      []doc.ScoredDocument
}

// Best returns the group's anchor (lowest-distance candidate).
func (g Group) Best() doc.ScoredDocument { return g.Docs[0] }

// ByTagSignature buckets scored by core (or strict, when strict is true)
// tag signature. Buckets are sorted internally by distance ascending;
// the returned slice is sorted by each bucket's best distance ascending.
func ByTagSignature(scored []doc.ScoredDocument, strict bool) []Group {
	order := make([]string, 0)
	buckets := make(map[string]*Group)

	for _, sd := range scored {
		sig := doc.SafeSignature(sd.Doc, strict)
		key := sig.Key()
		g, ok := buckets[key]
		if !ok {
			g = &Group{Signature: sig}
			buckets[key] = g
			order = append(order, key)
		}
		g.Docs = append(g.Docs, sd)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g := buckets[key]
		sort.SliceStable(g.Docs, func(i, j int) bool { return g.Docs[i].Distance < g.Docs[j].Distance })
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Docs[0].Distance < groups[j].Docs[0].Distance
	})

	return groups
}
