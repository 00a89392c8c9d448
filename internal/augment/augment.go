// Package augment fills a resolved document set with extra candidates
// until every query entity is covered, trimming the set first if it is
// already full (spec.md §4.7), ported from
// original_source/src/rag/retriever.py's _augment_docs_to_cover_entities.
package augment

import (
	"github.com/brunobiangulo/docqa/internal/doc"
)

// ToCoverEntities returns up to finalK documents from chosen (kept in
// order), trimmed and backfilled from candidates so every entity in
// queryEntities is covered by at least one returned document when
// possible. candidates not already present (by source key) are
// appended only while they contribute a still-missing entity.
func ToCoverEntities(chosen []doc.Document, candidates []doc.ScoredDocument, queryEntities map[string]struct{}, finalK int) []doc.Document {
	if finalK <= 0 {
		return nil
	}
	if len(queryEntities) == 0 {
		return truncate(chosen, finalK)
	}

	picked := make([]doc.Document, 0, len(chosen))
	seen := make(map[doc.SourceRef]struct{}, len(chosen))
	covered := make(map[string]struct{})

	for _, d := range chosen {
		picked = append(picked, d)
		seen[d.SourceKey()] = struct{}{}
		for e := range d.EntitySet() {
			covered[e] = struct{}{}
		}
	}

	missing := subtract(queryEntities, covered)
	if len(missing) == 0 {
		return truncate(picked, finalK)
	}

	if len(picked) >= finalK {
		reserve := finalK - 1
		if want := len(missing); want < reserve {
			reserve = want
		}
		if reserve < 1 {
			reserve = 1
		}
		keepN := finalK - reserve
		if keepN < 1 {
			keepN = 1
		}
		picked = truncate(picked, keepN)

		seen = make(map[doc.SourceRef]struct{}, len(picked))
		covered = make(map[string]struct{})
		for _, d := range picked {
			seen[d.SourceKey()] = struct{}{}
			for e := range d.EntitySet() {
				covered[e] = struct{}{}
			}
		}
		missing = subtract(queryEntities, covered)
	}

	for _, sd := range candidates {
		if len(picked) >= finalK {
			break
		}
		d := sd.Doc
		sig := d.SourceKey()
		if _, ok := seen[sig]; ok {
			continue
		}
		docEntities := d.EntitySet()
		if !intersects(missing, docEntities) {
			continue
		}

		picked = append(picked, d)
		seen[sig] = struct{}{}
		for e := range docEntities {
			covered[e] = struct{}{}
		}
		missing = subtract(queryEntities, covered)
		if len(missing) == 0 {
			break
		}
	}

	return truncate(picked, finalK)
}

func truncate(docs []doc.Document, finalK int) []doc.Document {
	if finalK >= len(docs) {
		return docs
	}
	return docs[:finalK]
}

func subtract(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func intersects(a, b map[string]struct{}) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}
