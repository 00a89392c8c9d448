// Package options builds retrieval options from tag-signature groups:
// one option per group, with an anchor document plus up to k-1
// companions selected in three widening phases, then deduplicated by
// source set (spec.md §4.9). Ported from
// original_source/src/rag/retriever.py's _prepare_retrieval_options and
// original_source/src/rag/formatting.py's collect_sources.
package options

import (
	"sort"

	"github.com/brunobiangulo/docqa/internal/cluster"
	"github.com/brunobiangulo/docqa/internal/doc"
)

// Option is one user-facing disambiguation choice.
type Option struct {
	ID      int
	Docs    []doc.Document
	Sources []doc.SourceRef
	BestL2  float64
}

// CollectSources returns the distinct (filename, page) pairs referenced
// by docs, sorted by filename then page.
func CollectSources(docs []doc.Document) []doc.SourceRef {
	seen := make(map[doc.SourceRef]struct{}, len(docs))
	out := make([]doc.SourceRef, 0, len(docs))
	for _, d := range docs {
		key := d.SourceKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].Page < out[j].Page
	})
	return out
}

// prioritizeForAnchor orders group's non-anchor documents same-file
// first, then every other file, preserving the group's score order
// within each bucket.
func prioritizeForAnchor(anchor doc.Document, group []doc.ScoredDocument) []doc.Document {
	var sameFile, other []doc.Document
	anchorFile := anchor.Filename()
	anchorKey := anchor.SourceKey()
	skippedAnchor := false
	for _, sd := range group {
		if !skippedAnchor && sd.Doc.SourceKey() == anchorKey {
			skippedAnchor = true
			continue
		}
		if sd.Doc.Filename() == anchorFile && anchorFile != "unknown" {
			sameFile = append(sameFile, sd.Doc)
		} else {
			other = append(other, sd.Doc)
		}
	}
	return append(sameFile, other...)
}

// selectDistinct picks up to need companions from candidates in three
// widening phases: new page, then new file, then anything not already
// seen by (filename, page) signature.
func selectDistinct(anchor doc.Document, candidates []doc.Document, need int) []doc.Document {
	if need <= 0 {
		return nil
	}

	picked := make([]doc.Document, 0, need)
	seenFiles := map[string]struct{}{anchor.Filename(): {}}
	seenPages := map[string]struct{}{anchor.PageKey(): {}}
	seenSigs := map[doc.SourceRef]struct{}{anchor.SourceKey(): {}}

	for phase := 0; phase < 3; phase++ {
		for _, cand := range candidates {
			if len(picked) >= need {
				return picked
			}
			sig := cand.SourceKey()
			if _, ok := seenSigs[sig]; ok {
				continue
			}

			var shouldPick bool
			switch phase {
			case 0:
				_, seen := seenPages[cand.PageKey()]
				shouldPick = !seen
			case 1:
				_, seen := seenFiles[cand.Filename()]
				shouldPick = !seen
			case 2:
				shouldPick = true
			}

			if shouldPick {
				picked = append(picked, cand)
				seenSigs[sig] = struct{}{}
				seenFiles[cand.Filename()] = struct{}{}
				seenPages[cand.PageKey()] = struct{}{}
			}
		}
	}
	return picked
}

// Build turns groups[:maxOptions] into Options, anchoring each on the
// group's best-scoring document and filling up to effectiveK-1
// companions, then deduplicates by source set and renumbers IDs
// contiguously from 1.
func Build(groups []cluster.Group, maxOptions, effectiveK int) []Option {
	if maxOptions > 0 && maxOptions < len(groups) {
		groups = groups[:maxOptions]
	}

	safeK := effectiveK - 1
	if safeK < 0 {
		safeK = 0
	}

	raw := make([]Option, 0, len(groups))
	for _, g := range groups {
		anchor := g.Best().Doc
		candidates := prioritizeForAnchor(anchor, g.Docs)
		companions := selectDistinct(anchor, candidates, safeK)

		docs := append([]doc.Document{anchor}, companions...)
		raw = append(raw, Option{
			Docs:    docs,
			Sources: CollectSources(docs),
			BestL2:  g.Best().Distance,
		})
	}

	return dedupe(raw)
}

func sourceSetKey(sources []doc.SourceRef) string {
	var b []byte
	for _, s := range sources {
		b = append(b, []byte(s.Filename)...)
		b = append(b, '\x1f')
		b = append(b, []byte(s.Page)...)
		b = append(b, '\x1e')
	}
	return string(b)
}

func dedupe(options []Option) []Option {
	seen := make(map[string]struct{}, len(options))
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		key := sourceSetKey(opt.Sources)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	}
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}
