// Package ambiguity implements the eight-step tag-ambiguity resolution
// cascade (spec.md §4.5): overview override, single-bucket shortcut,
// generic-underspecified refusal, entity-coverage resolution, group-gap
// resolution, embedding tie-breaks, and fail-open to user-facing
// options. Ported from original_source/src/rag/retriever.py's
// _resolve_tag_ambiguity and its helpers.
package ambiguity

import (
	"context"
	"sort"
	"strings"

	"github.com/brunobiangulo/docqa/internal/augment"
	"github.com/brunobiangulo/docqa/internal/cluster"
	"github.com/brunobiangulo/docqa/internal/doc"
	"github.com/brunobiangulo/docqa/internal/entity"
	"github.com/brunobiangulo/docqa/internal/options"
	"github.com/brunobiangulo/docqa/internal/simtext"
	"github.com/dlclark/regexp2"
)

// Config mirrors original_source/src/rag/ambiguity.py's AmbiguityConfig.
type Config struct {
	MaxOptions  int
	MinGroupGap *float64

	StrictSig bool
	Embedder  simtext.Embedder // nil disables every embedding tie-break
	Cache     *simtext.Cache

	EnableSigTiebreak bool
	MinSigSim         *float64
	MinSigSimGap      *float64

	EnableAnchorTiebreak bool
	MinAnchorSim         *float64
	MinAnchorSimGap      *float64

	EnableEntityResolve       bool
	RequireFullEntityCoverage bool
	Entities                  *entity.Extractor // nil disables entity-aware steps

	KeepAmbiguousForGenericQueries bool
	GenericQueryPatterns           []*regexp2.Regexp
	FacetQueryPatterns             []*regexp2.Regexp
}

// Resolution is the cascade's outcome: either an auto-resolved document
// set, or a list of user-facing options to disambiguate between.
type Resolution struct {
	Options      []options.Option
	AutoResolved bool
	Docs         []doc.Document
}

// Resolve runs the S1-S8 cascade over scored, already-gated candidates.
func Resolve(ctx context.Context, scored []doc.ScoredDocument, query string, finalK int, cfg Config) (Resolution, error) {
	if len(scored) == 0 {
		return Resolution{}, nil
	}

	groups := cluster.ByTagSignature(scored, cfg.StrictSig)
	effectiveK := finalK
	if effectiveK < 1 {
		effectiveK = 1
	}

	// S1: with two or more groups, overview queries go straight to
	// options — disambiguation data beats a guessed single answer for a
	// broad query. A single group falls through to S2.
	if len(groups) >= 2 && isOverviewQuery(query, cfg) {
		return Resolution{Options: options.Build(groups, cfg.MaxOptions, effectiveK)}, nil
	}

	// S2: a single bucket needs no disambiguation.
	if len(groups) == 1 {
		docs := ensureEntitiesCoverage(scored, docsOf(groups[0], effectiveK), query, effectiveK, cfg)
		return Resolution{AutoResolved: true, Docs: docs}, nil
	}

	// S3: generic queries without extractable entities stay ambiguous.
	if len(groups) >= 2 && isGenericUnderspecified(query, cfg) {
		return Resolution{Options: options.Build(groups, cfg.MaxOptions, effectiveK)}, nil
	}

	// S4: narrow by entity coverage; a lone winner resolves immediately.
	if resolved := resolveByEntityCoverage(groups, query, cfg); resolved != nil {
		groups = resolved
		if len(groups) == 1 {
			docs := ensureEntitiesCoverage(scored, docsOf(groups[0], effectiveK), query, effectiveK, cfg)
			return Resolution{AutoResolved: true, Docs: docs}, nil
		}
	}

	// S5: a wide enough score gap between the top two groups resolves.
	if resolvedDocs := resolveByGroupsScoreGap(groups, cfg); resolvedDocs != nil {
		if len(resolvedDocs) > effectiveK {
			resolvedDocs = resolvedDocs[:effectiveK]
		}
		docs := ensureEntitiesCoverage(scored, resolvedDocs, query, effectiveK, cfg)
		return Resolution{AutoResolved: true, Docs: docs}, nil
	}

	// S6/S7: query-aware embedding tie-break, signature text first, then
	// anchor content.
	winnerDocs, err := tiebreakGroupsByQueryAware(ctx, groups, query, cfg)
	if err != nil {
		return Resolution{}, err
	}
	if winnerDocs != nil {
		if len(winnerDocs) > effectiveK {
			winnerDocs = winnerDocs[:effectiveK]
		}
		docs := ensureEntitiesCoverage(scored, winnerDocs, query, effectiveK, cfg)
		return Resolution{AutoResolved: true, Docs: docs}, nil
	}

	// S8: fail open to user-facing options.
	return Resolution{Options: options.Build(groups, cfg.MaxOptions, effectiveK)}, nil
}

func docsOf(g cluster.Group, limit int) []doc.Document {
	n := len(g.Docs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]doc.Document, n)
	for i := 0; i < n; i++ {
		out[i] = g.Docs[i].Doc
	}
	return out
}

func allDocsOf(g cluster.Group) []doc.Document {
	out := make([]doc.Document, len(g.Docs))
	for i, sd := range g.Docs {
		out[i] = sd.Doc
	}
	return out
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

func isGenericQuery(query string, cfg Config) bool {
	if !cfg.KeepAmbiguousForGenericQueries {
		return false
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	return anyMatch(cfg.GenericQueryPatterns, q)
}

func isFacetQuery(query string, cfg Config) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	return anyMatch(cfg.FacetQueryPatterns, q)
}

func isOverviewQuery(query string, cfg Config) bool {
	if !isGenericQuery(query, cfg) {
		return false
	}
	return !isFacetQuery(query, cfg)
}

func isGenericUnderspecified(query string, cfg Config) bool {
	if !isGenericQuery(query, cfg) {
		return false
	}
	if isFacetQuery(query, cfg) {
		return false
	}
	if cfg.Entities == nil {
		return true
	}
	return len(cfg.Entities.Extract(query)) == 0
}

func groupEntities(g cluster.Group) map[string]struct{} {
	out := make(map[string]struct{})
	for _, sd := range g.Docs {
		for e := range sd.Doc.EntitySet() {
			out[e] = struct{}{}
		}
	}
	return out
}

func anchorEntityHits(g cluster.Group, queryEntities map[string]struct{}) int {
	if len(g.Docs) == 0 || len(queryEntities) == 0 {
		return 0
	}
	return len(intersect(g.Best().Doc.EntitySet(), queryEntities))
}

func docsEntityHits(g cluster.Group, queryEntities map[string]struct{}) int {
	if len(queryEntities) == 0 {
		return 0
	}
	hits := 0
	for _, sd := range g.Docs {
		if len(intersect(sd.Doc.EntitySet(), queryEntities)) > 0 {
			hits++
		}
	}
	return hits
}

func groupEntityHits(g cluster.Group, queryEntities map[string]struct{}) int {
	if len(queryEntities) == 0 {
		return 0
	}
	return len(intersect(groupEntities(g), queryEntities))
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

// resolveByEntityCoverage narrows groups to the subset best covering
// the query's extracted entities. Returns nil when entity-resolve is
// disabled, unavailable, or inconclusive (every group ties with zero
// hits).
func resolveByEntityCoverage(groups []cluster.Group, query string, cfg Config) []cluster.Group {
	if !cfg.EnableEntityResolve || cfg.Entities == nil {
		return nil
	}

	entitiesInQuery := cfg.Entities.Extract(query)
	if len(entitiesInQuery) == 0 {
		return nil
	}
	queryID := toSet(entitiesInQuery)

	type scoredGroup struct {
		idx    int
		hit    int
		bestL2 float64
	}
	var scoredGroups []scoredGroup
	for idx, g := range groups {
		if len(g.Docs) == 0 {
			continue
		}
		hit := len(intersect(queryID, groupEntities(g)))
		scoredGroups = append(scoredGroups, scoredGroup{idx: idx, hit: hit, bestL2: g.Best().Distance})
	}
	if len(scoredGroups) == 0 {
		return nil
	}

	maxHit := scoredGroups[0].hit
	for _, sg := range scoredGroups[1:] {
		if sg.hit > maxHit {
			maxHit = sg.hit
		}
	}
	if maxHit <= 0 {
		return nil
	}

	var winners []int
	for _, sg := range scoredGroups {
		if sg.hit == maxHit {
			winners = append(winners, sg.idx)
		}
	}

	if cfg.RequireFullEntityCoverage && maxHit < len(queryID) {
		return nil
	}

	if len(winners) == 1 {
		return []cluster.Group{groups[winners[0]]}
	}

	rankedWinners := make([]entityRank, 0, len(winners))
	for _, idx := range winners {
		g := groups[idx]
		rankedWinners = append(rankedWinners, entityRank{
			idx:        idx,
			anchorHits: anchorEntityHits(g, queryID),
			docsHits:   docsEntityHits(g, queryID),
			groupHits:  groupEntityHits(g, queryID),
			bestL2:     g.Best().Distance,
		})
	}

	sort.SliceStable(rankedWinners, func(i, j int) bool {
		a, b := rankedWinners[i], rankedWinners[j]
		if a.anchorHits != b.anchorHits {
			return a.anchorHits > b.anchorHits
		}
		if a.docsHits != b.docsHits {
			return a.docsHits > b.docsHits
		}
		if a.groupHits != b.groupHits {
			return a.groupHits > b.groupHits
		}
		return a.bestL2 < b.bestL2
	})

	if len(rankedWinners) >= 2 {
		top, second := rankedWinners[0], rankedWinners[1]
		if strictlyBetter(top, second) {
			return []cluster.Group{groups[top.idx]}
		}
	}

	narrowed := make([]cluster.Group, len(rankedWinners))
	for i, r := range rankedWinners {
		narrowed[i] = groups[r.idx]
	}
	sort.SliceStable(narrowed, func(i, j int) bool {
		return narrowed[i].Best().Distance < narrowed[j].Best().Distance
	})
	return narrowed
}

type entityRank struct {
	idx        int
	anchorHits int
	docsHits   int
	groupHits  int
	bestL2     float64
}

// strictlyBetter compares two entity-coverage-ranked groups on
// (anchorHits, docsHits, groupHits, -bestL2) lexicographically; top
// only collapses the tie when it strictly beats second on that key.
func strictlyBetter(top, second entityRank) bool {
	if top.anchorHits != second.anchorHits {
		return top.anchorHits > second.anchorHits
	}
	if top.docsHits != second.docsHits {
		return top.docsHits > second.docsHits
	}
	if top.groupHits != second.groupHits {
		return top.groupHits > second.groupHits
	}
	return top.bestL2 < second.bestL2
}

func resolveByGroupsScoreGap(groups []cluster.Group, cfg Config) []doc.Document {
	if cfg.MinGroupGap == nil || len(groups) < 2 {
		return nil
	}
	bestGp0 := groups[0].Best().Distance
	bestGp1 := groups[1].Best().Distance
	gap := bestGp1 - bestGp0
	if gap >= *cfg.MinGroupGap {
		return allDocsOf(groups[0])
	}
	return nil
}

func tiebreakGroupsByQueryAware(ctx context.Context, groups []cluster.Group, query string, cfg Config) ([]doc.Document, error) {
	if cfg.Embedder == nil {
		return nil, nil
	}
	if len(groups) < 2 {
		return nil, nil
	}

	sigDocs, err := tiebreakSignatureEmbedding(ctx, groups, query, cfg)
	if err != nil {
		return nil, err
	}
	if sigDocs != nil {
		return sigDocs, nil
	}

	return tiebreakAnchorEmbedding(ctx, groups, query, cfg)
}

func tiebreakSignatureEmbedding(ctx context.Context, groups []cluster.Group, query string, cfg Config) ([]doc.Document, error) {
	if !cfg.EnableSigTiebreak || cfg.Embedder == nil {
		return nil, nil
	}

	candidates := make([]simtext.RankedText, len(groups))
	for i, g := range groups {
		sig := doc.SafeSignature(g.Best().Doc, cfg.StrictSig)
		candidates[i] = simtext.RankedText{Index: i, Text: sig.Render()}
	}

	res, err := simtext.PickByQueryEmbedding(ctx, cfg.Embedder, cfg.Cache, query, candidates, cfg.MinSigSim, cfg.MinSigSimGap)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return allDocsOf(groups[res.BestIndex]), nil
}

func tiebreakAnchorEmbedding(ctx context.Context, groups []cluster.Group, query string, cfg Config) ([]doc.Document, error) {
	if !cfg.EnableAnchorTiebreak || cfg.Embedder == nil {
		return nil, nil
	}
	if len(groups) < 2 {
		return nil, nil
	}

	candidates := make([]simtext.RankedText, len(groups))
	for i, g := range groups {
		candidates[i] = simtext.RankedText{Index: i, Text: simtext.ClipText(g.Best().Doc.Content)}
	}

	res, err := simtext.PickByQueryEmbedding(ctx, cfg.Embedder, cfg.Cache, query, candidates, cfg.MinAnchorSim, cfg.MinAnchorSimGap)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return allDocsOf(groups[res.BestIndex]), nil
}

func ensureEntitiesCoverage(scored []doc.ScoredDocument, docs []doc.Document, query string, finalK int, cfg Config) []doc.Document {
	if cfg.Entities == nil {
		return docs
	}
	queryID := toSet(cfg.Entities.Extract(query))
	if len(queryID) == 0 {
		return docs
	}
	return augment.ToCoverEntities(docs, scored, queryID, finalK)
}
