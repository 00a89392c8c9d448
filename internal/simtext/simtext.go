// Package simtext provides the embedding-based tie-breakers used by the
// AmbiguityResolver's S6/S7 steps (spec.md §4.5), ported from
// original_source/src/rag/tiebreakers.py. It owns cosine similarity
// (computed with explicit norms, no unit-vector assumption) and a
// concurrent-safe embedding cache that an Engine builds once and shares
// across all of its Invoke calls.
package simtext

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

const maxAnchorChars = 800

// Embedder is the narrow embedding surface simtext needs. It is
// satisfied by embedproviders.Provider.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Cache memoizes embeddings by (embedder identity, text) so the same
// signature or anchor text embedded repeatedly across tie-break steps
// costs one round trip. Safe for concurrent use.
type Cache struct {
	embedderID string
	entries    *xsync.Map[string, []float64]
}

// NewCache builds a Cache scoped to one embedder identity (e.g. the
// embedder's model name or a pointer-derived tag) so switching
// embedders never serves stale vectors.
func NewCache(embedderID string) *Cache {
	return &Cache{embedderID: embedderID, entries: xsync.NewMap[string, []float64]()}
}

func (c *Cache) key(text string) string {
	return c.embedderID + "\x1f" + text
}

// EmbedOne returns the cached embedding for text, computing and storing
// it via embedder on a miss.
func (c *Cache) EmbedOne(ctx context.Context, embedder Embedder, text string) ([]float64, error) {
	k := c.key(text)
	if v, ok := c.entries.Load(k); ok {
		return v, nil
	}
	vectors, err := embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("simtext: embed %q: %w", text, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("simtext: embedder returned no vectors for %q", text)
	}
	v := vectors[0]
	c.entries.Store(k, v)
	return v, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func l2norm(a []float64) float64 {
	var sum float64
	for _, x := range a {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSim computes cosine similarity using explicit norms; it never
// assumes a or b are unit vectors. Returns 0 when either vector is zero.
func CosineSim(a, b []float64) float64 {
	na, nb := l2norm(a), l2norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

// ClipText truncates text to at most maxAnchorChars runes after
// trimming whitespace, matching tiebreakers.py's anchor-content clip.
func ClipText(text string) string {
	t := strings.TrimSpace(text)
	r := []rune(t)
	if len(r) > maxAnchorChars {
		return string(r[:maxAnchorChars])
	}
	return t
}

// RankedText pairs arbitrary tie-break candidate text with its source
// index in the caller's original slice.
type RankedText struct {
	Index int
	Text  string
}

// SimResult is the common similarity-ranking outcome for both the
// signature and anchor tie-break steps: every candidate's similarity to
// the query, sorted descending.
type SimResult struct {
	BestIndex  int
	BestSim    float64
	SecondSim  float64
	Ranked     []int
	Similarity map[int]float64
}

// PickByQueryEmbedding embeds query and every candidate text, ranks
// candidates by cosine similarity to the query, and reports nil when
// the result is not confident enough to act on: best similarity below
// minSim, or the gap to the runner-up below minGap. Either threshold
// may be nil to disable that check. Candidate embeddings are served
// from cache; the query embedding is not cached since a query recurs
// at most once per resolution pass.
func PickByQueryEmbedding(ctx context.Context, embedder Embedder, cache *Cache, query string, candidates []RankedText, minSim, minGap *float64) (*SimResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	qVectors, err := embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("simtext: embed query: %w", err)
	}
	if len(qVectors) == 0 {
		return nil, fmt.Errorf("simtext: embedder returned no vector for query")
	}
	qVector := qVectors[0]

	type scored struct {
		index int
		sim   float64
	}
	sims := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		v, err := cache.EmbedOne(ctx, embedder, c.Text)
		if err != nil {
			return nil, err
		}
		sims = append(sims, scored{index: c.Index, sim: CosineSim(qVector, v)})
	}

	sort.SliceStable(sims, func(i, j int) bool { return sims[i].sim > sims[j].sim })

	res := &SimResult{
		BestIndex:  sims[0].index,
		BestSim:    sims[0].sim,
		SecondSim:  -1.0,
		Similarity: make(map[int]float64, len(sims)),
	}
	for _, s := range sims {
		res.Ranked = append(res.Ranked, s.index)
		res.Similarity[s.index] = s.sim
	}
	if len(sims) >= 2 {
		res.SecondSim = sims[1].sim
	}

	if minSim != nil && res.BestSim < *minSim {
		return nil, nil
	}
	if minGap != nil && len(sims) >= 2 && (res.BestSim-res.SecondSim) < *minGap {
		return nil, nil
	}

	return res, nil
}
