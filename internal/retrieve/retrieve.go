// Package retrieve fetches L2-scored candidates ahead of gating. It owns
// only the fetch_k sizing and the store call; gating, clustering, and
// disambiguation live in their own packages (spec.md §4.2), ported from
// original_source/src/rag/retriever.py's fetch_scored_docs_l2 and
// chain.py's _calculate_safe_fetch_k.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/brunobiangulo/docqa/internal/doc"
)

// Store is the narrow vector-search surface the retriever needs. A
// concrete implementation lives in the vecstore package; tests supply
// an in-memory fake.
type Store interface {
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]doc.ScoredDocument, error)
}

// SafeFetchK enlarges the configured fetch_k so gating and
// disambiguation always have enough candidates to fill every option's
// companions: final_k plus two per possible option, plus a fixed
// buffer, but never less than the configured floor.
func SafeFetchK(fetchK, finalK, maxOptions int) (int, error) {
	if finalK < 1 {
		return 0, fmt.Errorf("retrieve: final_k must be at least 1, got %d", finalK)
	}
	const buffer = 2
	safe := finalK + 2*maxOptions + buffer
	if safe > fetchK {
		return safe, nil
	}
	return fetchK, nil
}

// Fetch runs a similarity search for query against store, requesting
// SafeFetchK(fetchK, finalK, maxOptions) candidates, and returns them
// sorted ascending by L2 distance (best first).
func Fetch(ctx context.Context, store Store, query string, fetchK, finalK, maxOptions int) ([]doc.ScoredDocument, error) {
	k, err := SafeFetchK(fetchK, finalK, maxOptions)
	if err != nil {
		return nil, err
	}

	scored, err := store.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: similarity search: %w", err)
	}

	out := make([]doc.ScoredDocument, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}
