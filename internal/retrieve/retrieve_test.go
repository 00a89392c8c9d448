package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/brunobiangulo/docqa/internal/doc"
)

type fakeStore struct {
	docs       []doc.ScoredDocument
	err        error
	lastK      int
	lastQuery  string
	calledWith bool
}

func (f *fakeStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]doc.ScoredDocument, error) {
	f.calledWith = true
	f.lastQuery = query
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func TestSafeFetchKUsesConfiguredFloorWhenLarger(t *testing.T) {
	got, err := SafeFetchK(20, 4, 3)
	if err != nil {
		t.Fatalf("SafeFetchK: %v", err)
	}
	if got != 20 {
		t.Fatalf("expected configured floor 20, got %d", got)
	}
}

func TestSafeFetchKGrowsForManyOptions(t *testing.T) {
	got, err := SafeFetchK(5, 4, 3)
	if err != nil {
		t.Fatalf("SafeFetchK: %v", err)
	}
	want := 4 + 2*3 + 2
	if got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestSafeFetchKRejectsNonPositiveFinalK(t *testing.T) {
	if _, err := SafeFetchK(10, 0, 2); err == nil {
		t.Fatalf("expected error for final_k=0")
	}
}

func TestFetchSortsByDistanceAscending(t *testing.T) {
	store := &fakeStore{docs: []doc.ScoredDocument{
		{Doc: doc.Document{Source: "b.pdf"}, Distance: 0.5},
		{Doc: doc.Document{Source: "a.pdf"}, Distance: 0.1},
	}}
	out, err := Fetch(context.Background(), store, "query", 10, 4, 3)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(out) != 2 || out[0].Doc.Source != "a.pdf" || out[1].Doc.Source != "b.pdf" {
		t.Fatalf("expected ascending sort, got %+v", out)
	}
	if !store.calledWith || store.lastQuery != "query" {
		t.Fatalf("expected store to be called with query")
	}
	if store.lastK != 12 {
		t.Fatalf("expected fetch k=12 (4 + 2*3 + 2 exceeds the floor of 10), got %d", store.lastK)
	}
}

func TestFetchPropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("boom")}
	if _, err := Fetch(context.Background(), store, "query", 10, 4, 3); err == nil {
		t.Fatalf("expected error to propagate")
	}
}
