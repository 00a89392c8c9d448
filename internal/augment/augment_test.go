package augment

import (
	"testing"

	"github.com/brunobiangulo/docqa/internal/doc"
)

func entSet(entities ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		out[e] = struct{}{}
	}
	return out
}

func TestToCoverEntitiesNoMissingReturnsAsIs(t *testing.T) {
	chosen := []doc.Document{{Source: "a.pdf", Entities: []string{"mqtt"}}}
	got := ToCoverEntities(chosen, nil, entSet("mqtt"), 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(got))
	}
}

func TestToCoverEntitiesFillsFromCandidates(t *testing.T) {
	chosen := []doc.Document{{Source: "a.pdf", Entities: []string{"mqtt"}}}
	candidates := []doc.ScoredDocument{
		{Doc: doc.Document{Source: "b.pdf", Entities: []string{"kafka"}}, Distance: 0.2},
		{Doc: doc.Document{Source: "c.pdf", Entities: []string{"unrelated"}}, Distance: 0.1},
	}
	got := ToCoverEntities(chosen, candidates, entSet("mqtt", "kafka"), 3)

	found := false
	for _, d := range got {
		if d.Source == "b.pdf" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected kafka-covering doc to be added, got %+v", got)
	}
}

func TestToCoverEntitiesTrimsWhenFull(t *testing.T) {
	chosen := []doc.Document{
		{Source: "a.pdf", Entities: []string{"mqtt"}},
		{Source: "b.pdf", Entities: []string{"mqtt"}},
		{Source: "c.pdf", Entities: []string{"mqtt"}},
	}
	candidates := []doc.ScoredDocument{
		{Doc: doc.Document{Source: "d.pdf", Entities: []string{"kafka"}}, Distance: 0.5},
	}
	got := ToCoverEntities(chosen, candidates, entSet("mqtt", "kafka"), 3)
	if len(got) != 3 {
		t.Fatalf("expected trimmed-and-filled result capped at final_k=3, got %d: %+v", len(got), got)
	}
	foundKafka := false
	for _, d := range got {
		if d.Source == "d.pdf" {
			foundKafka = true
		}
	}
	if !foundKafka {
		t.Fatalf("expected trim to make room for kafka doc, got %+v", got)
	}
}

func TestToCoverEntitiesSkipsAlreadySeenSignature(t *testing.T) {
	chosen := []doc.Document{{Source: "a.pdf", Entities: []string{"mqtt"}}}
	candidates := []doc.ScoredDocument{
		{Doc: doc.Document{Source: "a.pdf", Entities: []string{"mqtt", "kafka"}}, Distance: 0.1},
	}
	got := ToCoverEntities(chosen, candidates, entSet("mqtt", "kafka"), 3)
	if len(got) != 1 {
		t.Fatalf("expected duplicate source signature to be skipped, got %d", len(got))
	}
}

func TestToCoverEntitiesZeroFinalK(t *testing.T) {
	got := ToCoverEntities([]doc.Document{{Source: "a.pdf"}}, nil, entSet("mqtt"), 0)
	if len(got) != 0 {
		t.Fatalf("expected empty result for final_k=0, got %d", len(got))
	}
}
