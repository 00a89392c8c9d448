package options

import (
	"testing"

	"github.com/brunobiangulo/docqa/internal/cluster"
	"github.com/brunobiangulo/docqa/internal/doc"
)

func intPtr(i int) *int { return &i }

func TestCollectSourcesDedupsAndSorts(t *testing.T) {
	docs := []doc.Document{
		{Source: "b.pdf", Page: intPtr(2)},
		{Source: "a.pdf", Page: intPtr(5)},
		{Source: "a.pdf", Page: intPtr(5)},
		{Source: "a.pdf", Page: intPtr(1)},
	}
	got := CollectSources(docs)
	want := []doc.SourceRef{
		{Filename: "a.pdf", Page: "1"},
		{Filename: "a.pdf", Page: "5"},
		{Filename: "b.pdf", Page: "2"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sources, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuildOneOptionPerGroupWithCompanions(t *testing.T) {
	anchor := doc.Document{Source: "mqtt.pdf", Page: intPtr(1), Domain: "mqtt"}
	companionSamePage := doc.Document{Source: "mqtt.pdf", Page: intPtr(1), Domain: "mqtt"} // same page: skipped in phase 0
	companionSameFile := doc.Document{Source: "mqtt.pdf", Page: intPtr(2), Domain: "mqtt"}
	companionOtherFile := doc.Document{Source: "mqtt2.pdf", Page: intPtr(9), Domain: "mqtt"}

	group := cluster.Group{
		Docs: []doc.ScoredDocument{
			{Doc: anchor, Distance: 0.1},
			{Doc: companionSamePage, Distance: 0.2},
			{Doc: companionSameFile, Distance: 0.3},
			{Doc: companionOtherFile, Distance: 0.4},
		},
	}

	opts := Build([]cluster.Group{group}, 3, 3)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	opt := opts[0]
	if opt.ID != 1 {
		t.Fatalf("expected ID 1, got %d", opt.ID)
	}
	if len(opt.Docs) != 3 {
		t.Fatalf("expected anchor + 2 companions, got %d: %+v", len(opt.Docs), opt.Docs)
	}
	if opt.Docs[0].SourceKey() != anchor.SourceKey() {
		t.Fatalf("expected anchor first, got %+v", opt.Docs[0])
	}
}

func TestBuildDedupesBySourceSet(t *testing.T) {
	docA := doc.Document{Source: "a.pdf", Page: intPtr(1)}
	docB := doc.Document{Source: "a.pdf", Page: intPtr(1)} // identical source/page as docA

	groupA := cluster.Group{Docs: []doc.ScoredDocument{{Doc: docA, Distance: 0.1}}}
	groupB := cluster.Group{Docs: []doc.ScoredDocument{{Doc: docB, Distance: 0.2}}}

	opts := Build([]cluster.Group{groupA, groupB}, 3, 1)
	if len(opts) != 1 {
		t.Fatalf("expected dedup to collapse to 1 option, got %d", len(opts))
	}
}

func TestBuildRespectsMaxOptions(t *testing.T) {
	var groups []cluster.Group
	for i := 0; i < 5; i++ {
		d := doc.Document{Source: "f.pdf", Page: intPtr(i)}
		groups = append(groups, cluster.Group{Docs: []doc.ScoredDocument{{Doc: d, Distance: float64(i)}}})
	}
	opts := Build(groups, 2, 1)
	if len(opts) != 2 {
		t.Fatalf("expected max_options=2 to cap output, got %d", len(opts))
	}
}
