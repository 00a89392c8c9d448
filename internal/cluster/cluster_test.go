package cluster

import (
	"testing"

	"github.com/brunobiangulo/docqa/internal/doc"
)

func sigDoc(domain, docType, product, source string) doc.Document {
	return doc.Document{Domain: domain, DocType: docType, Product: product, Source: source}
}

func TestByTagSignatureGroupsAndSortsBuckets(t *testing.T) {
	mqtt1 := doc.ScoredDocument{Doc: sigDoc("mqtt", "spec", "mqtt", "mqtt-os.pdf"), Distance: 0.3}
	mqtt2 := doc.ScoredDocument{Doc: sigDoc("mqtt", "spec", "mqtt", "mqtt-os.pdf"), Distance: 0.1}
	kafka1 := doc.ScoredDocument{Doc: sigDoc("kafka", "guide", "kafka", "kafka.pdf"), Distance: 0.2}

	groups := ByTagSignature([]doc.ScoredDocument{mqtt1, mqtt2, kafka1}, false)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// kafka group's best distance (0.2) beats mqtt group's best distance (0.1)? No: mqtt best is 0.1.
	if groups[0].Best().Distance != 0.1 {
		t.Fatalf("expected mqtt group first (best 0.1), got %v", groups[0].Best().Distance)
	}
	if len(groups[0].Docs) != 2 {
		t.Fatalf("expected 2 docs in mqtt group, got %d", len(groups[0].Docs))
	}
	if groups[0].Docs[0].Distance != 0.1 || groups[0].Docs[1].Distance != 0.3 {
		t.Fatalf("expected mqtt group docs sorted ascending, got %+v", groups[0].Docs)
	}
	if groups[1].Best().Distance != 0.2 {
		t.Fatalf("expected kafka group second, got %v", groups[1].Best().Distance)
	}
}

func TestByTagSignatureEmptySignatureFallsBackPerFile(t *testing.T) {
	a := doc.ScoredDocument{Doc: sigDoc("", "", "", "a.pdf"), Distance: 0.1}
	b := doc.ScoredDocument{Doc: sigDoc("", "", "", "b.pdf"), Distance: 0.2}

	groups := ByTagSignature([]doc.ScoredDocument{a, b}, false)

	if len(groups) != 2 {
		t.Fatalf("expected untagged docs from different files to form separate buckets, got %d", len(groups))
	}
}

func TestByTagSignatureStrictSplitsOnVendorVersion(t *testing.T) {
	v1 := doc.Document{Domain: "mqtt", DocType: "spec", Product: "mqtt", Vendor: "oasis", Version: "3.1.1", Source: "v1.pdf"}
	v2 := doc.Document{Domain: "mqtt", DocType: "spec", Product: "mqtt", Vendor: "oasis", Version: "5.0", Source: "v2.pdf"}
	scored := []doc.ScoredDocument{{Doc: v1, Distance: 0.1}, {Doc: v2, Distance: 0.2}}

	core := ByTagSignature(scored, false)
	if len(core) != 1 {
		t.Fatalf("expected core signature to merge versions into one group, got %d", len(core))
	}

	strict := ByTagSignature(scored, true)
	if len(strict) != 2 {
		t.Fatalf("expected strict signature to split by version, got %d", len(strict))
	}
}
