package coverage

import (
	"testing"

	"github.com/brunobiangulo/docqa/internal/doc"
)

func mustCfg(t *testing.T) Config {
	t.Helper()
	cfg, err := Compile(
		true,
		[]string{`\bvs\.?\b|\bcompare\b|\bversus\b`},
		[]string{`\boverview\b|\ball\b`},
		[]string{"mqtt", "kafka"},
		map[string][]string{"mqtt": {`\bmqtt\b`}, "kafka": {`\bkafka\b`}},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cfg
}

func docWithEntities(entities ...string) doc.Document {
	return doc.Document{Source: "x.pdf", Entities: entities}
}

func TestCheckCompareMissingEntityRefuses(t *testing.T) {
	cfg := mustCfg(t)
	docs := []doc.Document{docWithEntities("mqtt")}
	got := Check("compare mqtt vs kafka", docs, cfg)
	if !got.Refused {
		t.Fatalf("expected refusal for missing compare entity")
	}
}

func TestCheckCompareFullCoveragePasses(t *testing.T) {
	cfg := mustCfg(t)
	docs := []doc.Document{docWithEntities("mqtt", "kafka")}
	got := Check("compare mqtt vs kafka", docs, cfg)
	if got.Refused {
		t.Fatalf("expected pass, got refused: %s", got.Reason)
	}
}

func TestCheckGenericMissingEntityRefuses(t *testing.T) {
	cfg := mustCfg(t)
	docs := []doc.Document{docWithEntities("kafka")}
	got := Check("give me an overview of mqtt", docs, cfg)
	if !got.Refused {
		t.Fatalf("expected refusal for missing generic entity")
	}
}

func TestCheckNoEntitiesInQueryPasses(t *testing.T) {
	cfg := mustCfg(t)
	docs := []doc.Document{docWithEntities()}
	got := Check("what is the weather today?", docs, cfg)
	if got.Refused {
		t.Fatalf("expected pass when no entities detected in query")
	}
}

func TestCheckEmptyDocsPasses(t *testing.T) {
	cfg := mustCfg(t)
	got := Check("compare mqtt vs kafka", nil, cfg)
	if got.Refused {
		t.Fatalf("expected pass-through when no docs (handled downstream)")
	}
}

func TestCheckDisabledIsNoop(t *testing.T) {
	cfg, err := Compile(false, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := Check("compare mqtt vs kafka", nil, cfg)
	if got.Refused {
		t.Fatalf("disabled gate must be a no-op")
	}
}

func TestCheckEmptyQueryRefuses(t *testing.T) {
	cfg := mustCfg(t)
	got := Check("   ", []doc.Document{docWithEntities("mqtt")}, cfg)
	if !got.Refused || got.Reason != "Empty or invalid query" {
		t.Fatalf("got %+v", got)
	}
}
