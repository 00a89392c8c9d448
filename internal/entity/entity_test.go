package entity

import (
	"reflect"
	"testing"
)

func TestExtractReturnsConfiguredOrder(t *testing.T) {
	ex, err := Compile(
		[]string{"mqtt", "kafka", "aws_iot"},
		map[string][]string{
			"mqtt":    {`\bmqtt\b`},
			"kafka":   {`\bkafka\b`},
			"aws_iot": {`\baws iot\b`, `\biot core\b`},
		},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got := ex.Extract("How does MQTT compare to Kafka for AWS IoT pipelines?")
	want := []string{"mqtt", "kafka", "aws_iot"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractEmptyQuery(t *testing.T) {
	ex, err := Compile([]string{"mqtt"}, map[string][]string{"mqtt": {`\bmqtt\b`}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := ex.Extract("   "); got != nil {
		t.Fatalf("expected nil for empty query, got %v", got)
	}
}

func TestExtractNoMatches(t *testing.T) {
	ex, err := Compile([]string{"mqtt"}, map[string][]string{"mqtt": {`\bmqtt\b`}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := ex.Extract("what is the weather today?"); got != nil {
		t.Fatalf("expected no hits, got %v", got)
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	if _, err := Compile([]string{"x"}, map[string][]string{"x": {"("}}); err == nil {
		t.Fatalf("expected compile error")
	}
}
