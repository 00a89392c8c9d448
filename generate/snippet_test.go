package generate

import (
	"strings"
	"testing"

	"github.com/brunobiangulo/docqa/internal/doc"
)

func TestBestSnippetBasicOverlap(t *testing.T) {
	content := "The MQTT broker holds at most one message per topic for QoS 1 retained delivery. The connection uses TCP port 1883. Security follows TLS 1.2 at minimum."
	words := significantWords("QoS 1 guarantees at-least-once delivery of retained messages.")

	snippet := bestSnippet(content, words)
	if snippet == "" {
		t.Fatal("expected non-empty snippet")
	}
	if !strings.Contains(snippet, "QoS 1") {
		t.Errorf("expected snippet to mention QoS 1, got: %q", snippet)
	}
}

func TestBestSnippetNoOverlap(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog."
	words := significantWords("quantum computing uses superconducting qubits")

	if snippet := bestSnippet(content, words); snippet != "" {
		t.Errorf("expected empty snippet when no overlap, got: %q", snippet)
	}
}

func TestBestSnippetEmptyInputs(t *testing.T) {
	if s := bestSnippet("", map[string]bool{"test": true}); s != "" {
		t.Errorf("expected empty for empty content, got: %q", s)
	}
	if s := bestSnippet("some content here.", nil); s != "" {
		t.Errorf("expected empty for nil words, got: %q", s)
	}
	if s := bestSnippet("some content here.", map[string]bool{}); s != "" {
		t.Errorf("expected empty for empty words, got: %q", s)
	}
}

func TestBestSnippetRespectsMaxLen(t *testing.T) {
	content := "First sentence about brokers. Second sentence about topics. " +
		"Third sentence about retained messages. Fourth sentence about QoS levels. " +
		"Fifth sentence about keepalive timers. Sixth sentence about session expiry."
	words := significantWords("brokers topics retained QoS keepalive session")

	snippet := bestSnippet(content, words)
	if len(snippet) > snippetMaxLen {
		t.Errorf("snippet exceeds max length: %d > %d", len(snippet), snippetMaxLen)
	}
}

func TestSignificantWords(t *testing.T) {
	words := significantWords("The broker accepts at most one inflight message. This is very important for QoS.")

	if !words["broker"] {
		t.Error("expected 'broker' in significant words")
	}
	if !words["accepts"] {
		t.Error("expected 'accepts' in significant words")
	}
	if !words["important"] {
		t.Error("expected 'important' in significant words")
	}
	if words["this"] {
		t.Error("'this' should be excluded (stop word)")
	}
	if words["very"] {
		t.Error("'very' should be excluded (stop word)")
	}
	if words["the"] {
		t.Error("'the' should be excluded (< 4 chars)")
	}
}

func TestSplitSentences(t *testing.T) {
	text := "First sentence. Second sentence? Third sentence! Final text without period"
	sentences := splitSentences(text)

	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[0] != "First sentence." {
		t.Errorf("sentence 0: got %q", sentences[0])
	}
	if sentences[3] != "Final text without period" {
		t.Errorf("sentence 3: got %q", sentences[3])
	}
}

func TestBestSnippetAdjacentSentences(t *testing.T) {
	content := "Setup is easy. The broker runs on port 1883. The QoS level defaults to 0."
	words := significantWords("broker port 1883 QoS level")

	snippet := bestSnippet(content, words)
	if !strings.Contains(snippet, "broker") {
		t.Errorf("expected broker mention in snippet: %q", snippet)
	}
	if !strings.Contains(snippet, "QoS level") {
		t.Errorf("expected the overlapping next sentence to be appended: %q", snippet)
	}
}

func TestBuildCitationsOnePerDocWithFilenameAndPage(t *testing.T) {
	page := 7
	docs := []doc.Document{
		{Content: "The broker runs on port 1883 by default.", Source: "mqtt.pdf", Page: &page},
		{Content: "Completely unrelated filler text about gardening.", Source: "other.pdf"},
	}

	citations := buildCitations(docs, "The broker listens on port 1883.")
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Filename != "mqtt.pdf" || citations[0].Page == nil || *citations[0].Page != 7 {
		t.Errorf("unexpected first citation: %+v", citations[0])
	}
	if citations[0].Snippet == "" {
		t.Error("expected a non-empty snippet for the overlapping document")
	}
	if citations[1].Filename != "other.pdf" || citations[1].Snippet != "" {
		t.Errorf("expected empty snippet for the non-overlapping document, got: %+v", citations[1])
	}
}
