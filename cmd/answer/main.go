// Command answer runs a single question end to end: retrieve, gate,
// resolve, then synthesize a cited answer.
//
// Usage:
//
//	go run ./cmd/answer \
//	  --config ./docqa.yaml --db ./docqa.db --embedding-dim 768 \
//	  --chat-provider custom --chat-model llama3.1:8b --chat-base-url http://localhost:11434 \
//	  "What does QoS 1 guarantee in MQTT?"
//
// Embedding provider settings come from --config; only chat synthesis
// is flag-driven here, since it has no bearing on retrieval gating.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brunobiangulo/docqa"
	"github.com/brunobiangulo/docqa/embedproviders"
	"github.com/brunobiangulo/docqa/generate"
	"github.com/brunobiangulo/docqa/internal/options"
	"github.com/brunobiangulo/docqa/vecstore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	dbPath := flag.String("db", "docqa.db", "Path to the SQLite vector store")
	embeddingDim := flag.Int("embedding-dim", 768, "Query/chunk embedding dimension")

	chatProvider := flag.String("chat-provider", "", "Chat provider (ollama, custom); answer synthesis skipped if empty")
	chatModel := flag.String("chat-model", "", "Chat model name")
	chatBaseURL := flag.String("chat-base-url", "", "Chat API base URL")
	chatAPIKey := flag.String("chat-api-key", "", "Chat API key")

	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: answer [flags] <question>")
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := docqa.DefaultConfig()
	if *configPath != "" {
		loaded, err := docqa.LoadConfig(*configPath)
		if err != nil {
			fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	embedder, err := embedproviders.New(cfg.Embedding)
	if err != nil {
		fatalf("creating embedding provider: %v", err)
	}

	store, err := vecstore.New(*dbPath, *embeddingDim, embedder)
	if err != nil {
		fatalf("opening vector store: %v", err)
	}
	defer store.Close()

	engine, err := docqa.New(cfg, store)
	if err != nil {
		fatalf("creating engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	outcome, err := engine.Invoke(ctx, docqa.Request{Input: question})
	if err != nil {
		fatalf("invoke: %v", err)
	}

	switch outcome.Status {
	case docqa.StatusRefuse:
		fmt.Printf("refused: %s\n", outcome.RefusalReason)
		return

	case docqa.StatusAmbiguous:
		fmt.Println("ambiguous — the question matches several of the following; rephrase it to target one:")
		for _, opt := range outcome.Options {
			fmt.Printf("  [%d] best match: %s (l2=%.4f)\n", opt.ID, describeSources(opt), opt.BestL2)
		}
		return

	case docqa.StatusOK:
		printAnswer(ctx, question, outcome, *chatProvider, *chatModel, *chatBaseURL, *chatAPIKey)
	}
}

func printAnswer(ctx context.Context, question string, outcome docqa.Outcome, provider, model, baseURL, apiKey string) {
	if provider == "" {
		fmt.Printf("found %d supporting document(s):\n", len(outcome.Docs))
		for _, d := range outcome.Docs {
			fmt.Printf("- %s\n", d.Filename())
		}
		return
	}

	gen, err := generate.New(generate.Config{Provider: provider, Model: model, BaseURL: baseURL, APIKey: apiKey})
	if err != nil {
		fatalf("creating generator: %v", err)
	}

	answer, err := gen.Generate(ctx, question, outcome.Docs)
	if err != nil {
		fatalf("generating answer: %v", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range answer.Citations {
			if c.Page != nil {
				fmt.Printf("- %s (p.%d): %s\n", c.Filename, *c.Page, c.Snippet)
			} else {
				fmt.Printf("- %s: %s\n", c.Filename, c.Snippet)
			}
		}
	}
}

func describeSources(opt options.Option) string {
	parts := make([]string, 0, len(opt.Sources))
	for _, s := range opt.Sources {
		if s.Page == "n/a" {
			parts = append(parts, s.Filename)
		} else {
			parts = append(parts, fmt.Sprintf("%s p.%s", s.Filename, s.Page))
		}
	}
	return strings.Join(parts, ", ")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "answer: "+format+"\n", args...)
	os.Exit(1)
}
