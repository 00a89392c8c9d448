// Package embedproviders adapts HTTP embedding backends to the Provider
// interface (which also satisfies simtext.Embedder), in the style of the
// teacher's llm package:
// a shared OpenAI-compatible HTTP client with per-vendor wrappers,
// selected at runtime from a Config.
package embedproviders

import (
	"context"
	"fmt"
)

// Provider generates embeddings for a batch of texts, returning one
// vector per input text in the same order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Config configures an embedding provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, custom (openai-compatible)
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// New creates an embedding provider from configuration.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return newOllama(cfg), nil
	case "custom", "openai", "openai_compat":
		return newOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("embedproviders: provider not specified")
	default:
		return nil, fmt.Errorf("embedproviders: unknown provider %q", cfg.Provider)
	}
}
