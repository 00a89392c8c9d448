// Package generate turns a resolved document set into a natural-language
// answer. It sits outside the retrieval core (see docqa.Engine.Invoke,
// which never calls an LLM) the way original_source/src/rag/chain.py's
// generation step sits downstream of retriever.py's gating — adapted
// here from the teacher's reasoning.Engine, trimmed to a single round
// (no multi-round validation/refinement; that belongs to the teacher's
// own reasoning package, not this spec).
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brunobiangulo/docqa/internal/doc"
)

// Config configures a Generator's chat backend.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, custom (openai-compatible)
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// Citation is one source backing an Answer, with a short snippet
// extracted from the document content around the words the answer
// actually used.
type Citation struct {
	Filename string
	Page     *int
	Snippet  string
}

// Answer is the result of a Generate call.
type Answer struct {
	Text      string
	Citations []Citation
	Model     string
}

// Generator produces an Answer from a question and the documents
// docqa.Engine.Invoke resolved for it.
type Generator struct {
	client chatClient
	model  string
}

// New builds a Generator from cfg.
func New(cfg Config) (*Generator, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("generate: provider not specified")
	}
	baseURL := cfg.BaseURL
	pathPrefix := "/v1"
	if cfg.Provider == "ollama" {
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		pathPrefix = "/v1" // Ollama's OpenAI-compatible chat endpoint
	}
	return &Generator{
		client: chatClient{
			cfg:        cfg,
			baseURL:    baseURL,
			pathPrefix: pathPrefix,
			http:       &http.Client{Timeout: 120 * time.Second},
		},
		model: cfg.Model,
	}, nil
}

const systemPrompt = `You are a precise document analysis assistant. Answer questions based ONLY on the provided context.
Rules:
1. Only state facts that are directly supported by the provided sources.
2. Cite sources by referencing the document filename and page when possible.
3. If the context doesn't contain enough information to answer, say so explicitly.
4. Be concise but thorough.`

// Generate answers question from docs, a single chat round with no
// validation or refinement pass.
func (g *Generator) Generate(ctx context.Context, question string, docs []doc.Document) (Answer, error) {
	if len(docs) == 0 {
		return Answer{}, fmt.Errorf("generate: no documents to answer from")
	}

	contextStr := buildContext(docs)
	prompt := buildAnswerPrompt(question, contextStr)

	resp, err := g.client.chat(ctx, chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate: chat completion: %w", err)
	}

	citations := buildCitations(docs, resp.Content)

	return Answer{Text: resp.Content, Citations: citations, Model: resp.Model}, nil
}

func buildContext(docs []doc.Document) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "--- Source %d: %s", i+1, d.Filename())
		if d.Section != "" {
			fmt.Fprintf(&b, " | %s", d.Section)
		}
		if d.Page != nil {
			fmt.Fprintf(&b, " | Page %d", *d.Page)
		}
		b.WriteString(" ---\n")
		b.WriteString(d.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func buildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(`Context:
%s

Question: %s

Provide a detailed answer based only on the context above. Cite specific sources.`, context, question)
}

// --- minimal OpenAI-compatible chat client ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponseBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatResult struct {
	Content string
	Model   string
}

type chatClient struct {
	cfg        Config
	baseURL    string
	pathPrefix string
	http       *http.Client
}

func (c chatClient) chat(ctx context.Context, req chatRequest) (chatResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return chatResult{}, err
	}

	url := c.baseURL + c.pathPrefix + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return chatResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return chatResult{}, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatResult{}, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return chatResult{}, fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return chatResult{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		slog.Warn("generate: chat response had no choices", "url", url)
		return chatResult{}, fmt.Errorf("chat response had no choices")
	}

	return chatResult{Content: parsed.Choices[0].Message.Content, Model: parsed.Model}, nil
}
