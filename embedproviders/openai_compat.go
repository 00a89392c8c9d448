package embedproviders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// openAICompatClient is the shared HTTP base for every OpenAI-compatible
// embedding endpoint (the real OpenAI API, LM Studio, vLLM, and any
// self-hosted server that mirrors the /v1/embeddings contract).
type openAICompatClient struct {
	cfg        Config
	client     *http.Client
	pathPrefix string
}

func newOpenAICompatClient(cfg Config, prefix string) openAICompatClient {
	// Generous timeout: local providers may load a model on first request.
	return openAICompatClient{
		cfg:        cfg,
		pathPrefix: prefix,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

type openAICompatProvider struct {
	base openAICompatClient
}

func newOpenAICompat(cfg Config) Provider {
	return &openAICompatProvider{base: newOpenAICompatClient(cfg, "/v1")}
}

func (p *openAICompatProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return p.base.embed(ctx, texts)
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *openAICompatClient) embed(ctx context.Context, texts []string) ([][]float64, error) {
	body := embeddingRequest{Model: c.cfg.Model, Input: texts}

	respBody, err := c.doPost(ctx, c.pathPrefix+"/embeddings", body)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("embedproviders: decoding embedding response: %w", err)
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

const (
	maxRetries        = 6
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second
)

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func (c *openAICompatClient) doPost(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			slog.Warn("embedproviders: retrying request", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		lastErr = fmt.Errorf("embedding API error %d: %s", resp.StatusCode, string(respBody))
		if !retryableStatusCode(resp.StatusCode) {
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimitDelay := minRateLimitDelay * time.Duration(1<<attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
					if headerDelay := time.Duration(seconds) * time.Second; headerDelay > rateLimitDelay {
						rateLimitDelay = headerDelay
					}
				}
			}
			slog.Warn("embedproviders: rate limited, waiting before retry", "url", url, "attempt", attempt+1, "delay", rateLimitDelay)
			select {
			case <-time.After(rateLimitDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("embedproviders: max retries exceeded: %w", lastErr)
}
