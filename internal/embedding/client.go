// Package embedding provides the batch embedding client used by the episode
// pipeline. It speaks the Ollama embed API over plain HTTP and wraps every
// call with a circuit breaker and a rate limiter so a struggling provider
// degrades the run instead of hammering it.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned when the breaker rejects a request after
// repeated provider failures.
var ErrCircuitOpen = errors.New("embedding circuit breaker is open")

// Embedder generates vector embeddings for a batch of texts. The returned
// slice has the same length and order as the input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds embedding client configuration.
type Config struct {
	// BaseURL is the embedding API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text).
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize bounds how many texts go into one provider call
	// (default: 20, the provider's documented comfort limit).
	BatchSize int

	// RequestsPerSecond paces provider calls (default: 2/s).
	RequestsPerSecond float64
}

// Client is an HTTP embedding client.
type Client struct {
	baseURL   string
	model     string
	timeout   time.Duration
	batchSize int
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient creates an embedding client, applying defaults for any zero
// config values.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		batchSize: cfg.BatchSize,
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// EmbedBatch embeds texts in provider-sized chunks and concatenates the
// results. Chunk responses are validated for length so the positional
// alignment between input texts and output vectors can never drift.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.embedChunk(ctx, chunk)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return nil, ErrCircuitOpen
			}
			return nil, fmt.Errorf("embedding: chunk at offset %d: %w", start, err)
		}

		got := result.([][]float32)
		if len(got) != len(chunk) {
			return nil, fmt.Errorf("embedding: provider returned %d vectors for %d texts", len(got), len(chunk))
		}
		vectors = append(vectors, got...)
	}

	return vectors, nil
}

// embedChunk performs one provider call.
func (c *Client) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding provider returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parsed.Embeddings, nil
}

// Ping verifies the provider is reachable and the configured model is
// available. Used by loom-setup's health check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}

	for _, m := range parsed.Models {
		if m.Name == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not available on provider", c.model)
}
