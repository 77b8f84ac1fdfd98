// Package ollama provides an embeddings client for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vecta-io/recall/embeddings"
	"github.com/vecta-io/recall/schema"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	embedEndpoint      = "/api/embed"
	defaultHTTPTimeout = 30 * time.Second
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the Ollama server base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// Client calls the Ollama embed endpoint. Ollama models vary in vector
// size, so the dimension is declared by the caller.
type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	dimension  int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// NewClient creates an embeddings client for the given model and dimension.
func NewClient(model string, dimension int, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		dimension:  dimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ embeddings.Embedder = (*Client)(nil)

// Dimension returns the declared vector size for the configured model.
func (c *Client) Dimension() int { return c.dimension }

// EmbedDocuments embeds texts in one call. The Ollama embed endpoint
// returns vectors in input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.Model == "" {
		return nil, fmt.Errorf("ollama: model is required: %w", schema.ErrInvalidArgument)
	}
	reqBody, err := json.Marshal(embedRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embedEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ollama: %v: %w", err, schema.ErrCancelled)
		}
		return nil, fmt.Errorf("ollama: send request: %v: %w", err, schema.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("ollama: %s: %w", resp.Status, schema.ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("ollama: %s: %w", resp.Status, schema.ErrServiceUnavailable)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama: %s: %s: %w", resp.Status, bytes.TrimSpace(body), schema.ErrInvalidResponse)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %v: %w", err, schema.ErrInvalidResponse)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama: %s: %w", out.Error, schema.ErrInvalidResponse)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs: %w", len(out.Embeddings), len(texts), schema.ErrInvalidResponse)
	}
	for i, vector := range out.Embeddings {
		if len(vector) == 0 {
			return nil, fmt.Errorf("ollama: empty embedding for input %d: %w", i, schema.ErrInvalidResponse)
		}
		if c.dimension > 0 && len(vector) != c.dimension {
			return nil, fmt.Errorf("ollama: embedding for input %d has dimension %d, model %s declares %d: %w",
				i, len(vector), c.Model, c.dimension, schema.ErrInvalidResponse)
		}
	}
	return out.Embeddings, nil
}

// EmbedQuery embeds a single query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("ollama: got %d vectors for 1 query: %w", len(vectors), schema.ErrInvalidResponse)
	}
	return vectors[0], nil
}
