// Package openai provides an embeddings client for the OpenAI API and
// compatible endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vecta-io/recall/embeddings"
	"github.com/vecta-io/recall/schema"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	embeddingsEndpoint    = "/embeddings"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultHTTPClientTO   = 30 * time.Second
)

// modelDimensions maps known models to their native vector size.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Request is the OpenAI embeddings request payload.
type Request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// Response is the OpenAI embeddings response payload.
type Response struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
}

// EmbeddingData is a single embedding in the response.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (Azure or compatible endpoints).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = baseURL
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

// WithDimension overrides the vector dimension reported by the client.
func WithDimension(dimension int) ClientOption {
	return func(c *Client) {
		if dimension > 0 {
			c.dimension = dimension
		}
	}
}

// Client calls the OpenAI embeddings endpoint. The API key is injected by
// the caller; the client keeps no process-wide state.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	dimension  int
}

// NewClient creates an embeddings client for the given key and model.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPClientTO},
	}
	if c.Model == "" {
		c.Model = defaultEmbeddingModel
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dimension == 0 {
		if d, ok := modelDimensions[c.Model]; ok {
			c.dimension = d
		} else {
			c.dimension = modelDimensions[defaultEmbeddingModel]
		}
	}
	return c
}

var _ embeddings.Embedder = (*Client)(nil)

// Dimension returns the vector size produced by the configured model.
func (c *Client) Dimension() int { return c.dimension }

// EmbedDocuments embeds texts in one call, restoring input order from the
// response index field.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqBody, err := json.Marshal(Request{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embeddingsEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai: %v: %w", err, schema.ErrCancelled)
		}
		return nil, fmt.Errorf("openai: send request: %v: %w", err, schema.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %v: %w", err, schema.ErrServiceUnavailable)
	}
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("openai: decode response: %v: %w", err, schema.ErrInvalidResponse)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs: %w", len(out.Data), len(texts), schema.ErrInvalidResponse)
	}
	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range: %w", item.Index, schema.ErrInvalidResponse)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, vector := range vectors {
		if len(vector) == 0 {
			return nil, fmt.Errorf("openai: empty embedding for input %d: %w", i, schema.ErrInvalidResponse)
		}
		if len(vector) != c.dimension {
			return nil, fmt.Errorf("openai: embedding for input %d has dimension %d, model %s declares %d: %w",
				i, len(vector), c.Model, c.dimension, schema.ErrInvalidResponse)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("openai: got %d vectors for 1 query: %w", len(vectors), schema.ErrInvalidResponse)
	}
	return vectors[0], nil
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("openai: %s: %w", resp.Status, schema.ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("openai: %s: %w", resp.Status, schema.ErrServiceUnavailable)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("openai: %s: %s: %w", resp.Status, bytes.TrimSpace(body), schema.ErrInvalidResponse)
	}
}
