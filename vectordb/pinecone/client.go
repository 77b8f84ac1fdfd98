package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vecta-io/recall/schema"
)

// Wire shapes of the index-management and data-plane APIs.

type indexModel struct {
	Name      string      `json:"name"`
	Dimension int         `json:"dimension"`
	Metric    string      `json:"metric"`
	Host      string      `json:"host"`
	Status    indexStatus `json:"status"`
}

type indexStatus struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
}

type createIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      indexSpec `json:"spec"`
}

type indexSpec struct {
	Serverless serverlessSpec `json:"serverless"`
}

type serverlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

type vectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata vectorMetadata `json:"metadata"`
}

type vectorMetadata struct {
	Text string `json:"text"`
}

type upsertRequest struct {
	Vectors []vectorRecord `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata vectorMetadata `json:"metadata"`
}

// do issues one JSON request and decodes the response into out when the
// status is 2xx. Non-2xx statuses and transport failures are classified
// into the engine's error kinds.
func (x *Index) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("pinecone: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("pinecone: create request: %w", err)
	}
	req.Header.Set("Api-Key", x.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := x.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("pinecone: %v: %w", err, schema.ErrCancelled)
		}
		return fmt.Errorf("pinecone: %s %s: %v: %w", method, url, err, schema.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("pinecone: %s: %w", resp.Status, schema.ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("pinecone: %s: %w", resp.Status, schema.ErrServiceUnavailable)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pinecone: %s: %s: %w", resp.Status, bytes.TrimSpace(detail), schema.ErrInvalidResponse)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pinecone: decode response: %v: %w", err, schema.ErrInvalidResponse)
	}
	return nil
}

// errNotFound marks a 404 from the control plane; describe uses it to
// decide whether the index must be created.
var errNotFound = errors.New("pinecone: not found")

func (x *Index) describeIndex(ctx context.Context) (*indexModel, error) {
	var model indexModel
	if err := x.do(ctx, http.MethodGet, x.BaseURL+"/indexes/"+x.IndexName, nil, &model); err != nil {
		return nil, err
	}
	return &model, nil
}

func (x *Index) createIndex(ctx context.Context, dimension int, metric string) error {
	req := createIndexRequest{
		Name:      x.IndexName,
		Dimension: dimension,
		Metric:    metric,
		Spec:      indexSpec{Serverless: serverlessSpec{Cloud: x.Cloud, Region: x.Region}},
	}
	err := x.do(ctx, http.MethodPost, x.BaseURL+"/indexes", req, nil)
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("pinecone: create index %q: %w", x.IndexName, schema.ErrInvalidResponse)
	}
	return err
}

func (x *Index) upsertVectors(ctx context.Context, host string, records []vectorRecord) (int, error) {
	var out upsertResponse
	if err := x.do(ctx, http.MethodPost, host+"/vectors/upsert", upsertRequest{Vectors: records}, &out); err != nil {
		return 0, err
	}
	return out.UpsertedCount, nil
}

func (x *Index) queryVectors(ctx context.Context, host string, req queryRequest) (*queryResponse, error) {
	var out queryResponse
	if err := x.do(ctx, http.MethodPost, host+"/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
