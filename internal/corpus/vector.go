package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itemforge/itemforge/internal/model"
)

// VectorIndex is an HTTP client for a Pinecone-style vector index data plane.
// It implements Searcher and also supports upserts for corpus ingest.
type VectorIndex struct {
	apiKey     string
	host       string
	namespace  string
	apiVersion string
	httpClient *http.Client
}

// VectorIndexConfig configures the index client
type VectorIndexConfig struct {
	APIKey    string
	Host      string
	Namespace string
	Timeout   time.Duration
}

// NewVectorIndex creates a vector index client
func NewVectorIndex(cfg VectorIndexConfig) (*VectorIndex, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing vector index API key", model.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("%w: missing vector index host", model.ErrConfiguration)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	host := cfg.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return &VectorIndex{
		apiKey:     cfg.APIKey,
		host:       strings.TrimRight(host, "/"),
		namespace:  cfg.Namespace,
		apiVersion: "2025-10",
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Vector is one upsertable point with its searchable metadata
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata,omitempty"`
}

type queryMatch struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

// Search implements Searcher, returning ranked matches
func (x *VectorIndex) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector required", model.ErrUpstream)
	}
	if topK <= 0 {
		topK = 10
	}

	req := queryRequest{
		Namespace: x.namespace,
		Vector:    vector,
		TopK:      topK,
		Filter:    filter,
	}

	var resp queryResponse
	if err := x.doJSON(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, Match{ID: m.ID, Score: m.Score})
	}
	return out, nil
}

// Upsert writes vectors into the index
func (x *VectorIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	req := upsertRequest{
		Vectors:   vectors,
		Namespace: x.namespace,
	}

	var resp upsertResponse
	return x.doJSON(ctx, "/vectors/upsert", req, &resp)
}

func (x *VectorIndex) doJSON(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.host+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", x.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", x.apiVersion)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: vector index: %v", model.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: vector index http %d: %s", model.ErrUpstream, resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: vector index decode: %v", model.ErrUpstream, err)
	}
	return nil
}
