package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itemforge/itemforge/internal/model"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) (*VectorIndex, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	index, err := NewVectorIndex(VectorIndexConfig{
		APIKey:    "test-key",
		Host:      server.URL,
		Namespace: "items",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return index, server
}

func TestVectorIndexSearch(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotBody queryRequest

	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Api-Key")
		gotVersion = r.Header.Get("X-Pinecone-Api-Version")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(queryResponse{Matches: []queryMatch{
			{ID: "item-1", Score: 0.97},
			{ID: "", Score: 0.5}, // blank ids are dropped
			{ID: "item-2", Score: 0.91},
		}})
	})

	filter := map[string]any{"subject": map[string]any{"$eq": "biology"}}
	matches, err := index.Search(context.Background(), []float32{0.1, 0.2}, 50, filter)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/query" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Api-Key = %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("missing API version header")
	}
	if gotBody.TopK != 50 || gotBody.Namespace != "items" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Filter == nil {
		t.Error("filter not forwarded")
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 (blank id dropped)", len(matches))
	}
	if matches[0].ID != "item-1" || matches[0].Score != 0.97 {
		t.Errorf("first match = %+v", matches[0])
	}
}

func TestVectorIndexSearchDefaultsTopK(t *testing.T) {
	var gotBody queryRequest
	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(queryResponse{})
	})

	if _, err := index.Search(context.Background(), []float32{0.1}, 0, nil); err != nil {
		t.Fatal(err)
	}
	if gotBody.TopK != 10 {
		t.Errorf("default topK = %d, want 10", gotBody.TopK)
	}
}

func TestVectorIndexSearchEmptyVector(t *testing.T) {
	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := index.Search(context.Background(), nil, 10, nil); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestVectorIndexHTTPError(t *testing.T) {
	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "quota exceeded"}`, http.StatusTooManyRequests)
	})

	_, err := index.Search(context.Background(), []float32{0.1}, 10, nil)
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestVectorIndexUpsert(t *testing.T) {
	var gotPath string
	var gotBody upsertRequest

	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(upsertResponse{UpsertedCount: 2})
	})

	vectors := []Vector{
		{ID: "a", Values: []float32{1}, Metadata: map[string]any{"subject": "biology"}},
		{ID: "b", Values: []float32{2}},
	}
	if err := index.Upsert(context.Background(), vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if gotPath != "/vectors/upsert" {
		t.Errorf("path = %q", gotPath)
	}
	if len(gotBody.Vectors) != 2 || gotBody.Namespace != "items" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestVectorIndexUpsertEmptyIsNoop(t *testing.T) {
	index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty upsert")
	})

	if err := index.Upsert(context.Background(), nil); err != nil {
		t.Errorf("empty upsert: %v", err)
	}
}

func TestNewVectorIndexValidation(t *testing.T) {
	if _, err := NewVectorIndex(VectorIndexConfig{Host: "h"}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing key: %v", err)
	}
	if _, err := NewVectorIndex(VectorIndexConfig{APIKey: "k"}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing host: %v", err)
	}

	index, err := NewVectorIndex(VectorIndexConfig{APIKey: "k", Host: "idx.example.net"})
	if err != nil {
		t.Fatal(err)
	}
	if index.host != "https://idx.example.net" {
		t.Errorf("bare host not normalized: %q", index.host)
	}
}
