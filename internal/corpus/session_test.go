package corpus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/worker"
)

type countingEmbedder struct{ calls int }

func (e *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return []float32{1, 2, 3}, nil
}

type stubSearcher struct {
	matches []Match
	filter  map[string]any
	calls   int
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, topK int, filter map[string]any) ([]Match, error) {
	s.calls++
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type stubDocs struct {
	records map[string]model.InspirationRecord
}

func (s stubDocs) FetchByIDs(_ context.Context, ids []string) ([]model.InspirationRecord, error) {
	var out []model.InspirationRecord
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func usable(id string) model.InspirationRecord {
	return model.InspirationRecord{ID: id, Text: "question " + id, Options: []string{"a", "b", "c", "d"}}
}

func testReq() model.GenerationRequest {
	return model.GenerationRequest{Subject: "biology", Chapter: "cells", EasyCount: 1}
}

func TestRetrieveRankedOrderAndDrops(t *testing.T) {
	searcher := &stubSearcher{matches: []Match{
		{ID: "c", Score: 0.9},
		{ID: "missing", Score: 0.8}, // no body in the store
		{ID: "a", Score: 0.7},
		{ID: "empty", Score: 0.6}, // body present but unusable
	}}
	docs := stubDocs{records: map[string]model.InspirationRecord{
		"a":     usable("a"),
		"c":     usable("c"),
		"empty": {ID: "empty"},
	}}
	session := NewSession(&countingEmbedder{}, searcher, docs, nil, 50)

	records, err := session.Retrieve(context.Background(), testReq(),
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "c" || records[1].ID != "a" {
		t.Errorf("ranked order lost: %v", records)
	}
	if records[0].Score != 0.9 {
		t.Errorf("score not carried over: %v", records[0].Score)
	}
}

func TestRetrieveCachesByContextID(t *testing.T) {
	embedder := &countingEmbedder{}
	searcher := &stubSearcher{matches: []Match{{ID: "a", Score: 1}}}
	docs := stubDocs{records: map[string]model.InspirationRecord{"a": usable("a")}}
	session := NewSession(embedder, searcher, docs, nil, 50)

	rc := model.RetrievalContext{ID: "easy|topic|cells", Tier: model.TierEasy, Topic: "cells"}
	for i := 0; i < 3; i++ {
		if _, err := session.Retrieve(context.Background(), testReq(), rc); err != nil {
			t.Fatal(err)
		}
	}

	if embedder.calls != 1 || searcher.calls != 1 {
		t.Errorf("embed/search calls = %d/%d, want 1/1 (cache misses)", embedder.calls, searcher.calls)
	}

	// A different context misses the cache.
	other := model.RetrievalContext{ID: "easy|topic|enzymes", Tier: model.TierEasy, Topic: "enzymes"}
	if _, err := session.Retrieve(context.Background(), testReq(), other); err != nil {
		t.Fatal(err)
	}
	if searcher.calls != 2 {
		t.Errorf("distinct context should search again, calls = %d", searcher.calls)
	}
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	session := NewSession(&countingEmbedder{}, &stubSearcher{}, stubDocs{}, nil, 50)

	records, err := session.Retrieve(context.Background(), testReq(),
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy})
	if err != nil {
		t.Fatalf("empty search must not error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v", records)
	}
}

func TestRetrieveGoesThroughRateLimiter(t *testing.T) {
	searcher := &stubSearcher{matches: []Match{{ID: "a", Score: 1}}}
	docs := stubDocs{records: map[string]model.InspirationRecord{"a": usable("a")}}
	session := NewSession(&countingEmbedder{}, searcher, docs, worker.NewLimiter(1, 1), 50)

	rc := model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy}
	if _, err := session.Retrieve(context.Background(), testReq(), rc); err != nil {
		t.Fatalf("first retrieval should fit the burst: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	other := model.RetrievalContext{ID: "easy|topic|enzymes", Tier: model.TierEasy, Topic: "enzymes"}
	if _, err := session.Retrieve(cancelled, testReq(), other); err == nil {
		t.Fatal("limiter wait must surface context cancellation")
	}
	if searcher.calls != 1 {
		t.Errorf("search calls = %d, want 1 (second retrieval blocked before search)", searcher.calls)
	}
}

func TestRetrieveSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("index unreachable")}
	session := NewSession(&countingEmbedder{}, searcher, stubDocs{}, nil, 50)

	_, err := session.Retrieve(context.Background(), testReq(),
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFilterShape(t *testing.T) {
	req := testReq()
	rc := model.RetrievalContext{
		Tier:   model.TierMedium,
		Topic:  "mitosis",
		Topic2: "meiosis",
		Tag:    "division",
	}

	filter := Filter(req, rc)

	subject := filter["subject"].(map[string]any)
	if subject["$eq"] != "biology" {
		t.Errorf("subject filter = %v", subject)
	}
	chapter := filter["chapter"].(map[string]any)
	if chapter["$eq"] != "cells" {
		t.Errorf("chapter filter = %v", chapter)
	}
	difficulty := filter["difficulty"].(map[string]any)
	if difficulty["$eq"] != "medium" {
		t.Errorf("difficulty filter = %v", difficulty)
	}
	topics := filter["topics"].(map[string]any)["$in"].([]string)
	if len(topics) != 2 || topics[0] != "mitosis" || topics[1] != "meiosis" {
		t.Errorf("topics filter = %v", topics)
	}
	tags := filter["tags"].(map[string]any)["$in"].([]string)
	if len(tags) != 1 || tags[0] != "division" {
		t.Errorf("tags filter = %v", tags)
	}
}

func TestFilterOmitsEmptyFields(t *testing.T) {
	req := model.GenerationRequest{Subject: "biology", EasyCount: 1}
	filter := Filter(req, model.RetrievalContext{Tier: model.TierEasy})

	for _, key := range []string{"chapter", "topics", "tags"} {
		if _, ok := filter[key]; ok {
			t.Errorf("filter should omit empty %s", key)
		}
	}
}

func TestQueryTextAlwaysHasSubject(t *testing.T) {
	req := model.GenerationRequest{Subject: "biology", EasyCount: 1}

	text := QueryText(req, model.RetrievalContext{Tier: model.TierEasy})
	if !strings.Contains(text, "biology") {
		t.Errorf("query text missing subject: %q", text)
	}

	rc := model.RetrievalContext{Tier: model.TierHard, Topic: "genetics", Keyword: "inheritance patterns"}
	text = QueryText(req, rc)
	for _, want := range []string{"biology", "hard", "genetics", "inheritance patterns"} {
		if !strings.Contains(text, want) {
			t.Errorf("query text missing %q: %q", want, text)
		}
	}
}
