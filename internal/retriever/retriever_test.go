package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/internal/vector/milvus"
)

type fakeEmbedder struct {
	task  gemini.TaskType
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, task gemini.TaskType) ([]float32, error) {
	f.calls++
	f.task = task
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, 768), nil
}

type fakeIndex struct {
	results []milvus.SearchResult
	err     error
}

func (f *fakeIndex) Search(context.Context, []float32, int) ([]milvus.SearchResult, error) {
	return f.results, f.err
}

type fakeStore struct {
	pubs map[string]*models.Publication
}

func (f *fakeStore) GetPublication(id string) (*models.Publication, error) {
	if f.pubs == nil {
		return nil, nil
	}
	return f.pubs[id], nil
}

func result(chunkID, pubID, title, text string, score float32) milvus.SearchResult {
	return milvus.SearchResult{
		ChunkID:       chunkID,
		PublicationID: pubID,
		Title:         title,
		Text:          text,
		Score:         score,
	}
}

func TestRetrieveUsesQueryTask(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := New(embedder, &fakeIndex{}, &fakeStore{}, nil)

	if _, err := r.Retrieve(context.Background(), "bone loss", 5); err != nil {
		t.Fatal(err)
	}
	if embedder.task != gemini.TaskQuery {
		t.Errorf("embedded with task %q, want %q", embedder.task, gemini.TaskQuery)
	}
}

func TestRetrieveDedupsByPublication(t *testing.T) {
	index := &fakeIndex{results: []milvus.SearchResult{
		result("p1_chunk_0", "p1", "First", "chunk one", 0.9),
		result("p1_chunk_1", "p1", "First", "chunk two", 0.8),
		result("p2_chunk_0", "p2", "Second", "chunk three", 0.7),
	}}
	r := New(&fakeEmbedder{}, index, &fakeStore{}, nil)

	hits, err := r.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 unique publications, got %d", len(hits))
	}
	// first occurrence keeps its rank and chunk
	if hits[0].PublicationID != "p1" || hits[0].ChunkText != "chunk one" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].PublicationID != "p2" {
		t.Errorf("unexpected second hit: %+v", hits[1])
	}
}

func TestRetrieveCapsAtLimit(t *testing.T) {
	results := make([]milvus.SearchResult, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		results = append(results, result(id+"_chunk_0", id, "T "+id, "text", 0.5))
	}
	r := New(&fakeEmbedder{}, &fakeIndex{results: results}, &fakeStore{}, nil)

	hits, err := r.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("expected 3 hits, got %d", len(hits))
	}
}

func TestRetrieveSkipsEmptyPublicationID(t *testing.T) {
	index := &fakeIndex{results: []milvus.SearchResult{
		result("x_chunk_0", "", "Orphan", "text", 0.9),
		result("p1_chunk_0", "p1", "First", "text", 0.8),
	}}
	r := New(&fakeEmbedder{}, index, &fakeStore{}, nil)

	hits, err := r.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].PublicationID != "p1" {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestRetrieveHydratesFromStore(t *testing.T) {
	store := &fakeStore{pubs: map[string]*models.Publication{
		"p1": {ID: "p1", Title: "Canonical Title", URL: "https://example.org/p1"},
	}}
	index := &fakeIndex{results: []milvus.SearchResult{
		result("p1_chunk_0", "p1", "Stale Snapshot", "text", 0.9),
		result("p2_chunk_0", "p2", "Snapshot Only", "text", 0.8),
	}}
	r := New(&fakeEmbedder{}, index, store, nil)

	hits, err := r.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}

	if hits[0].Title != "Canonical Title" {
		t.Errorf("expected store hydration, got title %q", hits[0].Title)
	}
	// store miss keeps the chunk metadata snapshot
	if hits[1].Title != "Snapshot Only" {
		t.Errorf("expected snapshot fallback, got title %q", hits[1].Title)
	}
}

func TestRetrieveEmbedError(t *testing.T) {
	r := New(&fakeEmbedder{err: errors.New("quota")}, &fakeIndex{}, &fakeStore{}, nil)

	if _, err := r.Retrieve(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestSourcesTruncatesAndCaps(t *testing.T) {
	hits := []Hit{
		{Title: "A", URL: "u1", ChunkText: strings.Repeat("x", 500)},
		{Title: "B", URL: "u2", ChunkText: "short"},
		{Title: "C", URL: "u3", ChunkText: "dropped"},
	}

	sources := Sources(hits, 200, 2)

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if len(sources[0].Snippet) != 200 {
		t.Errorf("snippet length = %d, want 200", len(sources[0].Snippet))
	}
	if sources[1].Snippet != "short" {
		t.Errorf("short snippet should pass through, got %q", sources[1].Snippet)
	}
}

func TestSourcesSnippetRuneBoundary(t *testing.T) {
	// 21 bytes: cutting at byte 20 would split the final µ.
	hits := []Hit{{Title: "A", URL: "u1", ChunkText: strings.Repeat("bone µ", 3) + "µµ"}}

	sources := Sources(hits, 20, 5)

	snippet := sources[0].Snippet
	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet is not valid UTF-8: %q", snippet)
	}
	if len(snippet) > 20 {
		t.Errorf("snippet length = %d, want at most 20", len(snippet))
	}
	if !strings.HasPrefix(hits[0].ChunkText, snippet) {
		t.Errorf("snippet %q is not a prefix of the chunk", snippet)
	}
}
