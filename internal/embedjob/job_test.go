package embedjob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/internal/vector/milvus"
)

type fakeStore struct {
	pubs []models.Publication
	runs []*models.EmbedRun
}

func (f *fakeStore) GetAllPublications() ([]models.Publication, error) { return f.pubs, nil }
func (f *fakeStore) InsertEmbedRun(run *models.EmbedRun) error {
	f.runs = append(f.runs, run)
	return nil
}

type fakeEmbedder struct {
	texts   []string
	tasks   []gemini.TaskType
	failFor string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, task gemini.TaskType) ([]float32, error) {
	f.texts = append(f.texts, text)
	f.tasks = append(f.tasks, task)
	if f.failFor != "" && strings.Contains(text, f.failFor) {
		return nil, errors.New("embedding rejected")
	}
	return make([]float32, 768), nil
}

type fakeIndex struct {
	batches [][]milvus.Chunk
}

func (f *fakeIndex) Upsert(_ context.Context, chunks []milvus.Chunk) error {
	f.batches = append(f.batches, chunks)
	return nil
}

func pub(id, title string) models.Publication {
	return models.Publication{
		ID:       id,
		Title:    title,
		Abstract: "abstract of " + title,
		Summary:  "summary of " + title,
		URL:      "https://example.org/" + id,
	}
}

func testConfig() Config {
	return Config{ChunkSize: 7000, Delay: time.Millisecond}
}

func TestRunEmbedsAllPublications(t *testing.T) {
	store := &fakeStore{pubs: []models.Publication{pub("p1", "First"), pub("p2", "Second")}}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}

	run, err := New(store, embedder, index, testConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if run.SuccessCount != 2 || run.ErrorCount != 0 || run.Total != 2 {
		t.Errorf("unexpected run report: %+v", run)
	}
	if len(index.batches) != 2 {
		t.Fatalf("expected 2 upsert batches, got %d", len(index.batches))
	}
	for _, task := range embedder.tasks {
		if task != gemini.TaskDocument {
			t.Errorf("chunks must embed with the document task, got %q", task)
		}
	}
	if len(store.runs) != 1 {
		t.Errorf("run report must be persisted, got %d", len(store.runs))
	}
}

func TestRunCombinedTextAndChunkIDs(t *testing.T) {
	store := &fakeStore{pubs: []models.Publication{pub("p1", "First")}}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}

	if _, err := New(store, embedder, index, testConfig()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "Title: First\n\nAbstract: abstract of First\n\nSummary: summary of First"
	if embedder.texts[0] != want {
		t.Errorf("combined text = %q, want %q", embedder.texts[0], want)
	}

	chunk := index.batches[0][0]
	if chunk.ID != "p1_chunk_0" {
		t.Errorf("chunk id = %q, want p1_chunk_0", chunk.ID)
	}
	if chunk.PublicationID != "p1" || chunk.Title != "First" {
		t.Errorf("chunk metadata: %+v", chunk)
	}
}

func TestRunSplitsLongText(t *testing.T) {
	p := pub("p1", "Long")
	p.Abstract = strings.Repeat("a", 15000)
	store := &fakeStore{pubs: []models.Publication{p}}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}

	if _, err := New(store, embedder, index, testConfig()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	chunks := index.batches[0]
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 15k text, got %d", len(chunks))
	}
	for i, c := range chunks {
		want := fmt.Sprintf("p1_chunk_%d", i)
		if c.ID != want {
			t.Errorf("chunk %d id = %q, want %q", i, c.ID, want)
		}
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	store := &fakeStore{pubs: []models.Publication{pub("p1", "Bad"), pub("p2", "Good")}}
	embedder := &fakeEmbedder{failFor: "Bad"}
	index := &fakeIndex{}

	run, err := New(store, embedder, index, testConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if run.SuccessCount != 1 || run.ErrorCount != 1 || run.Total != 2 {
		t.Errorf("unexpected run report: %+v", run)
	}
	if len(index.batches) != 1 {
		t.Errorf("only the good publication should reach the index, got %d batches", len(index.batches))
	}
}
