package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spacebio/backend/internal/generation"
	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/internal/storage/models"
)

type fakePipeline struct {
	hits  []retriever.Hit
	err   error
	calls int
}

func (f *fakePipeline) Retrieve(context.Context, string, int) ([]retriever.Hit, error) {
	f.calls++
	return f.hits, f.err
}

type fakeProvider struct {
	calls   []string
	errs    map[string]error
	answers map[string]string
	prompts []string
}

func (f *fakeProvider) Generate(_ context.Context, model, prompt string) (string, error) {
	f.calls = append(f.calls, model)
	f.prompts = append(f.prompts, prompt)
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.answers[model], nil
}

type fakeHistory struct {
	records []*models.QueryRecord
}

func (f *fakeHistory) InsertQueryRecord(r *models.QueryRecord) error {
	f.records = append(f.records, r)
	return nil
}

func someHits() []retriever.Hit {
	return []retriever.Hit{
		{PublicationID: "p1", Title: "Bone Loss in Mice", URL: "u1", ChunkText: "microgravity induces bone loss"},
		{PublicationID: "p2", Title: "Muscle Atrophy Study", URL: "u2", ChunkText: "muscle atrophy follows disuse"},
	}
}

type fakeAnswerCache struct {
	entries map[string]*Result
	gets    int
	sets    int
}

func (f *fakeAnswerCache) GetAnswer(_ context.Context, hash string, out interface{}) (bool, error) {
	f.gets++
	cached, ok := f.entries[hash]
	if !ok {
		return false, nil
	}
	*out.(*Result) = *cached
	return true, nil
}

func (f *fakeAnswerCache) SetAnswer(_ context.Context, hash string, answer interface{}, _ time.Duration) error {
	f.sets++
	if f.entries == nil {
		f.entries = map[string]*Result{}
	}
	f.entries[hash] = answer.(*Result)
	return nil
}

func newTestGenerator(pipeline *fakePipeline, provider *fakeProvider, models []string, history HistoryStore) *Generator {
	return NewGenerator(
		pipeline,
		map[string]generation.Provider{"gemini": provider},
		generation.ParseModelRefs(models),
		history,
		nil,
		Config{},
	)
}

func TestAnswerNoResultsShortCircuits(t *testing.T) {
	pipeline := &fakePipeline{}
	provider := &fakeProvider{}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a"}, nil)

	result := g.Answer(context.Background(), "anything", "")

	if result.Answer != "No relevant publications found. Please ensure embeddings have been created." {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if len(provider.calls) != 0 {
		t.Errorf("expected zero generation calls, got %d", len(provider.calls))
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Errorf("expected empty non-nil sources, got %v", result.Sources)
	}
	if result.Error != "" {
		t.Errorf("no-results is not an error state, got %q", result.Error)
	}
}

func TestAnswerRetrievalError(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("index unreachable")}
	provider := &fakeProvider{}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a"}, nil)

	result := g.Answer(context.Background(), "anything", "")

	if result.Error == "" {
		t.Fatal("expected error to be surfaced in the result")
	}
	if !strings.Contains(result.Answer, "index unreachable") {
		t.Errorf("answer should embed the error, got %q", result.Answer)
	}
	if len(provider.calls) != 0 {
		t.Errorf("expected zero generation calls, got %d", len(provider.calls))
	}
}

func TestAnswerFallbackOrder(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{
		errs: map[string]error{
			"model-a": errors.New("overloaded"),
			"model-b": errors.New("overloaded"),
		},
		answers: map[string]string{"model-c": "final answer"},
	}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a", "gemini/model-b", "gemini/model-c"}, nil)

	result := g.Answer(context.Background(), "bone loss?", "scientist")

	if result.Answer != "final answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.ModelUsed != "model-c" {
		t.Errorf("modelUsed = %q, want model-c", result.ModelUsed)
	}
	if len(provider.calls) != 3 {
		t.Errorf("expected 3 calls, got %d (%v)", len(provider.calls), provider.calls)
	}
}

func TestAnswerTotalFailureShape(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{
		errs: map[string]error{
			"model-a": errors.New("first down"),
			"model-b": errors.New("quota exhausted"),
		},
	}
	history := &fakeHistory{}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a", "gemini/model-b"}, history)

	result := g.Answer(context.Background(), "bone loss?", "scientist")

	if result.ModelUsed != "" {
		t.Errorf("modelUsed should be empty on failure, got %q", result.ModelUsed)
	}
	if !strings.Contains(result.Answer, "quota exhausted") {
		t.Errorf("answer should embed the last error, got %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "Found 2 relevant publications") {
		t.Errorf("answer should mention the source count, got %q", result.Answer)
	}
	if len(result.Sources) != 2 {
		t.Errorf("sources must survive generation failure, got %d", len(result.Sources))
	}
	if len(history.records) != 1 || !history.records[0].Failed {
		t.Errorf("expected one failed history record, got %+v", history.records)
	}
}

func TestAnswerPromptAssembly(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{answers: map[string]string{"model-a": "ok"}}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a"}, nil)

	g.Answer(context.Background(), "what causes bone loss?", "")

	if len(provider.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(provider.prompts))
	}
	prompt := provider.prompts[0]

	if !strings.Contains(prompt, "[Source 1: Bone Loss in Mice]") {
		t.Errorf("prompt missing first source block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Source 2: Muscle Atrophy Study]") {
		t.Errorf("prompt missing second source block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "what causes bone loss?") {
		t.Errorf("prompt missing the question:\n%s", prompt)
	}
}

func TestAnswerContextBudget(t *testing.T) {
	big := strings.Repeat("w ", 4000) // 8000 chars per chunk
	pipeline := &fakePipeline{hits: []retriever.Hit{
		{PublicationID: "p1", Title: "A", ChunkText: big},
		{PublicationID: "p2", Title: "B", ChunkText: big},
	}}
	provider := &fakeProvider{answers: map[string]string{"model-a": "ok"}}
	g := NewGenerator(
		pipeline,
		map[string]generation.Provider{"gemini": provider},
		generation.ParseModelRefs([]string{"gemini/model-a"}),
		nil,
		nil,
		Config{ContextBudget: 10000},
	)

	g.Answer(context.Background(), "q", "")

	prompt := provider.prompts[0]
	// context blocks alone would exceed 16000 chars without truncation
	if len(prompt) > 10000+1000 {
		t.Errorf("prompt length %d exceeds budget plus scaffolding", len(prompt))
	}
}

func TestAnswerRecordsHistory(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{answers: map[string]string{"model-a": "an answer"}}
	history := &fakeHistory{}
	g := newTestGenerator(pipeline, provider, []string{"gemini/model-a"}, history)

	g.Answer(context.Background(), "bone loss?", "scientist")

	if len(history.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history.records))
	}
	rec := history.records[0]
	if rec.Question != "bone loss?" || rec.ModelUsed != "model-a" || rec.SourceCount != 2 || rec.Failed {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Role != "scientist" {
		t.Errorf("record role = %q, want scientist", rec.Role)
	}
}

func TestAnswerCachePopulatedOnSuccess(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{answers: map[string]string{"model-a": "an answer"}}
	cache := &fakeAnswerCache{}
	g := NewGenerator(
		pipeline,
		map[string]generation.Provider{"gemini": provider},
		generation.ParseModelRefs([]string{"gemini/model-a"}),
		nil,
		cache,
		Config{},
	)

	first := g.Answer(context.Background(), "bone loss?", "")
	if cache.sets != 1 {
		t.Fatalf("expected 1 cache write, got %d", cache.sets)
	}

	second := g.Answer(context.Background(), "bone loss?", "")
	if pipeline.calls != 1 {
		t.Errorf("cache hit must skip retrieval, got %d retrievals", pipeline.calls)
	}
	if len(provider.calls) != 1 {
		t.Errorf("cache hit must skip generation, got %d calls", len(provider.calls))
	}
	if second.Answer != first.Answer || second.ModelUsed != first.ModelUsed {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestAnswerFailuresNotCached(t *testing.T) {
	pipeline := &fakePipeline{hits: someHits()}
	provider := &fakeProvider{errs: map[string]error{"model-a": errors.New("overloaded")}}
	cache := &fakeAnswerCache{}
	g := NewGenerator(
		pipeline,
		map[string]generation.Provider{"gemini": provider},
		generation.ParseModelRefs([]string{"gemini/model-a"}),
		nil,
		cache,
		Config{},
	)

	g.Answer(context.Background(), "bone loss?", "")

	if cache.sets != 0 {
		t.Errorf("failed generations must not be cached, got %d writes", cache.sets)
	}

	g.Answer(context.Background(), "bone loss?", "")
	if pipeline.calls != 2 {
		t.Errorf("second ask should retrieve again, got %d retrievals", pipeline.calls)
	}
}
