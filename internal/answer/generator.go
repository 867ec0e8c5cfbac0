package answer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/generation"
	"github.com/spacebio/backend/internal/metrics"
	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
	"github.com/spacebio/backend/pkg/utils"
)

const noResultsAnswer = "No relevant publications found. Please ensure embeddings have been created."

// Retriever is the slice of the retrieval pipeline the generator consumes.
type Retriever interface {
	Retrieve(ctx context.Context, question string, limit int) ([]retriever.Hit, error)
}

// HistoryStore records answered questions. Optional; nil disables history.
type HistoryStore interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

// AnswerCache replays full results for repeated questions. Optional; nil
// disables it. Only successful generations are cached; the embed job
// invalidates the keyspace after the corpus changes.
type AnswerCache interface {
	GetAnswer(ctx context.Context, questionHash string, out interface{}) (bool, error)
	SetAnswer(ctx context.Context, questionHash string, answer interface{}, ttl time.Duration) error
}

// Result is always well-formed: every upstream failure is folded into the
// Answer/Error fields rather than propagated, so callers can render a
// response even on total failure.
type Result struct {
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	Sources   []retriever.Source `json:"sources"`
	ModelUsed string             `json:"modelUsed,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type Config struct {
	RetrievalLimit int
	SnippetLen     int
	ContextBudget  int
}

type Generator struct {
	pipeline  Retriever
	providers map[string]generation.Provider
	models    []generation.ModelRef
	history   HistoryStore
	cache     AnswerCache
	cfg       Config
}

func NewGenerator(r Retriever, providers map[string]generation.Provider, models []generation.ModelRef, history HistoryStore, cache AnswerCache, cfg Config) *Generator {
	if cfg.RetrievalLimit == 0 {
		cfg.RetrievalLimit = 5
	}
	if cfg.SnippetLen == 0 {
		cfg.SnippetLen = 200
	}
	if cfg.ContextBudget == 0 {
		cfg.ContextBudget = 10000
	}

	return &Generator{
		pipeline:  r,
		providers: providers,
		models:    models,
		history:   history,
		cache:     cache,
		cfg:       cfg,
	}
}

// Answer runs the full question-answering pipeline: retrieve, assemble a
// bounded context, then walk the model fallback list. It never returns an
// error; failures surface in the result shape. The role only tags the
// history row; the question arrives already reframed for it.
func (g *Generator) Answer(ctx context.Context, question, role string) *Result {
	start := time.Now()
	defer func() {
		metrics.QuestionDuration.Observe(time.Since(start).Seconds())
	}()

	var cacheKey string
	if g.cache != nil {
		cacheKey = utils.HashString(question)
		var cached Result
		if ok, err := g.cache.GetAnswer(ctx, cacheKey, &cached); err != nil {
			logger.Warn("Answer cache read failed", zap.Error(err))
		} else if ok {
			metrics.QuestionsTotal.WithLabelValues("cache_hit").Inc()
			return &cached
		}
	}

	hits, err := g.pipeline.Retrieve(ctx, question, g.cfg.RetrievalLimit)
	if err != nil {
		logger.Error("Retrieval failed", zap.Error(err))
		metrics.QuestionsTotal.WithLabelValues("retrieval_error").Inc()
		return &Result{
			Question: question,
			Answer:   fmt.Sprintf("Could not search the publication index. Error: %s", err.Error()),
			Sources:  []retriever.Source{},
			Error:    err.Error(),
		}
	}

	metrics.RetrievalResults.Observe(float64(len(hits)))

	if len(hits) == 0 {
		metrics.QuestionsTotal.WithLabelValues("no_results").Inc()
		return &Result{
			Question: question,
			Answer:   noResultsAnswer,
			Sources:  []retriever.Source{},
		}
	}

	sources := retriever.Sources(hits, g.cfg.SnippetLen, g.cfg.RetrievalLimit)
	prompt := g.buildPrompt(question, hits)

	outcome := generation.Fallback(ctx, g.providers, g.models, prompt)
	metrics.ModelAttempts.Observe(float64(len(outcome.Attempts)))

	result := &Result{
		Question: question,
		Sources:  sources,
	}

	if outcome.Failed() {
		lastErr := outcome.LastErr()
		msg := "unknown error"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		result.Answer = fmt.Sprintf("I couldn't generate an answer. Error: %s. Found %d relevant publications.", msg, len(sources))
		result.Error = msg
		metrics.QuestionsTotal.WithLabelValues("generation_error").Inc()
	} else {
		result.Answer = outcome.Text
		result.ModelUsed = outcome.Model
		metrics.QuestionsTotal.WithLabelValues("ok").Inc()
	}

	g.record(question, role, result, time.Since(start))

	if g.cache != nil && result.ModelUsed != "" {
		if err := g.cache.SetAnswer(ctx, cacheKey, result, time.Hour); err != nil {
			logger.Warn("Answer cache write failed", zap.Error(err))
		}
	}

	return result
}

// buildPrompt assembles ranked source blocks, hard-truncates them to the
// character budget, and wraps them with the question and instructions.
func (g *Generator) buildPrompt(question string, hits []retriever.Hit) string {
	blocks := make([]string, 0, len(hits))
	for i, hit := range hits {
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s", i+1, hit.Title, hit.ChunkText))
	}

	context := strings.Join(blocks, "\n\n")
	if len(context) > g.cfg.ContextBudget {
		cut := g.cfg.ContextBudget
		for cut > 0 && !utf8.RuneStart(context[cut]) {
			cut--
		}
		context = context[:cut]
	}

	return fmt.Sprintf(`Based on the following NASA bioscience research publications, answer this question: %s

Context from research papers:
%s

Instructions:
- Provide a detailed, scientific answer
- Mention specific findings and sources
- Be concise but thorough

Answer:`, question, context)
}

func (g *Generator) record(question, role string, result *Result, latency time.Duration) {
	if g.history == nil {
		return
	}

	record := &models.QueryRecord{
		ID:          uuid.New().String(),
		Question:    question,
		Role:        role,
		Answer:      result.Answer,
		ModelUsed:   result.ModelUsed,
		SourceCount: len(result.Sources),
		LatencyMS:   int(latency.Milliseconds()),
		Failed:      result.Error != "",
		CreatedAt:   time.Now(),
	}

	if err := g.history.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to record query", zap.Error(err))
	}
}
