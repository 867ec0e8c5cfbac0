package retriever

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/internal/vector/milvus"
	"github.com/spacebio/backend/pkg/logger"
	"github.com/spacebio/backend/pkg/utils"
)

// Embedder produces task-typed query vectors.
type Embedder interface {
	Embed(ctx context.Context, text string, task gemini.TaskType) ([]float32, error)
}

// Index is the consumed contract of the vector search service.
type Index interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]milvus.SearchResult, error)
}

// PublicationStore hydrates source metadata for matched chunks.
type PublicationStore interface {
	GetPublication(id string) (*models.Publication, error)
}

// EmbeddingCache is optional; a nil cache disables it.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Hit is one deduplicated retrieval result: the matched chunk text plus the
// source publication it came from.
type Hit struct {
	PublicationID string
	Title         string
	URL           string
	ChunkText     string
	Score         float32
}

// Source is the UI-facing citation shape.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Retriever struct {
	embedder Embedder
	index    Index
	store    PublicationStore
	cache    EmbeddingCache
}

func New(embedder Embedder, index Index, store PublicationStore, cache EmbeddingCache) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		cache:    cache,
	}
}

// Retrieve embeds the question as a query vector, searches the index, and
// returns up to limit hits deduplicated by publication in rank order. Each
// publication appears once, at the rank of its first occurrence. A lookup
// miss against the store falls back to the metadata snapshot carried by the
// chunk, which is always enough to render a source.
func (r *Retriever) Retrieve(ctx context.Context, question string, limit int) ([]Hit, error) {
	embedding, err := r.queryEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := r.index.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(results))
	seen := make(map[string]bool)

	for _, result := range results {
		if result.PublicationID == "" || seen[result.PublicationID] {
			continue
		}
		seen[result.PublicationID] = true

		hit := Hit{
			PublicationID: result.PublicationID,
			Title:         result.Title,
			URL:           result.URL,
			ChunkText:     result.Text,
			Score:         result.Score,
		}

		if pub, err := r.store.GetPublication(result.PublicationID); err != nil {
			logger.Warn("Publication lookup failed, using chunk metadata",
				zap.String("pub_id", result.PublicationID),
				zap.Error(err),
			)
		} else if pub != nil {
			hit.Title = pub.Title
			hit.URL = pub.URL
		}

		hits = append(hits, hit)
		if len(hits) >= limit {
			break
		}
	}

	logger.Info("Retrieval completed",
		zap.Int("raw_results", len(results)),
		zap.Int("unique_publications", len(hits)),
	)

	return hits, nil
}

func (r *Retriever) queryEmbedding(ctx context.Context, question string) ([]float32, error) {
	if r.cache == nil {
		return r.embedder.Embed(ctx, question, gemini.TaskQuery)
	}

	hash := utils.HashString(question)

	if embedding, ok, err := r.cache.GetEmbedding(ctx, hash); err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
	} else if ok {
		return embedding, nil
	}

	embedding, err := r.embedder.Embed(ctx, question, gemini.TaskQuery)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetEmbedding(ctx, hash, embedding, time.Hour); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}

	return embedding, nil
}

// Sources converts hits into citation objects, truncating snippets to at
// most snippetLen bytes on a rune boundary and capping the output at max
// entries.
func Sources(hits []Hit, snippetLen, max int) []Source {
	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		if len(sources) >= max {
			break
		}

		snippet := hit.ChunkText
		if len(snippet) > snippetLen {
			cut := snippetLen
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			if cut == 0 {
				cut = snippetLen
			}
			snippet = snippet[:cut]
		}

		sources = append(sources, Source{
			Title:   hit.Title,
			URL:     hit.URL,
			Snippet: snippet,
		})
	}
	return sources
}
