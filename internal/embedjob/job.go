// Package embedjob runs the bulk pipeline that turns stored publications
// into searchable vectors.
package embedjob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/chunker"
	"github.com/spacebio/backend/internal/metrics"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/internal/vector/milvus"
	"github.com/spacebio/backend/pkg/logger"
)

type Embedder interface {
	Embed(ctx context.Context, text string, task gemini.TaskType) ([]float32, error)
}

type Index interface {
	Upsert(ctx context.Context, chunks []milvus.Chunk) error
}

type PublicationStore interface {
	GetAllPublications() ([]models.Publication, error)
	InsertEmbedRun(run *models.EmbedRun) error
}

type Config struct {
	ChunkSize int
	Delay     time.Duration
}

// Job embeds every stored publication. Per-publication failures are
// counted and logged but never abort the run.
type Job struct {
	store    PublicationStore
	embedder Embedder
	index    Index
	cfg      Config
}

func New(store PublicationStore, embedder Embedder, index Index, cfg Config) *Job {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 7000
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	return &Job{store: store, embedder: embedder, index: index, cfg: cfg}
}

// Run processes publications sequentially, pausing between them to stay
// under the embedding API rate limit. The run record is persisted before
// returning; a store failure there is logged, not surfaced.
func (j *Job) Run(ctx context.Context) (*models.EmbedRun, error) {
	pubs, err := j.store.GetAllPublications()
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	run := &models.EmbedRun{
		ID:        uuid.New().String(),
		Total:     len(pubs),
		StartedAt: time.Now(),
	}

	logger.Info("Embedding run started", zap.Int("publications", len(pubs)))

	for i, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := j.embedPublication(ctx, &pub); err != nil {
			run.ErrorCount++
			metrics.EmbeddingsTotal.WithLabelValues("error").Inc()
			logger.Error("Failed to embed publication",
				zap.String("publicationID", pub.ID),
				zap.String("title", pub.Title),
				zap.Error(err),
			)
		} else {
			run.SuccessCount++
			metrics.EmbeddingsTotal.WithLabelValues("ok").Inc()
		}

		if i < len(pubs)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(j.cfg.Delay):
			}
		}
	}

	run.FinishedAt = time.Now()

	if err := j.store.InsertEmbedRun(run); err != nil {
		logger.Error("Failed to persist embed run", zap.Error(err))
	}

	logger.Info("Embedding run finished",
		zap.Int("success", run.SuccessCount),
		zap.Int("errors", run.ErrorCount),
		zap.Int("total", run.Total),
	)

	return run, nil
}

func (j *Job) embedPublication(ctx context.Context, pub *models.Publication) error {
	text := fmt.Sprintf("Title: %s\n\nAbstract: %s\n\nSummary: %s",
		pub.Title, pub.Abstract, pub.Summary)

	pieces := chunker.Split(text, j.cfg.ChunkSize)

	chunks := make([]milvus.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := j.embedder.Embed(ctx, piece, gemini.TaskDocument)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		chunks = append(chunks, milvus.Chunk{
			// Deterministic ids make reruns replace rather than duplicate.
			ID:            fmt.Sprintf("%s_chunk_%d", pub.ID, i),
			Embedding:     embedding,
			Text:          piece,
			PublicationID: pub.ID,
			Title:         pub.Title,
			URL:           pub.URL,
		})
	}

	if err := j.index.Upsert(ctx, chunks); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	return nil
}
