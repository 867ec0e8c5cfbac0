package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/insights"
	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
)

// CorpusReader lists the stored corpus for graph and analytics endpoints.
type CorpusReader interface {
	GetAllPublications() ([]models.Publication, error)
}

// GraphMirror replicates a built graph into an external store.
type GraphMirror interface {
	MirrorGraph(ctx context.Context, graph *insights.Graph) error
}

type GraphHandler struct {
	pipeline Searcher
	corpus   CorpusReader
	mirror   GraphMirror
}

// NewGraphHandler builds the knowledge-graph endpoint. mirror may be nil.
func NewGraphHandler(pipeline Searcher, corpus CorpusReader, mirror GraphMirror) *GraphHandler {
	return &GraphHandler{
		pipeline: pipeline,
		corpus:   corpus,
		mirror:   mirror,
	}
}

// HandleGraph builds the query-centered exploration graph: retrieval
// sources select relevant publications, keyword and co-occurrence
// extraction over those publications supply the satellite nodes.
func (h *GraphHandler) HandleGraph(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	hits, err := h.pipeline.Retrieve(c.Context(), req.Query, insights.RelevantCap)
	if err != nil {
		// The corpus-side filter still works without retrieval sources.
		logger.Warn("Retrieval failed, building graph from corpus only", zap.Error(err))
		hits = nil
	}
	sources := retriever.Sources(hits, 300, insights.RelevantCap)

	pubs, err := h.corpus.GetAllPublications()
	if err != nil {
		logger.Error("Failed to load publications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load publications",
		})
	}

	relevant := insights.RelevantPublications(pubs, req.Query, sources)

	texts := make([]string, 0, len(relevant))
	for _, pub := range relevant {
		texts = append(texts, pub.Title+" "+pub.Abstract+" "+pub.Summary)
	}

	terms := strings.Fields(req.Query)
	keywords := insights.ExtractKeywords(texts, terms, insights.KeywordLimitQuestion)
	contextTerms := insights.CoOccurringTerms(texts, terms)

	graph := insights.BuildGraph(req.Query, relevant, keywords, contextTerms)

	if h.mirror != nil {
		go func(g insights.Graph) {
			if err := h.mirror.MirrorGraph(context.Background(), &g); err != nil {
				logger.Warn("Graph mirror failed", zap.Error(err))
			}
		}(graph)
	}

	return c.JSON(graph)
}
