package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/pkg/logger"
)

// Searcher is the retrieval pipeline as the search endpoint consumes it.
type Searcher interface {
	Retrieve(ctx context.Context, question string, limit int) ([]retriever.Hit, error)
}

type SearchHandler struct {
	pipeline   Searcher
	maxResults int
	snippetLen int
}

func NewSearchHandler(pipeline Searcher, maxResults, snippetLen int) *SearchHandler {
	if maxResults == 0 {
		maxResults = 10
	}
	if snippetLen == 0 {
		snippetLen = 300
	}
	return &SearchHandler{
		pipeline:   pipeline,
		maxResults: maxResults,
		snippetLen: snippetLen,
	}
}

// HandleSearch returns ranked sources for a query without generating an
// answer.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter q is required",
		})
	}

	limit := c.QueryInt("limit", h.maxResults)
	if limit < 1 || limit > h.maxResults {
		limit = h.maxResults
	}

	hits, err := h.pipeline.Retrieve(c.Context(), query, limit)
	if err != nil {
		logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"sources": retriever.Sources(hits, h.snippetLen, limit),
	})
}
