package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/ingestion"
	"github.com/spacebio/backend/pkg/logger"
)

// BulkLoader admits publication batches.
type BulkLoader interface {
	Load(records []ingestion.Incoming) *ingestion.LoadResult
}

type PublicationsHandler struct {
	loader BulkLoader
	corpus CorpusReader
}

func NewPublicationsHandler(loader BulkLoader, corpus CorpusReader) *PublicationsHandler {
	return &PublicationsHandler{
		loader: loader,
		corpus: corpus,
	}
}

// HandleBulkLoad accepts a JSON array of publication records. Invalid
// records are reported, not fatal.
func (h *PublicationsHandler) HandleBulkLoad(c *fiber.Ctx) error {
	var records []ingestion.Incoming

	if err := c.BodyParser(&records); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: expected an array of publications",
		})
	}

	if len(records) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one publication is required",
		})
	}

	return c.JSON(h.loader.Load(records))
}

func (h *PublicationsHandler) HandleList(c *fiber.Ctx) error {
	pubs, err := h.corpus.GetAllPublications()
	if err != nil {
		logger.Error("Failed to load publications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load publications",
		})
	}

	return c.JSON(fiber.Map{
		"publications": pubs,
		"count":        len(pubs),
	})
}
