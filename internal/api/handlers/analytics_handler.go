package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/analytics"
	"github.com/spacebio/backend/pkg/logger"
)

type AnalyticsHandler struct {
	corpus CorpusReader
}

func NewAnalyticsHandler(corpus CorpusReader) *AnalyticsHandler {
	return &AnalyticsHandler{corpus: corpus}
}

func (h *AnalyticsHandler) HandleStats(c *fiber.Ctx) error {
	pubs, err := h.corpus.GetAllPublications()
	if err != nil {
		logger.Error("Failed to load publications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load publications",
		})
	}

	return c.JSON(analytics.ComputeStats(pubs))
}

func (h *AnalyticsHandler) HandleTopics(c *fiber.Ctx) error {
	pubs, err := h.corpus.GetAllPublications()
	if err != nil {
		logger.Error("Failed to load publications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load publications",
		})
	}

	return c.JSON(fiber.Map{
		"topics": analytics.TopicDistribution(pubs),
	})
}
