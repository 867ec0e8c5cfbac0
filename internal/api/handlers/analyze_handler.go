package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/insights"
	"github.com/spacebio/backend/pkg/logger"
)

// Analyzer extracts structured findings from one publication.
type Analyzer interface {
	Analyze(ctx context.Context, title, abstract string) *insights.AnalysisResult
}

type AnalyzeHandler struct {
	analyzer Analyzer
}

func NewAnalyzeHandler(analyzer Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer}
}

// HandleAnalyze runs single-publication analysis. The abstract is optional;
// only the title is required.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	result := h.analyzer.Analyze(c.Context(), req.Title, req.Abstract)

	return c.JSON(result)
}
