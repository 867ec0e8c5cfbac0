package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/answer"
	"github.com/spacebio/backend/internal/roles"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
)

// Answerer is the question-answering pipeline as handlers consume it. The
// question is already reframed for the role; the role id rides along for
// the history record.
type Answerer interface {
	Answer(ctx context.Context, question, role string) *answer.Result
}

// HistoryReader lists past answered questions.
type HistoryReader interface {
	GetQueryHistory(limit int) ([]models.QueryRecord, error)
}

type AskHandler struct {
	answerer Answerer
	history  HistoryReader
}

func NewAskHandler(answerer Answerer, history HistoryReader) *AskHandler {
	return &AskHandler{
		answerer: answerer,
		history:  history,
	}
}

// HandleAsk answers a question, optionally reframed for a role. An empty
// question is rejected before anything downstream runs.
func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
		Role     string `json:"role"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	question := roles.Apply(req.Role, req.Question)

	result := h.answerer.Answer(c.Context(), question, req.Role)

	return c.JSON(result)
}

func (h *AskHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.history.GetQueryHistory(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
