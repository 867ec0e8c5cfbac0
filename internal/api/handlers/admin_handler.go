package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
)

// EmbedRunner executes the bulk embedding pipeline.
type EmbedRunner interface {
	Run(ctx context.Context) (*models.EmbedRun, error)
}

// AnswerInvalidator drops cached answers after the corpus changes.
type AnswerInvalidator interface {
	InvalidateAnswers(ctx context.Context) error
}

type AdminHandler struct {
	job   EmbedRunner
	cache AnswerInvalidator
}

// NewAdminHandler builds the admin surface. cache may be nil.
func NewAdminHandler(job EmbedRunner, cache AnswerInvalidator) *AdminHandler {
	return &AdminHandler{job: job, cache: cache}
}

// HandleEmbed runs the bulk embedding job to completion and returns its
// report. The job is sequential and rate-limited, so large corpora take a
// while; callers are expected to be operators, not end users.
func (h *AdminHandler) HandleEmbed(c *fiber.Ctx) error {
	run, err := h.job.Run(c.Context())
	if err != nil {
		logger.Error("Embedding run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Embedding run failed",
		})
	}

	if h.cache != nil {
		if err := h.cache.InvalidateAnswers(c.Context()); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"successCount": run.SuccessCount,
		"errorCount":   run.ErrorCount,
		"total":        run.Total,
	})
}
