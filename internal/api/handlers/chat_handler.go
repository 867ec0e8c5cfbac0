package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/generation"
	"github.com/spacebio/backend/pkg/logger"
)

const chatContextLimit = 5

// ChatPublication is a caller-supplied context document for the chat
// endpoint; the corpus is not consulted.
type ChatPublication struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
}

type ChatHandler struct {
	providers map[string]generation.Provider
	models    []generation.ModelRef
}

func NewChatHandler(providers map[string]generation.Provider, models []generation.ModelRef) *ChatHandler {
	return &ChatHandler{providers: providers, models: models}
}

// HandleChat answers a question against the publications supplied in the
// request body rather than the indexed corpus.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Query        string            `json:"query"`
		Publications []ChatPublication `json:"publications"`
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

	pubs := req.Publications
	if len(pubs) > chatContextLimit {
		pubs = pubs[:chatContextLimit]
	}

	prompt := buildChatPrompt(req.Query, pubs)

	outcome := generation.Fallback(c.Context(), h.providers, h.models, prompt)
	if outcome.Failed() {
		logger.Error("Chat generation failed", zap.Error(outcome.LastErr()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	if pubs == nil {
		pubs = []ChatPublication{}
	}

	return c.JSON(fiber.Map{
		"answer":  outcome.Text,
		"sources": pubs,
	})
}

func buildChatPrompt(query string, pubs []ChatPublication) string {
	context := "No publications provided"
	if len(pubs) > 0 {
		blocks := make([]string, 0, len(pubs))
		for _, pub := range pubs {
			summary := pub.Summary
			if summary == "" {
				summary = "N/A"
			}
			blocks = append(blocks, fmt.Sprintf("Title: %s\nSummary: %s", pub.Title, summary))
		}
		context = strings.Join(blocks, "\n\n")
	}

	return fmt.Sprintf(`You are an expert in NASA bioscience research. Based on the following research publications, answer this question: %s

Context:
%s

Provide a detailed, scientific answer based on the research findings. If the context doesn't contain enough information, mention that and provide general knowledge about the topic.`, query, context)
}
