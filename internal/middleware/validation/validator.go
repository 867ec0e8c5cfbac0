// Package validation screens question-bearing requests before handlers
// parse them.
package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var scriptPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQuestionLength int
	Logger            *zap.Logger
}

// questionPaths lists the endpoints whose bodies carry free-form question
// text worth screening.
var questionPaths = []string{
	"/api/v1/ask",
	"/api/v1/chat",
	"/api/v1/graph",
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQuestionLength == 0 {
		cfg.MaxQuestionLength = 5000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || !matchesQuestionPath(c.Path()) {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		for _, field := range []string{"question", "query"} {
			text, ok := req[field].(string)
			if !ok {
				continue
			}

			if len(text) > cfg.MaxQuestionLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Question exceeds maximum length",
				})
			}

			if scriptPattern.MatchString(text) {
				cfg.Logger.Warn("Rejected question with markup",
					zap.String("ip", c.IP()),
					zap.String("path", c.Path()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid question content",
				})
			}
		}

		return c.Next()
	}
}

func matchesQuestionPath(path string) bool {
	for _, p := range questionPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
