// Package api wires handlers onto the fiber application.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/spacebio/backend/internal/api/handlers"
	"github.com/spacebio/backend/internal/metrics"
)

// Handlers carries the constructed endpoint handlers. Nil optional fields
// (WebSocket) skip registration.
type Handlers struct {
	Ask          *handlers.AskHandler
	Chat         *handlers.ChatHandler
	Analyze      *handlers.AnalyzeHandler
	Search       *handlers.SearchHandler
	Graph        *handlers.GraphHandler
	Analytics    *handlers.AnalyticsHandler
	Publications *handlers.PublicationsHandler
	Admin        *handlers.AdminHandler
	WS           *handlers.WebSocketHandler

	// Ready reports whether dependencies are reachable.
	Ready func() error
}

// Register mounts every route. Probes and metrics live at the root; the
// API surface sits under /api/v1.
func Register(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		if h.Ready != nil {
			if err := h.Ready(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "not ready",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	v1 := app.Group("/api/v1")

	v1.Post("/ask", h.Ask.HandleAsk)
	v1.Get("/ask/history", h.Ask.GetHistory)
	v1.Post("/chat", h.Chat.HandleChat)
	v1.Post("/analyze", h.Analyze.HandleAnalyze)
	v1.Get("/search", h.Search.HandleSearch)
	v1.Post("/graph", h.Graph.HandleGraph)

	v1.Get("/stats", h.Analytics.HandleStats)
	v1.Get("/topics", h.Analytics.HandleTopics)

	v1.Post("/publications", h.Publications.HandleBulkLoad)
	v1.Get("/publications", h.Publications.HandleList)

	v1.Post("/admin/embed", h.Admin.HandleEmbed)

	if h.WS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(h.WS.HandleConnection))
	}
}
