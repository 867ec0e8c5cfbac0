package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/roles"
	"github.com/spacebio/backend/pkg/logger"
)

type WebSocketHandler struct {
	answerer Answerer
}

func NewWebSocketHandler(answerer Answerer) *WebSocketHandler {
	return &WebSocketHandler{answerer: answerer}
}

// HandleConnection serves a streaming ask session: the answer is computed
// in full, then streamed word by word, followed by a completion frame
// carrying sources and the model used.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type     string `json:"type"`
			Question string `json:"question"`
			Role     string `json:"role"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		if msg.Type != "ask" {
			continue
		}

		if msg.Question == "" {
			h.sendError(c, "Question is required")
			continue
		}

		if err := h.streamAnswer(c, msg.Question, msg.Role); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to answer question")
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, question, role string) error {
	if err := h.send(c, "status", "Searching publications..."); err != nil {
		return err
	}

	result := h.answerer.Answer(context.Background(), roles.Apply(role, question), role)

	words := strings.Fields(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.send(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":      "complete",
		"sources":   result.Sources,
		"modelUsed": result.ModelUsed,
		"error":     result.Error,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
