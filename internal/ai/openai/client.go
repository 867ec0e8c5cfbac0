package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spacebio/backend/pkg/logger"
)

// Client is the secondary generation provider in the fallback chain. It is
// only constructed when an OpenAI key is configured.
type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) *Client {
	logger.Info("OpenAI client initialized")
	return &Client{client: openai.NewClient(apiKey)}
}

// Generate runs one chat completion against the named model. Like every
// fallback provider, it is called exactly once per model attempt.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)

	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %s", model)
	}

	logger.Debug("OpenAI completion generated",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
