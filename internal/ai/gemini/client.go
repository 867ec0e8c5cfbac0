package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spacebio/backend/pkg/circuitbreaker"
	"github.com/spacebio/backend/pkg/logger"
	"github.com/spacebio/backend/pkg/retry"
)

// TaskType tags an embedding request. Document and query vectors are not
// comparable across a type mismatch, so stored chunks always use
// TaskDocument and search inputs always use TaskQuery.
type TaskType string

const (
	TaskDocument TaskType = "RETRIEVAL_DOCUMENT"
	TaskQuery    TaskType = "RETRIEVAL_QUERY"
)

var ErrMissingAPIKey = errors.New("gemini: API key is required")

type Client struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	embeddingDim   int
	timeout        time.Duration
	httpClient     *http.Client
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewClient(apiKey, baseURL, embeddingModel string, embeddingDim, timeoutSec int) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if timeoutSec == 0 {
		timeoutSec = 30
	}

	cb := circuitbreaker.NewCircuitBreaker("gemini", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Logger:       logger.GetLogger(),
	}

	logger.Info("Gemini client initialized",
		zap.String("embedding_model", embeddingModel),
		zap.Int("embedding_dim", embeddingDim),
	)

	return &Client{
		apiKey:         apiKey,
		baseURL:        baseURL,
		embeddingModel: embeddingModel,
		embeddingDim:   embeddingDim,
		timeout:        time.Duration(timeoutSec) * time.Second,
		httpClient:     &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		cb:             cb,
		retryConfig:    retryConfig,
	}, nil
}

type embedRequest struct {
	Model    string       `json:"model"`
	Content  embedContent `json:"content"`
	TaskType string       `json:"taskType"`
}

type embedContent struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *apiError `json:"error,omitempty"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Embed returns the fixed-dimension vector for text, tagged by task type.
// Transient upstream failures are retried; a malformed or wrong-dimension
// response is an error.
func (c *Client) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := embedRequest{
		Model:    "models/" + c.embeddingModel,
		Content:  embedContent{Parts: []part{{Text: text}}},
		TaskType: string(task),
	}

	url := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.embeddingModel)

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			var resp embedResponse
			if err := c.post(ctx, url, body, &resp); err != nil {
				return err
			}

			if resp.Error != nil {
				return fmt.Errorf("embedding request rejected: %s", resp.Error.Message)
			}

			if len(resp.Embedding.Values) != c.embeddingDim {
				return fmt.Errorf("unexpected embedding dimension: got %d, want %d",
					len(resp.Embedding.Values), c.embeddingDim)
			}

			embedding = resp.Embedding.Values
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	return embedding, nil
}

// Generate runs a single completion against the named model. No retries:
// the answer generator's fallback list expects exactly one call per model.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := generateRequest{
		Contents: []generateContent{{Parts: []part{{Text: prompt}}}},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	var text string

	err := c.cb.Execute(ctx, func() error {
		var resp generateResponse
		if err := c.post(ctx, url, body, &resp); err != nil {
			return err
		}

		if resp.Error != nil {
			return fmt.Errorf("generation request rejected: %s", resp.Error.Message)
		}

		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return fmt.Errorf("empty response from model %s", model)
		}

		text = resp.Candidates[0].Content.Parts[0].Text
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to generate with %s: %w", model, err)
	}

	logger.Debug("Gemini completion generated",
		zap.String("model", model),
		zap.Int("response_length", len(text)),
	)

	return text, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var wrapper struct {
			Error apiError `json:"error"`
		}

		upstreamErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(data, &wrapper) == nil && wrapper.Error.Message != "" {
			upstreamErr = fmt.Errorf("upstream error (status %d): %s", resp.StatusCode, wrapper.Error.Message)
		}

		// Client errors other than rate limiting will not heal on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(upstreamErr)
		}
		return upstreamErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}

	return nil
}
