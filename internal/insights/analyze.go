package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/generation"
	"github.com/spacebio/backend/pkg/logger"
)

// AnalysisResult carries a single-publication analysis. On total generation
// failure the result degrades to locally extracted candidate topics instead
// of failing the request.
type AnalysisResult struct {
	Analysis  string   `json:"analysis"`
	ModelUsed string   `json:"modelUsed,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Analyzer extracts topics, organisms and key findings from one
// publication via the generation fallback chain.
type Analyzer struct {
	providers map[string]generation.Provider
	models    []generation.ModelRef
}

func NewAnalyzer(providers map[string]generation.Provider, models []generation.ModelRef) *Analyzer {
	return &Analyzer{providers: providers, models: models}
}

// Analyze accepts an empty abstract; the prompt simply omits it.
func (a *Analyzer) Analyze(ctx context.Context, title, abstract string) *AnalysisResult {
	prompt := fmt.Sprintf(`Analyze this NASA bioscience publication and extract topics, organisms, and key findings in JSON format:

Title: %s`, title)
	if abstract != "" {
		prompt += fmt.Sprintf("\nAbstract: %s", abstract)
	}

	outcome := generation.Fallback(ctx, a.providers, a.models, prompt)

	if !outcome.Failed() {
		return &AnalysisResult{
			Analysis:  outcome.Text,
			ModelUsed: outcome.Model,
		}
	}

	lastErr := outcome.LastErr()
	msg := "unknown error"
	if lastErr != nil {
		msg = lastErr.Error()
	}

	logger.Warn("Analysis generation failed, degrading to local extraction", zap.String("error", msg))

	return &AnalysisResult{
		Analysis: "Error analyzing publication: " + msg,
		Topics:   candidateTopics(title + ". " + abstract),
		Error:    msg,
	}
}

// candidateTopics pulls noun tokens out of the text as a rough topic list
// for the degraded path.
func candidateTopics(text string) []string {
	doc, err := prose.NewDocument(text)
	if err != nil {
		logger.Warn("Tokenization failed", zap.Error(err))
		return nil
	}

	counts := make(map[string]int)
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") {
			continue
		}
		word := strings.ToLower(tok.Text)
		if len(word) < 5 || isStopword(word) {
			continue
		}
		counts[word]++
	}

	topics := make([]string, 0, len(counts))
	for word := range counts {
		topics = append(topics, word)
	}

	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})

	if len(topics) > KeywordLimitGeneral {
		topics = topics[:KeywordLimitGeneral]
	}

	return topics
}
