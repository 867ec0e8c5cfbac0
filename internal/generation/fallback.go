package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spacebio/backend/pkg/logger"
)

// Provider generates text for a single model attempt. Implementations must
// not retry internally: the fallback contract is one call per model.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ModelRef names one provider+model pair in the fallback list. List order
// encodes preference, so the list is always walked front to back.
type ModelRef struct {
	Provider string
	Model    string
}

func (r ModelRef) String() string {
	return r.Provider + "/" + r.Model
}

// ParseModelRef reads "provider/model". A bare model name defaults to the
// gemini provider.
func ParseModelRef(s string) ModelRef {
	if provider, model, ok := strings.Cut(s, "/"); ok {
		return ModelRef{Provider: provider, Model: model}
	}
	return ModelRef{Provider: "gemini", Model: s}
}

func ParseModelRefs(specs []string) []ModelRef {
	refs := make([]ModelRef, 0, len(specs))
	for _, s := range specs {
		refs = append(refs, ParseModelRef(s))
	}
	return refs
}

// Attempt records one model try and its outcome.
type Attempt struct {
	Ref ModelRef
	Err error
}

// Result is the outcome of a fallback walk: either the first successful
// completion together with the model that produced it, or the full attempt
// trail when every model failed.
type Result struct {
	Text     string
	Model    string
	Attempts []Attempt
}

func (r Result) Failed() bool {
	return r.Model == ""
}

// LastErr returns the final attempt's error, or nil on success.
func (r Result) LastErr() error {
	if !r.Failed() || len(r.Attempts) == 0 {
		return nil
	}
	return r.Attempts[len(r.Attempts)-1].Err
}

// Fallback tries each model in order, exactly once, stopping at the first
// success. Unknown providers count as a failed attempt rather than aborting
// the walk.
func Fallback(ctx context.Context, providers map[string]Provider, refs []ModelRef, prompt string) Result {
	result := Result{}

	for _, ref := range refs {
		provider, ok := providers[ref.Provider]
		if !ok {
			err := fmt.Errorf("unknown provider %q", ref.Provider)
			result.Attempts = append(result.Attempts, Attempt{Ref: ref, Err: err})
			logger.Warn("Skipping model with unknown provider", zap.String("model", ref.String()))
			continue
		}

		text, err := provider.Generate(ctx, ref.Model, prompt)
		if err != nil {
			result.Attempts = append(result.Attempts, Attempt{Ref: ref, Err: err})
			logger.Warn("Model attempt failed",
				zap.String("model", ref.String()),
				zap.Error(err),
			)
			continue
		}

		result.Attempts = append(result.Attempts, Attempt{Ref: ref})
		result.Text = text
		result.Model = ref.Model
		logger.Info("Generation succeeded",
			zap.String("model", ref.String()),
			zap.Int("attempts", len(result.Attempts)),
		)
		return result
	}

	return result
}
