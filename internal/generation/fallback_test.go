package generation

import (
	"context"
	"errors"
	"testing"
)

type scriptedProvider struct {
	calls     []string
	responses map[string]string
	errs      map[string]error
}

func (p *scriptedProvider) Generate(_ context.Context, model, _ string) (string, error) {
	p.calls = append(p.calls, model)
	if err, ok := p.errs[model]; ok {
		return "", err
	}
	return p.responses[model], nil
}

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		in   string
		want ModelRef
	}{
		{"gemini/gemini-2.0-flash", ModelRef{"gemini", "gemini-2.0-flash"}},
		{"openai/gpt-4o-mini", ModelRef{"openai", "gpt-4o-mini"}},
		{"gemini-1.5-pro", ModelRef{"gemini", "gemini-1.5-pro"}},
	}

	for _, tt := range tests {
		if got := ParseModelRef(tt.in); got != tt.want {
			t.Errorf("ParseModelRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFallbackFirstSuccessWins(t *testing.T) {
	p := &scriptedProvider{
		responses: map[string]string{"model-a": "answer from a"},
	}
	providers := map[string]Provider{"gemini": p}
	refs := ParseModelRefs([]string{"gemini/model-a", "gemini/model-b"})

	result := Fallback(context.Background(), providers, refs, "question")

	if result.Failed() {
		t.Fatal("expected success")
	}
	if result.Model != "model-a" {
		t.Errorf("modelUsed = %q, want model-a", result.Model)
	}
	if len(p.calls) != 1 {
		t.Errorf("expected 1 call, got %d (%v)", len(p.calls), p.calls)
	}
}

func TestFallbackWalksListInOrder(t *testing.T) {
	p := &scriptedProvider{
		errs: map[string]error{
			"model-a": errors.New("a overloaded"),
			"model-b": errors.New("b overloaded"),
		},
		responses: map[string]string{"model-c": "answer from c"},
	}
	providers := map[string]Provider{"gemini": p}
	refs := ParseModelRefs([]string{"gemini/model-a", "gemini/model-b", "gemini/model-c"})

	result := Fallback(context.Background(), providers, refs, "question")

	if result.Failed() {
		t.Fatal("expected eventual success")
	}
	if result.Model != "model-c" {
		t.Errorf("modelUsed = %q, want model-c", result.Model)
	}
	want := []string{"model-a", "model-b", "model-c"}
	if len(p.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", p.calls, want)
	}
	for i := range want {
		if p.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", p.calls, want)
		}
	}
	if len(result.Attempts) != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", len(result.Attempts))
	}
}

func TestFallbackTotalFailure(t *testing.T) {
	lastErr := errors.New("b quota exceeded")
	p := &scriptedProvider{
		errs: map[string]error{
			"model-a": errors.New("a down"),
			"model-b": lastErr,
		},
	}
	providers := map[string]Provider{"gemini": p}
	refs := ParseModelRefs([]string{"gemini/model-a", "gemini/model-b"})

	result := Fallback(context.Background(), providers, refs, "question")

	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.LastErr(), lastErr) {
		t.Errorf("LastErr = %v, want %v", result.LastErr(), lastErr)
	}
	// each model tried exactly once
	if len(p.calls) != 2 {
		t.Errorf("expected 2 calls, got %d", len(p.calls))
	}
}

func TestFallbackUnknownProvider(t *testing.T) {
	p := &scriptedProvider{responses: map[string]string{"model-b": "ok"}}
	providers := map[string]Provider{"gemini": p}
	refs := []ModelRef{
		{Provider: "anthropic", Model: "model-a"},
		{Provider: "gemini", Model: "model-b"},
	}

	result := Fallback(context.Background(), providers, refs, "question")

	if result.Failed() {
		t.Fatal("unknown provider should not abort the walk")
	}
	if result.Model != "model-b" {
		t.Errorf("modelUsed = %q, want model-b", result.Model)
	}
	if len(result.Attempts) != 2 {
		t.Errorf("expected the skipped provider to count as an attempt, got %d", len(result.Attempts))
	}
}
