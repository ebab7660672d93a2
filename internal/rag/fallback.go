package rag

import (
	"context"

	"github.com/ziadkadry99/docchat/internal/llm"
)

// Fallback answers from the model's general knowledge with no retrieved
// context and no history.
type Fallback struct {
	provider llm.Provider
	sampling Sampling
}

// NewFallback creates a Fallback over provider.
func NewFallback(provider llm.Provider, sampling Sampling) *Fallback {
	return &Fallback{provider: provider, sampling: sampling}
}

// Answer asks the model question directly.
func (f *Fallback) Answer(ctx context.Context, question string) (string, error) {
	return complete(ctx, f.provider, f.sampling, "rag.Fallback", []llm.Message{
		llm.SystemMessage(fallbackSystemPrompt),
		llm.UserMessage(question),
	})
}
