package llm

import (
	"context"
	"errors"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/resilience"
)

// ResilientProvider runs completions under a resilience.Executor and tags
// every failure with ErrLLMUnavailable.
type ResilientProvider struct {
	provider Provider
	exec     *resilience.Executor
}

// NewResilientProvider wraps provider.
func NewResilientProvider(provider Provider, exec *resilience.Executor) *ResilientProvider {
	return &ResilientProvider{provider: provider, exec: exec}
}

func (r *ResilientProvider) Name() string {
	return r.provider.Name()
}

func (r *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := resilience.Call(ctx, r.exec, "llm."+r.provider.Name(), func(ctx context.Context) (*CompletionResponse, error) {
		return r.provider.Complete(ctx, req)
	}, classify)
	if err != nil {
		if apperr.IsKind(err, apperr.ErrLLMUnavailable) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrLLMUnavailable, "llm.Complete", err)
	}
	return resp, nil
}

// classify stops retrying client errors such as a bad key or an unknown
// model. They still count against the breaker.
func classify(err error) resilience.Classification {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Permanent() {
		return resilience.Classification{Retryable: false, RecordFailure: true}
	}
	return resilience.DefaultClassifier(err)
}
