// Package embeddings turns text into vectors through a remote or local
// embedding model.
package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/resilience"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New builds the embedder selected by cfg, reading API keys from the
// environment.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 30 * time.Second
	}

	switch cfg.Provider {
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, apperr.New(apperr.ErrInvalidConfig, "embeddings.New", "GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return NewGoogleEmbedder(apiKey, cfg.Model, cfg.Dimensions, cfg.BaseURL, client), nil
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, apperr.New(apperr.ErrInvalidConfig, "embeddings.New", "OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(cfg.Model), cfg.BaseURL, client), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.Dimensions, cfg.BaseURL, client), nil
	default:
		return nil, apperr.New(apperr.ErrInvalidConfig, "embeddings.New", fmt.Sprintf("unsupported embedding provider %q", cfg.Provider))
	}
}

// Resilient wraps an Embedder so every call runs under exec and failures
// carry ErrEmbeddingUnavailable.
func Resilient(e Embedder, exec *resilience.Executor) Embedder {
	return &resilientEmbedder{inner: e, exec: exec}
}

type resilientEmbedder struct {
	inner Embedder
	exec  *resilience.Executor
}

func (r *resilientEmbedder) Name() string    { return r.inner.Name() }
func (r *resilientEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *resilientEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := resilience.Call(ctx, r.exec, "embedding."+r.inner.Name(), func(ctx context.Context) ([][]float32, error) {
		return r.inner.Embed(ctx, texts)
	}, nil)
	if err != nil {
		if apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrEmbeddingUnavailable, "embeddings.Embed", err)
	}
	return vecs, nil
}
