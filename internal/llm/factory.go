package llm

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/config"
)

// NewProvider creates the provider selected by cfg. API keys and the Ollama
// host are read from the environment.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, missingKey("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(apiKey, cfg.Model, os.Getenv("OPENAI_BASE_URL"), client), nil

	case config.ProviderGoogle:
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, missingKey("GOOGLE_API_KEY")
		}
		return NewGoogleProvider(apiKey, cfg.Model, "", client), nil

	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, cfg.Model, client), nil

	default:
		return nil, apperr.New(apperr.ErrInvalidConfig, "llm.NewProvider", fmt.Sprintf("unsupported provider type: %s", cfg.Provider))
	}
}

func missingKey(name string) error {
	return apperr.New(apperr.ErrInvalidConfig, "llm.NewProvider", name+" environment variable is not set")
}
