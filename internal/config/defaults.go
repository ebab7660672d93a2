package config

import (
	"path/filepath"
	"time"
)

// ProviderPreset describes the default models for a provider.
type ProviderPreset struct {
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
}

var providerPresets = map[ProviderType]ProviderPreset{
	ProviderGoogle: {Model: "gemini-1.5-flash", EmbeddingModel: "text-embedding-004", EmbeddingDimensions: 768},
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small", EmbeddingDimensions: 1536},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text", EmbeddingDimensions: 768},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	preset := GetPreset(ProviderGoogle)
	return &Config{
		DataDir: "data",
		Server: ServerConfig{
			Host:           "",
			Port:           5000,
			RequestTimeout: 120 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    32,
		},
		Log: LogConfig{Level: "info"},
		Auth: AuthConfig{
			SessionTTL:    24 * time.Hour,
			AdminUsername: "admin",
		},
		LLM: LLMConfig{
			Provider:          ProviderGoogle,
			Model:             preset.Model,
			Temperature:       0.2,
			MaxTokens:         1024,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 60,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderGoogle,
			Model:      preset.EmbeddingModel,
			Dimensions: preset.EmbeddingDimensions,
			Timeout:    30 * time.Second,
		},
		Chunking: ChunkingConfig{Size: 1000, Overlap: 200},
		RAG:      RAGConfig{TopK: 4},
		Resilience: ResilienceConfig{
			MaxRetries:       2,
			InitialBackoff:   200 * time.Millisecond,
			MaxBackoff:       2 * time.Second,
			BreakerFailures:  5,
			BreakerOpenReset: 30 * time.Second,
		},
	}
}

// GetPreset returns the default models for provider.
// Unknown providers fall back to the Google preset.
func GetPreset(provider ProviderType) ProviderPreset {
	if p, ok := providerPresets[provider]; ok {
		return p
	}
	return providerPresets[ProviderGoogle]
}

// DBPath is the SQLite database location.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, "docchat.db") }

// UploadDir is where uploaded PDFs are stored.
func (c *Config) UploadDir() string { return filepath.Join(c.DataDir, "pdfs") }

// IndexDir holds the embedding index snapshot.
func (c *Config) IndexDir() string { return filepath.Join(c.DataDir, "index") }
