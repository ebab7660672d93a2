package config

import "time"

// ProviderType identifies a model provider used for completions or embeddings.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level docchat configuration, corresponding to docchat.yml.
type Config struct {
	DataDir    string           `yaml:"data_dir" koanf:"data_dir"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
	Auth       AuthConfig       `yaml:"auth" koanf:"auth"`
	LLM        LLMConfig        `yaml:"llm" koanf:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding" koanf:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking" koanf:"chunking"`
	RAG        RAGConfig        `yaml:"rag" koanf:"rag"`
	Resilience ResilienceConfig `yaml:"resilience" koanf:"resilience"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	MaxUploadMB    int64         `yaml:"max_upload_mb" koanf:"max_upload_mb"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

// AuthConfig holds session signing and bootstrap admin settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" koanf:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl" koanf:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure" koanf:"cookie_secure"`
	AdminUsername string        `yaml:"admin_username" koanf:"admin_username"`
	AdminPassword string        `yaml:"admin_password" koanf:"admin_password"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   ProviderType  `yaml:"provider" koanf:"provider"`
	Model      string        `yaml:"model" koanf:"model"`
	Dimensions int           `yaml:"dimensions" koanf:"dimensions"`
	BaseURL    string        `yaml:"base_url" koanf:"base_url"`
	Timeout    time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ChunkingConfig holds splitter parameters, measured in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RAGConfig tunes retrieval.
type RAGConfig struct {
	TopK int `yaml:"top_k" koanf:"top_k"`
}

// ResilienceConfig bounds retries and the circuit breaker around upstream calls.
type ResilienceConfig struct {
	MaxRetries       int           `yaml:"max_retries" koanf:"max_retries"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" koanf:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff" koanf:"max_backoff"`
	BreakerFailures  uint32        `yaml:"breaker_failures" koanf:"breaker_failures"`
	BreakerOpenReset time.Duration `yaml:"breaker_open_reset" koanf:"breaker_open_reset"`
}
