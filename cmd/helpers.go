package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/chunker"
	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/db"
	"github.com/ziadkadry99/docchat/internal/documents"
	"github.com/ziadkadry99/docchat/internal/embeddings"
	"github.com/ziadkadry99/docchat/internal/ingest"
	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/logging"
	"github.com/ziadkadry99/docchat/internal/metrics"
	"github.com/ziadkadry99/docchat/internal/querylog"
	"github.com/ziadkadry99/docchat/internal/rag"
	"github.com/ziadkadry99/docchat/internal/resilience"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// loadConfig loads .env, the config file and env overrides, then validates.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *db.DB
	exec     *resilience.Executor
	embedder embeddings.Embedder
	index    *vectordb.Index
	users    *auth.Store
	docs     *documents.Store
	queryLog *querylog.Store
	metrics  *metrics.Metrics
	pipeline *ingest.Pipeline
}

// newApp opens storage and the index. Model access is added by questionService.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Verbose(cfg.Log, verbose))
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	exec := resilience.NewExecutor(resilience.PolicyFromConfig(cfg.Resilience), logger)

	embedder, err := embeddings.New(cfg.Embedding)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	embedder = embeddings.Resilient(embedder, exec)

	index, err := vectordb.Open(ctx, cfg.IndexDir(), embedder, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		exec:     exec,
		embedder: embedder,
		index:    index,
		users:    auth.NewStore(database),
		docs:     documents.NewStore(database, cfg.UploadDir()),
		queryLog: querylog.NewStore(database),
		metrics:  metrics.New(),
	}
	a.pipeline = ingest.NewPipeline(a.docs, index, splitter, a.metrics, logger.Named("ingest"))
	return a, nil
}

// questionService builds the answering chain over the configured model.
func (a *app) questionService() (*rag.Service, error) {
	provider, err := llm.NewProvider(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	provider = llm.NewResilientProvider(llm.NewRateLimitedProvider(provider, a.cfg.LLM.RequestsPerMinute), a.exec)

	sampling := rag.Sampling{
		Model:       a.cfg.LLM.Model,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
	}
	logger := a.logger.Named("rag")
	answerer := rag.NewAnswerer(a.index, provider, a.cfg.RAG.TopK,
		rag.WithSampling(sampling),
		rag.WithLogger(logger),
	)
	return rag.NewService(answerer, rag.NewFallback(provider, sampling), a.queryLog, a.metrics, logger), nil
}

func (a *app) Close() {
	a.logger.Sync()
	a.db.Close()
}
