// Package app wires configuration into a ready-to-use query pipeline. It is
// shared by the HTTP server and the command line client.
package app

import (
	"context"
	"fmt"

	"floatchat/internal/config"
	"floatchat/internal/index"
	"floatchat/internal/logger"
	"floatchat/internal/repository"
	"floatchat/internal/service"
)

// App holds the constructed components.
type App struct {
	Config       *config.Config
	Log          logger.Logger
	Repo         *repository.PostgresRepository
	Index        index.Index
	Oracle       *service.OpenAIClient
	Orchestrator *service.QueryOrchestrator
	Indexer      *service.DocumentIndexer
	Summarizer   *service.DataSummarizer
	// History is nil when the audit backend cannot be read back.
	History *repository.SQLAudit

	closers []func() error
}

// New connects to every configured backend and assembles the pipeline.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return nil, err
	}
	repo.SetQueryTimeout(cfg.Pipeline.StoreTimeout)
	a.Repo = repo
	a.closers = append(a.closers, repo.Close)
	log.Info("connected to PostgreSQL", nil)

	// Oracle stays a nil interface when disabled so the pipeline uses its
	// keyword and template fallbacks.
	var oracle service.Oracle
	if cfg.OpenAI.Enabled {
		a.Oracle = service.NewOpenAIClient(&cfg.OpenAI, log)
		oracle = a.Oracle
		log.Info("OpenAI client initialized", map[string]interface{}{
			"api_base":        cfg.OpenAI.APIBase,
			"chat_model":      cfg.OpenAI.ChatModel,
			"embedding_model": cfg.OpenAI.EmbeddingModel,
		})
	} else {
		log.Warn("OpenAI is disabled, using keyword intent parsing and template answers", map[string]interface{}{
			"hint": "set OPENAI_API_KEY to enable",
		})
	}

	idx, err := a.newIndex(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Index = idx

	audit, err := a.newAudit()
	if err != nil {
		a.Close()
		return nil, err
	}

	rcfg := service.RetrieverConfig{
		ProfileCollection: cfg.Pipeline.ProfileCollection,
		FloatCollection:   cfg.Pipeline.FloatCollection,
		ProfileHits:       cfg.Pipeline.ProfileContextHits,
		FloatHits:         cfg.Pipeline.FloatContextHits,
	}

	a.Orchestrator = service.NewQueryOrchestrator(
		service.NewIntentParser(oracle, cfg.Pipeline.OracleTimeout, log),
		service.NewQueryCompiler(),
		service.NewContextRetriever(idx, rcfg, log),
		repo,
		service.NewResponseSynthesizer(oracle, cfg.Pipeline.OracleTimeout, log),
		audit,
		log,
	)
	a.Indexer = service.NewDocumentIndexer(repo, idx, rcfg, log)
	a.Summarizer = service.NewDataSummarizer(repo, idx, a.Indexer.Collections(), log)

	log.Info("pipeline initialized", map[string]interface{}{
		"index":  cfg.Index.Backend,
		"audit":  cfg.Audit.Backend,
		"cache":  cfg.Redis.Enabled,
		"oracle": cfg.OpenAI.Enabled,
	})
	return a, nil
}

func (a *App) newIndex(ctx context.Context) (index.Index, error) {
	cfg := a.Config
	var idx index.Index

	switch cfg.Index.Backend {
	case "memory":
		idx = index.NewMemory()
	case "pgvector":
		if a.Oracle == nil {
			return nil, fmt.Errorf("pgvector index needs embeddings: set OPENAI_API_KEY")
		}
		idx = index.NewPGVector(a.Repo.DB(), a.Oracle)
	case "elasticsearch":
		es, err := index.NewElasticClient(
			cfg.Index.ElasticsearchAddresses,
			cfg.Index.ElasticsearchUsername,
			cfg.Index.ElasticsearchPassword,
		)
		if err != nil {
			return nil, err
		}
		idx = index.NewElastic(es)
	default:
		return nil, fmt.Errorf("%w: %s", index.ErrUnknownBackend, cfg.Index.Backend)
	}

	if cfg.Redis.Enabled {
		rdb := index.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Log.Warn("redis unavailable, context cache disabled", map[string]interface{}{"error": err.Error()})
			rdb.Close()
			return idx, nil
		}
		a.closers = append(a.closers, rdb.Close)
		idx = index.NewCached(idx, rdb, cfg.Redis.CacheTTL, a.Log)
	}
	return idx, nil
}

func (a *App) newAudit() (service.AuditSink, error) {
	switch a.Config.Audit.Backend {
	case "postgres":
		audit := repository.NewPostgresAudit(a.Repo.DB(), a.Log)
		a.History = audit
		return audit, nil
	case "sqlite":
		audit, err := repository.NewSQLiteAudit(a.Config.Audit.SQLitePath, a.Log)
		if err != nil {
			return nil, err
		}
		a.History = audit
		a.closers = append(a.closers, audit.Close)
		return audit, nil
	default:
		return repository.NewLogAudit(a.Log), nil
	}
}

// WarmMemoryIndex fills the in-memory index from the database, up to limit
// records per collection. Other backends keep their documents between runs
// and are left untouched.
func (a *App) WarmMemoryIndex(ctx context.Context, limit int) error {
	if a.Config.Index.Backend != "memory" || limit <= 0 {
		return nil
	}
	results, err := a.Indexer.Reindex(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to warm memory index: %w", err)
	}
	for _, r := range results {
		a.Log.Info("memory index warmed", map[string]interface{}{
			"collection": r.Collection,
			"indexed":    r.Success,
			"failed":     r.Failed,
		})
	}
	return nil
}

// Close releases every backend connection in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
