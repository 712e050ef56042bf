// Command execteamd runs the executive-team coordination core: the Message
// Bus, Task Manager, Delegation Engine, Hybrid Retrieval Index and Request
// Coordinator wired behind the HTTP surface (spec.md §2, §5).
//
// Grounded on cmd/orchestrator/main.go's run() error / main() pattern:
// config load, logger init, backend construction with graceful degradation,
// signal.NotifyContext shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"execteam/internal/agentregistry"
	"execteam/internal/bus"
	"execteam/internal/config"
	"execteam/internal/coordinator"
	"execteam/internal/corelog"
	"execteam/internal/delegation"
	"execteam/internal/embedclient"
	"execteam/internal/httpapi"
	"execteam/internal/llmclient"
	"execteam/internal/retrieval"
	"execteam/internal/retrieval/embedcache"
	"execteam/internal/retrieval/keywordindex"
	"execteam/internal/retrieval/vectorstore"
	"execteam/internal/storage/postgres"
	"execteam/internal/tasks"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("execteamd")
	}
}

func run() error {
	cfg := config.Load()
	corelog.Init(cfg.LogPath, cfg.LogLevel)

	baseCtx := context.Background()
	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var pgPool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pool, err := postgres.OpenPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres pool: %w", err)
		}
		pgPool = pool
		defer pgPool.Close()
	}

	var mirror bus.Mirror
	if len(cfg.KafkaBrokers) > 0 {
		mirror = bus.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer mirror.Close()
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("message bus: kafka mirror enabled")
	}
	messageBus := bus.New(cfg.MessageHistoryCapacity, mirror)

	taskMgr := tasks.NewManager()
	if pgPool != nil {
		recorder, err := tasks.NewRecorder(ctx, pgPool)
		if err != nil {
			return fmt.Errorf("init task recorder: %w", err)
		}
		taskMgr.SetRecorder(recorder)
		log.Info().Msg("task manager: postgres durability mirror enabled")
	}

	registry := agentregistry.NewDefaultRegistry(cfg.MessageHistoryCapacity)
	engine := delegation.NewEngine(registry, taskMgr, messageBus, nil, cfg.DelegationThreshold, cfg.MaxDelegationDepth)

	index, err := buildRetrievalIndex(cfg, pgPool)
	if err != nil {
		return fmt.Errorf("build retrieval index: %w", err)
	}

	llm := llmclient.NewMock()
	log.Warn().Msg("request coordinator: no LLM backend configured, using deterministic mock (spec.md §1 external collaborator)")

	pool := coordinator.NewWorkerPool(cfg.WorkerPoolSize, time.Duration(cfg.LLMRequestTimeoutSeconds)*time.Second, registry)
	defer pool.Close()
	coord := coordinator.New(engine, index, registry, llm, pool, 0)

	server := httpapi.NewServer(coord, index, registry, taskMgr)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("execteamd: listening")
		if err := server.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("execteamd: shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("execteamd: stopped")
	return nil
}

// buildRetrievalIndex selects the vector/keyword/cache backends per
// configured DSNs, falling back to in-memory/on-disk implementations when a
// DSN is unset (spec.md §6: "Empty means use the in-memory/on-disk fallback").
func buildRetrievalIndex(cfg config.Config, pgPool *pgxpool.Pool) (*retrieval.Index, error) {
	var vecStore vectorstore.Store
	if cfg.QdrantDSN != "" {
		q, err := vectorstore.NewQdrant(cfg.QdrantDSN, "execteam_chunks", 1536)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		vecStore = q
	} else {
		vecStore = vectorstore.NewMemory()
	}

	var kwStore retrieval.KeywordStore
	if pgPool != nil {
		kwStore = keywordindex.NewPostgres(pgPool)
	} else {
		kwStore = retrieval.NewMemoryKeywordStore(keywordindex.New())
	}

	var redisTier *embedcache.RedisTier
	if cfg.RedisAddr != "" {
		redisTier = embedcache.NewRedisTier(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}
	cachePath := ""
	if cfg.PersistDirectory != "" {
		cachePath = cfg.PersistDirectory + "/embed_cache.json"
	}
	cache := embedcache.New(cachePath, 100, redisTier)

	embedder := embedclient.New(embedclient.Config{
		Model:          cfg.EmbeddingModel,
		BaseURL:        cfg.EmbeddingBaseURL,
		Path:           cfg.EmbeddingPath,
		APIKey:         cfg.EmbeddingAPIKey,
		APIHeader:      cfg.EmbeddingAPIHeader,
		TimeoutSeconds: cfg.EmbeddingTimeoutSeconds,
	}, nil)

	return retrieval.New(vecStore, kwStore, cache, embedder, cfg.ChunkSize, cfg.ChunkOverlap, cfg.PersistDirectory), nil
}
