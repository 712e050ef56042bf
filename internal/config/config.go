// Package config loads the core's runtime configuration from environment
// variables (spec.md §6), mirroring the teacher's hand-rolled env-var loader
// (internal/config/loader.go) rather than pulling in a struct-tag env
// library the pack never uses.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "EXECTEAM_"

// Config holds every recognized option from spec.md §6.
type Config struct {
	ChunkSize    int
	ChunkOverlap int

	EmbeddingModel          string
	EmbeddingBaseURL        string
	EmbeddingPath           string
	EmbeddingAPIKey         string
	EmbeddingAPIHeader      string
	EmbeddingTimeoutSeconds int

	MessageHistoryCapacity   int
	DelegationThreshold      float64
	MaxDelegationDepth       int
	WorkerPoolSize           int
	LLMRequestTimeoutSeconds int
	PersistDirectory         string

	// Backend DSNs. Empty means "use the in-memory/on-disk fallback".
	PostgresDSN string
	QdrantDSN   string
	RedisAddr   string

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr string
	LogPath  string
	LogLevel string
}

// Load reads configuration from the process environment (optionally from a
// local .env file) and applies defaults for anything unset.
func Load() Config {
	_ = godotenv.Overload()

	cfg := Config{
		ChunkSize:                1000,
		ChunkOverlap:             200,
		EmbeddingModel:           "text-embedding-3-small",
		EmbeddingPath:            "/v1/embeddings",
		EmbeddingAPIHeader:       "Authorization",
		EmbeddingTimeoutSeconds:  30,
		MessageHistoryCapacity:   10_000,
		DelegationThreshold:      0.4,
		MaxDelegationDepth:       3,
		WorkerPoolSize:           runtime.NumCPU(),
		LLMRequestTimeoutSeconds: 120,
		PersistDirectory:         "./data",
		HTTPAddr:                 ":8080",
		LogLevel:                 "info",
		KafkaTopic:               "execteam.messages",
	}

	if v := env("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkSize = n
		}
	}
	if v := env("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkOverlap = n
		}
	}
	if v := env("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := env("EMBEDDING_BASE_URL"); v != "" {
		cfg.EmbeddingBaseURL = v
	}
	if v := env("EMBEDDING_PATH"); v != "" {
		cfg.EmbeddingPath = v
	}
	if v := env("EMBEDDING_API_KEY"); v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if v := env("EMBEDDING_API_HEADER"); v != "" {
		cfg.EmbeddingAPIHeader = v
	}
	if v := env("EMBEDDING_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EmbeddingTimeoutSeconds = n
		}
	}
	if v := env("MESSAGE_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MessageHistoryCapacity = n
		}
	}
	if v := env("DELEGATION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DelegationThreshold = f
		}
	}
	if v := env("MAX_DELEGATION_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDelegationDepth = n
		}
	}
	if v := env("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerPoolSize = n
		}
	}
	if v := env("LLM_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLMRequestTimeoutSeconds = n
		}
	}
	if v := env("PERSIST_DIRECTORY"); v != "" {
		cfg.PersistDirectory = v
	}
	if v := env("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := env("QDRANT_DSN"); v != "" {
		cfg.QdrantDSN = v
	}
	if v := env("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	if v := env("KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
