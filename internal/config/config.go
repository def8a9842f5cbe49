package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Data      DataConfig       `json:"data"`
	Chunking  ChunkingConfig   `json:"chunking"`
	Index     IndexConfig      `json:"index"`
	AI        AIConfig         `json:"ai"`
	CORS      CORSConfig       `json:"cors"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
	Database  *DatabaseConfig  `json:"database"`
	Mirror    *FileStoreConfig `json:"mirror"`
	Schedule  ScheduleConfig   `json:"schedule"`
}

type DataConfig struct {
	RawDir        string `json:"raw_dir"`
	ProcessedDir  string `json:"processed_dir"`
	EmbeddingsDir string `json:"embeddings_dir"`
}

type ChunkingConfig struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

type IndexConfig struct {
	Path                string `json:"path"`
	Collection          string `json:"collection"`
	QueryTimeoutSeconds int    `json:"query_timeout_seconds"`
	SnapshotDir         string `json:"snapshot_dir"`
}

type ProviderConfig struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Providers      []ProviderConfig `json:"providers"`
	ChatProviders  []string         `json:"chat_providers"`
	EmbedProviders []string         `json:"embed_providers"`
	ChatModel      string           `json:"chat_model"`
	EmbedModel     string           `json:"embed_model"`
	Temperature    float32          `json:"temperature"`
	MaxTokens      int              `json:"max_tokens"`
	TimeoutSeconds int              `json:"timeout_seconds"`
	BatchSize      int              `json:"batch_size"`
	Cache          CacheConfig      `json:"cache"`
}

// LRUSize -1 disables the in-process cache, 0 takes the default.
type CacheConfig struct {
	LRUSize       int `json:"lru_size"`
	LRUTTLMinutes int `json:"lru_ttl_minutes"`
}

type CORSConfig struct {
	AllowOrigins []string `json:"allow_origins"`
}

type RateLimitConfig struct {
	WindowSeconds int `json:"window_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	CacheCleanup    string `json:"cache_cleanup"`
	IndexSnapshot   string `json:"index_snapshot"`
	CacheMaxAgeDays int    `json:"cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = 5000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Data.RawDir == "" {
		cfg.Data.RawDir = "onenote/raw"
	}
	if cfg.Data.ProcessedDir == "" {
		cfg.Data.ProcessedDir = "onenote/processed"
	}
	if cfg.Data.EmbeddingsDir == "" {
		cfg.Data.EmbeddingsDir = "onenote/embeddings"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.ChunkSize < 0 {
		return nil, fmt.Errorf("chunking.chunk_size must be positive")
	}
	if cfg.Chunking.Overlap < 0 {
		return nil, fmt.Errorf("chunking.overlap must not be negative")
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize {
		return nil, fmt.Errorf("chunking.overlap must be less than chunking.chunk_size")
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "chroma_db"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "onenote_chunks"
	}
	if cfg.Index.QueryTimeoutSeconds <= 0 {
		cfg.Index.QueryTimeoutSeconds = 10
	}
	if cfg.Schedule.IndexSnapshot != "" && cfg.Index.SnapshotDir == "" {
		cfg.Index.SnapshotDir = "snapshots"
	}
	if err := applyAIDefaults(&cfg.AI); err != nil {
		return nil, err
	}
	if len(cfg.CORS.AllowOrigins) == 0 {
		cfg.CORS.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost",
			"http://localhost:80",
		}
	}
	if cfg.Database != nil && cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Mirror != nil && cfg.Mirror.Type == "" {
		return nil, fmt.Errorf("mirror.type is required")
	}
	return &cfg, nil
}

func applyAIDefaults(ai *AIConfig) error {
	names := make(map[string]struct{}, len(ai.Providers))
	for i := range ai.Providers {
		p := &ai.Providers[i]
		if p.Type == "" {
			return fmt.Errorf("ai.providers[%d].type is required", i)
		}
		if p.Name == "" {
			p.Name = p.Type
		}
		if _, ok := names[p.Name]; ok {
			return fmt.Errorf("ai.providers: duplicate name %s", p.Name)
		}
		names[p.Name] = struct{}{}
	}
	for _, name := range ai.ChatProviders {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("ai.chat_providers: unknown provider %s", name)
		}
	}
	for _, name := range ai.EmbedProviders {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("ai.embed_providers: unknown provider %s", name)
		}
	}
	if ai.ChatModel == "" {
		ai.ChatModel = "gpt-4o-mini"
	}
	if ai.EmbedModel == "" {
		ai.EmbedModel = "text-embedding-3-small"
	}
	if ai.Temperature == 0 {
		ai.Temperature = 0.7
	}
	if ai.MaxTokens <= 0 {
		ai.MaxTokens = 1500
	}
	if ai.TimeoutSeconds <= 0 {
		ai.TimeoutSeconds = 60
	}
	if ai.BatchSize <= 0 {
		ai.BatchSize = 100
	}
	if ai.Cache.LRUSize == 0 {
		ai.Cache.LRUSize = 1024
	}
	if ai.Cache.LRUTTLMinutes <= 0 {
		ai.Cache.LRUTTLMinutes = 60
	}
	return nil
}
