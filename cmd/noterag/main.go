package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/noterag/internal/ai"
	"github.com/xxxsen/noterag/internal/chunker"
	"github.com/xxxsen/noterag/internal/config"
	"github.com/xxxsen/noterag/internal/embedcache"
	"github.com/xxxsen/noterag/internal/embedding"
	"github.com/xxxsen/noterag/internal/filestore"
	"github.com/xxxsen/noterag/internal/handler"
	"github.com/xxxsen/noterag/internal/importer"
	"github.com/xxxsen/noterag/internal/job"
	"github.com/xxxsen/noterag/internal/loader"
	"github.com/xxxsen/noterag/internal/middleware"
	"github.com/xxxsen/noterag/internal/repo"
	"github.com/xxxsen/noterag/internal/schedule"
	"github.com/xxxsen/noterag/internal/service"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "noterag",
		Short: "noterag pipeline and chat server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := boot(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "run import, chunk and embed in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(configPath, pipelineNeeds{ai: true, index: true}, func(ctx context.Context, svc *service.PipelineService) error {
				return svc.RunFull(ctx)
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "convert raw .docx exports into processed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(configPath, pipelineNeeds{}, func(ctx context.Context, svc *service.PipelineService) error {
				return svc.RunImport(ctx)
			})
		},
	}

	chunkCmd := &cobra.Command{
		Use:   "chunk",
		Short: "split processed documents into overlapping chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(configPath, pipelineNeeds{}, func(ctx context.Context, svc *service.PipelineService) error {
				return svc.RunChunk(ctx)
			})
		},
	}

	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "embed chunks and write them into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(configPath, pipelineNeeds{ai: true, index: true}, func(ctx context.Context, svc *service.PipelineService) error {
				return svc.RunEmbed(ctx)
			})
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "replay embedding backups into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(configPath, pipelineNeeds{index: true}, func(ctx context.Context, svc *service.PipelineService) error {
				return svc.RunLoad(ctx)
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "print index stats and recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := boot(configPath)
			if err != nil {
				return err
			}
			svc, cleanup, err := buildPipelineService(cfg, pipelineNeeds{index: true})
			if err != nil {
				return err
			}
			defer cleanup()
			out, err := json.MarshalIndent(svc.Stats(context.Background()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, pipelineCmd, importCmd, chunkCmd, embedCmd, loadCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func boot(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

// pipelineNeeds names the collaborators a stage cannot run without.
// Import and chunk work offline, so they skip the provider and index setup.
type pipelineNeeds struct {
	ai    bool
	index bool
}

func runStage(configPath string, needs pipelineNeeds, stage func(ctx context.Context, svc *service.PipelineService) error) error {
	cfg, err := boot(configPath)
	if err != nil {
		return err
	}
	svc, cleanup, err := buildPipelineService(cfg, needs)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return stage(ctx, svc)
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("index_path", cfg.Index.Path),
		zap.String("collection", cfg.Index.Collection),
	)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	var cacheRepo *repo.EmbeddingCacheRepo
	if db != nil {
		cacheRepo = repo.NewEmbeddingCacheRepo(db)
	}

	providers, order, err := buildProviders(cfg.AI)
	if err != nil {
		return err
	}
	chatter, err := buildChatter(cfg, providers, order)
	if err != nil {
		return err
	}
	embedder := buildEmbedder(cfg, providers, order, cacheRepo)
	if embedder == nil {
		logutil.GetLogger(context.Background()).Warn("no embedding provider configured, chat answers without document context")
	}

	index, err := vectorstore.Open(cfg.Index.Path, cfg.Index.Collection)
	if err != nil {
		logutil.GetLogger(context.Background()).Warn("vector index unavailable, chat answers without document context", zap.Error(err))
		index = nil
	}

	chatService := service.NewChatService(
		chatter,
		embedder,
		index,
		time.Duration(cfg.Index.QueryTimeoutSeconds)*time.Second,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second,
	)

	deps := handler.RouterDeps{
		Chat:            handler.NewChatHandler(chatService),
		Health:          handler.NewHealthHandler(),
		RateLimitWindow: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORS.AllowOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	jobs := 0
	if cfg.Schedule.CacheCleanup != "" && cacheRepo != nil {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Schedule.CacheMaxAgeDays), cfg.Schedule.CacheCleanup); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
		jobs++
	}
	if cfg.Schedule.IndexSnapshot != "" && index != nil {
		if err := scheduler.AddJob(job.NewIndexSnapshotJob(index, cfg.Index.SnapshotDir), cfg.Schedule.IndexSnapshot); err != nil {
			return fmt.Errorf("schedule index snapshot: %w", err)
		}
		jobs++
	}
	if jobs > 0 {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func buildPipelineService(cfg *config.Config, needs pipelineNeeds) (*service.PipelineService, func(), error) {
	cleanup := func() {}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if db != nil {
		cleanup = func() { db.Close() }
	}
	var cacheRepo *repo.EmbeddingCacheRepo
	var runRepo *repo.PipelineRunRepo
	if db != nil {
		cacheRepo = repo.NewEmbeddingCacheRepo(db)
		runRepo = repo.NewPipelineRunRepo(db)
	}

	var index *vectorstore.Store
	var ld *loader.Loader
	if needs.index {
		index, err = vectorstore.Open(cfg.Index.Path, cfg.Index.Collection)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open vector index: %w", err)
		}
		ld = loader.New(index)
	}

	var gen *embedding.Generator
	if needs.ai {
		providers, order, err := buildProviders(cfg.AI)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		embedder := buildEmbedder(cfg, providers, order, cacheRepo)
		if embedder == nil {
			cleanup()
			return nil, nil, fmt.Errorf("at least one embedding provider is required")
		}
		gen = embedding.NewGenerator(embedder, cfg.AI.BatchSize, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	}

	processed, embeds, err := buildArtifactStores(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ck, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc := service.NewPipelineService(service.PipelineDeps{
		Importer:      importer.New(nil),
		Chunker:       ck,
		Generator:     gen,
		Loader:        ld,
		Index:         index,
		Processed:     processed,
		Embeddings:    embeds,
		Runs:          runRepo,
		RawDir:        cfg.Data.RawDir,
		ProcessedDir:  cfg.Data.ProcessedDir,
		EmbeddingsDir: cfg.Data.EmbeddingsDir,
	})
	return svc, cleanup, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database == nil {
		return nil, nil
	}
	db, err := repo.Open(*cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

func buildProviders(cfg config.AIConfig) (map[string]ai.IProvider, []string, error) {
	providers := make(map[string]ai.IProvider, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := ai.NewProvider(pc.Type, pc.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %s: %w", pc.Name, err)
		}
		providers[pc.Name] = p
		order = append(order, pc.Name)
	}
	return providers, order, nil
}

func buildChatter(cfg *config.Config, providers map[string]ai.IProvider, order []string) (ai.IChatter, error) {
	names := cfg.AI.ChatProviders
	if len(names) == 0 {
		names = order
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one chat provider is required")
	}
	opts := ai.CompleteOptions{
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}
	entries := make([]ai.ChatterEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, ai.ChatterEntry{
			Name:    name,
			Chatter: ai.NewChatter(providers[name], cfg.AI.ChatModel, opts),
		})
	}
	if len(entries) == 1 {
		return entries[0].Chatter, nil
	}
	return ai.NewGroupChatter(entries), nil
}

// buildEmbedder returns nil when no provider can embed. Serving treats
// that as retrieval disabled, the embed stage treats it as fatal.
func buildEmbedder(cfg *config.Config, providers map[string]ai.IProvider, order []string, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	names := cfg.AI.EmbedProviders
	if len(names) == 0 {
		names = order
	}
	if len(names) == 0 {
		return nil
	}
	entries := make([]ai.EmbedderEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, ai.EmbedderEntry{
			Name:     name,
			Embedder: ai.NewEmbedder(providers[name], cfg.AI.EmbedModel),
		})
	}
	var embedder ai.IEmbedder
	if len(entries) == 1 {
		embedder = entries[0].Embedder
	} else {
		embedder = ai.NewGroupEmbedder(entries)
	}
	if cacheRepo != nil {
		embedder = embedcache.WrapDB(embedder, cacheRepo)
	}
	return embedcache.WrapLRU(embedder, cfg.AI.Cache.LRUSize, time.Duration(cfg.AI.Cache.LRUTTLMinutes)*time.Minute)
}

func buildArtifactStores(cfg *config.Config) (filestore.Store, filestore.Store, error) {
	processed, err := filestore.NewLocal(cfg.Data.ProcessedDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init processed store: %w", err)
	}
	embeds, err := filestore.NewLocal(cfg.Data.EmbeddingsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init embeddings store: %w", err)
	}
	if cfg.Mirror == nil {
		return processed, embeds, nil
	}
	secondary, err := filestore.New(*cfg.Mirror)
	if err != nil {
		return nil, nil, fmt.Errorf("init mirror store: %w", err)
	}
	return filestore.NewMirror(processed, secondary), filestore.NewMirror(embeds, secondary), nil
}
