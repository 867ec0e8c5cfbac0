package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/ai/openai"
	"github.com/spacebio/backend/internal/answer"
	"github.com/spacebio/backend/internal/api"
	"github.com/spacebio/backend/internal/api/handlers"
	rediscache "github.com/spacebio/backend/internal/cache/redis"
	"github.com/spacebio/backend/internal/embedjob"
	"github.com/spacebio/backend/internal/generation"
	"github.com/spacebio/backend/internal/ingestion"
	"github.com/spacebio/backend/internal/insights"
	"github.com/spacebio/backend/internal/kg/neo4j"
	"github.com/spacebio/backend/internal/metrics"
	"github.com/spacebio/backend/internal/middleware/ratelimit"
	"github.com/spacebio/backend/internal/middleware/security"
	"github.com/spacebio/backend/internal/middleware/validation"
	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/internal/storage/sqlite"
	"github.com/spacebio/backend/internal/vector/milvus"
	"github.com/spacebio/backend/pkg/config"
	appLogger "github.com/spacebio/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Space Bioscience Research Explorer API")

	if err := cfg.RequireCredential(); err != nil {
		appLogger.Fatal("Missing credential", zap.Error(err))
	}

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	geminiClient, err := gemini.NewClient(
		cfg.Gemini.APIKey,
		cfg.Gemini.BaseURL,
		cfg.Gemini.EmbeddingModel,
		cfg.Gemini.EmbeddingDim,
		cfg.Gemini.TimeoutSec,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Gemini client", zap.Error(err))
	}

	providers := map[string]generation.Provider{
		"gemini": geminiClient,
	}
	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey != "" {
		providers["openai"] = openai.NewClient(cfg.OpenAI.APIKey)
	}
	models := generation.ParseModelRefs(cfg.Gemini.Models)

	var cache *rediscache.Client
	if cfg.Redis.Enabled {
		cache, err = rediscache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache", zap.Error(err))
		} else {
			defer cache.Close()
		}
	}

	var mirror *neo4j.Client
	if cfg.Neo4j.Enabled {
		mirror, err = neo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			appLogger.Warn("Neo4j unavailable, running without graph mirror", zap.Error(err))
		} else {
			defer mirror.Close(context.Background())
		}
	}

	var embedCache retriever.EmbeddingCache
	var answerCache answer.AnswerCache
	if cache != nil {
		embedCache = cache
		answerCache = cache
	}
	pipeline := retriever.New(geminiClient, milvusClient, sqliteClient, embedCache)

	generator := answer.NewGenerator(pipeline, providers, models, sqliteClient, answerCache, answer.Config{
		RetrievalLimit: cfg.Retrieval.AnswerLimit,
		SnippetLen:     cfg.Retrieval.AnswerSnippet,
		ContextBudget:  cfg.Retrieval.ContextBudget,
	})

	analyzer := insights.NewAnalyzer(providers, models)
	loader := ingestion.NewLoader(sqliteClient)
	job := embedjob.New(sqliteClient, geminiClient, milvusClient, embedjob.Config{
		ChunkSize: cfg.EmbedJob.ChunkSize,
		Delay:     time.Duration(cfg.EmbedJob.DelayMS) * time.Millisecond,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.Headers(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	var mirrorIface handlers.GraphMirror
	var mirrorPing handlers.MirrorPinger
	if mirror != nil {
		mirrorIface = mirror
		mirrorPing = mirror
	}
	var invalidator handlers.AnswerInvalidator
	if cache != nil {
		invalidator = cache
	}

	api.Register(app, api.Handlers{
		Ask:          handlers.NewAskHandler(generator, sqliteClient),
		Chat:         handlers.NewChatHandler(providers, models),
		Analyze:      handlers.NewAnalyzeHandler(analyzer),
		Search:       handlers.NewSearchHandler(pipeline, cfg.Retrieval.SearchLimit, cfg.Retrieval.SearchSnippet),
		Graph:        handlers.NewGraphHandler(pipeline, sqliteClient, mirrorIface),
		Analytics:    handlers.NewAnalyticsHandler(sqliteClient),
		Publications: handlers.NewPublicationsHandler(loader, sqliteClient),
		Admin:        handlers.NewAdminHandler(job, invalidator),
		WS:           handlers.NewWebSocketHandler(generator),
		Ready:        handlers.Readiness(sqliteClient, mirrorPing),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
