// Command embedjob runs the bulk embedding pipeline once and exits. The
// API's /admin/embed endpoint does the same thing in-process; this binary
// exists for cron and one-off backfills.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/ai/gemini"
	"github.com/spacebio/backend/internal/embedjob"
	"github.com/spacebio/backend/internal/metrics"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		appLogger.Info("Interrupt received, stopping after current publication")
		cancel()
	}()

	if err := milvusClient.EnsureCollection(ctx); err != nil {
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

	job := embedjob.New(sqliteClient, geminiClient, milvusClient, embedjob.Config{
		ChunkSize: cfg.EmbedJob.ChunkSize,
		Delay:     time.Duration(cfg.EmbedJob.DelayMS) * time.Millisecond,
	})

	run, err := job.Run(ctx)
	if err != nil {
		appLogger.Fatal("Embedding run failed", zap.Error(err))
	}

	appLogger.Info("Embedding run complete",
		zap.Int("success", run.SuccessCount),
		zap.Int("errors", run.ErrorCount),
		zap.Int("total", run.Total),
	)
}
