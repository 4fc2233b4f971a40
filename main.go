package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contract-intel/api/handler"
	"contract-intel/api/router"
	"contract-intel/config"
	"contract-intel/job"
	"contract-intel/logic/analysis"
	"contract-intel/logic/chat"
	"contract-intel/logic/extract"
	"contract-intel/logic/ingestion"
	"contract-intel/logic/mapper"
	"contract-intel/logic/pipeline"
	"contract-intel/logic/rag"
	"contract-intel/pkg/logger"
	"contract-intel/service"
	"contract-intel/storage/blob"
	"contract-intel/storage/es"
	"contract-intel/storage/milvus"
	"contract-intel/storage/postgres"
	"contract-intel/vars"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", vars.GetEnv("CONFIG_PATH", "config.yaml"), "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config.load", "error", err)
		os.Exit(1)
	}
	log := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server.exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 1. 数据库
	db, err := postgres.InitDB(cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	repo := postgres.NewContractRepo(db)

	// 2. 模型，全局只创建一次
	chatModel, err := chat.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	embedder, err := chat.NewEmbedder(ctx, cfg.Embedding, log)
	if err != nil {
		return err
	}

	// 3. 存储
	files, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	milvusCli, err := milvus.Connect(ctx, cfg.Retrieval.MilvusAddr)
	if err != nil {
		return err
	}
	defer milvusCli.Close()
	vecIndexer, err := milvus.NewIndexer(ctx, milvusCli, embedder, cfg.Retrieval.Collection, log)
	if err != nil {
		return err
	}
	vecRetriever, err := milvus.NewRetriever(ctx, milvusCli, embedder, cfg.Retrieval.Collection, log)
	if err != nil {
		return err
	}
	esStore, err := es.NewStore(ctx, []string{cfg.Retrieval.ESAddr}, cfg.Retrieval.ESIndex, log)
	if err != nil {
		return err
	}
	retriever, err := rag.Select(cfg.Retrieval.Mode, vecRetriever, esStore, log)
	if err != nil {
		return err
	}

	// 4. 入库与分析
	splitter, err := ingestion.NewSemanticSplitter(ctx, embedder)
	if err != nil {
		return fmt.Errorf("create splitter: %w", err)
	}
	ingestor, err := ingestion.New(ctx, splitter, log,
		milvus.NewChunkStore(vecIndexer, milvusCli, cfg.Retrieval.Collection), esStore)
	if err != nil {
		return err
	}
	extractor := extract.New(chatModel, log, chat.CallOptions(cfg.LLM)...)
	pipe, err := pipeline.New(ctx, retriever, extractor,
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithLogger(log),
	)
	if err != nil {
		return err
	}
	runner := service.NewAnalysisRunner(repo, files, ingestor, pipe,
		mapper.New(repo, cfg.Pipeline.ShouldReplaceAlerts(), log), log)

	// 5. 后台任务
	queue := job.NewQueue(runner, log,
		job.WithWorkers(cfg.Queue.Workers),
		job.WithQueueSize(cfg.Queue.Size),
		job.WithRunTimeout(cfg.Queue.Timeout),
	)
	sweeper, err := job.StartCronJob(repo, cfg.Cron.AlertSweep, log)
	if err != nil {
		return err
	}

	// 6. HTTP
	svc := service.NewContractService(repo, files, ingestor, analysis.New(retriever, extractor, log), queue, log)
	gin.SetMode(gin.ReleaseMode)
	engine := router.New(handler.NewContractHandler(svc, cfg.Server.MaxUploadSize, log), log)
	engine.MaxMultipartMemory = cfg.Server.MaxUploadSize
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.start", "addr", srv.Addr, "retrieval", cfg.Retrieval.Mode, "llm", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown", "error", err)
	}
	<-sweeper.Stop().Done()
	queue.Shutdown(shutdownCtx)
	return nil
}
