package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quillmont/coursechat/internal/config"
	"github.com/quillmont/coursechat/internal/embedding"
	"github.com/quillmont/coursechat/internal/httpapi"
	"github.com/quillmont/coursechat/internal/ingest"
	logpkg "github.com/quillmont/coursechat/internal/logger"
	"github.com/quillmont/coursechat/internal/orchestrator"
	"github.com/quillmont/coursechat/internal/provider"
	"github.com/quillmont/coursechat/internal/rag"
	"github.com/quillmont/coursechat/internal/session"
	"github.com/quillmont/coursechat/internal/store"
	"github.com/quillmont/coursechat/tools"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting coursechat",
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
		zap.String("model", cfg.Anthropic.Model),
	)

	embedder := embedding.New(embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	st, err := store.NewRedisStore(store.Config{
		Addrs:      cfg.Redis.Addrs,
		Password:   cfg.Redis.Password,
		KeyPrefix:  cfg.Redis.KeyPrefix,
		MaxResults: cfg.Search.MaxResults,
		VectorDims: cfg.Embedding.Dimensions,
		Embedder:   embedder,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to create store", zap.Error(err))
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Ping(ctx); err != nil {
		logger.Fatal("store not reachable", zap.Error(err))
	}
	if err := st.EnsureIndex(ctx); err != nil {
		logger.Fatal("failed to ensure chunk index", zap.Error(err))
	}

	if cfg.Ingest.DocsDir != "" {
		courses, chunks, err := ingest.LoadDirectory(
			ctx, cfg.Ingest.DocsDir, st, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)
		if err != nil {
			logger.Warn("document ingestion incomplete", zap.Error(err))
		}
		logger.Info("document ingestion done", zap.Int("courses_added", courses), zap.Int("chunks_added", chunks))
	}

	dispatcher, err := tools.NewDispatcher(logger,
		tools.NewSearchTool(st),
		tools.NewOutlineTool(st),
	)
	if err != nil {
		logger.Fatal("failed to register tools", zap.Error(err))
	}

	generator := orchestrator.New(provider.NewAnthropicClient(cfg.Anthropic.APIKey), orchestrator.Options{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
		Logger:      logger,
	})

	sessions := session.NewManager(cfg.Session.MaxHistory, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	system := rag.New(generator, dispatcher, sessions, st, logger)
	api := httpapi.NewServer(system, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
