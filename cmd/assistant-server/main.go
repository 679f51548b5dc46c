// cmd/assistant-server/main.go
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

	"fulfillment-assistant/internal/assistant/audit"
	"fulfillment-assistant/internal/assistant/fulfill"
	"fulfillment-assistant/internal/assistant/notify"
	"fulfillment-assistant/internal/assistant/orchestrate"
	"fulfillment-assistant/internal/assistant/resolve"
	commonaws "fulfillment-assistant/internal/common/aws"
	"fulfillment-assistant/internal/common/config"
	"fulfillment-assistant/internal/common/database"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/observability"
	"fulfillment-assistant/internal/llm"
	"fulfillment-assistant/internal/server"
	"fulfillment-assistant/internal/store"
	"fulfillment-assistant/internal/uniware"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("assistant-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS clients ---
	s3Client, err := commonaws.NewS3Client(ctx, cfg.AWS.Region, cfg.AWS.DocumentBucket)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}
	var snsClient *commonaws.SNSClient
	if cfg.AWS.SNSTopicARN != "" {
		snsClient, err = commonaws.NewSNSClient(ctx, cfg.AWS.Region, cfg.AWS.SNSTopicARN)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
	}
	var sesClient *commonaws.SESClient
	if cfg.AWS.SESSender != "" {
		sesClient, err = commonaws.NewSESClient(ctx, cfg.AWS.Region, cfg.AWS.SESSender)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
	}
	zapLog.Info("AWS clients initialized")

	// --- Wire the assistant ---
	uniwareClient := uniware.NewClient(cfg.Uniware)
	modelCaller := llm.NewHTTPClient(cfg.Model)
	sessions := store.NewSessionStore(redis)
	archive := store.NewArchiveStore(pg)

	resolver := resolve.NewHandler(uniwareClient, sessions,
		resolve.Config{ExportResultCap: cfg.Assistant.ExportResultCap}, log)

	executor := fulfill.NewHandler(uniwareClient, s3Client,
		fulfill.Config{Concurrency: cfg.Assistant.FulfillConcurrency}, log)

	orchestrator := orchestrate.NewHandler(
		modelCaller, resolver, executor, uniwareClient, sessions, archive,
		orchestrate.Config{HistoryKeep: cfg.Assistant.HistoryKeep}, log,
	).
		WithAuditor(audit.NewIndexer(esClient, cfg.Database.Elasticsearch.AuditIndex, log)).
		WithNotifier(notify.NewNotifier(snsClient, sesClient, log))

	chatHandler := server.NewChatHandler(orchestrator, sessions, obs, log)
	router := server.NewRouter(chatHandler, cfg.Server, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
