package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/config"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/cache"
	"github.com/hszk-dev/movierec/internal/infrastructure/queue"
	"github.com/hszk-dev/movierec/internal/infrastructure/storage"
	"github.com/hszk-dev/movierec/internal/infrastructure/tmdb"
	"github.com/hszk-dev/movierec/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Warm-up is only useful when the cache is shared with the API.
	if cfg.Enrichment.CacheBackend != config.CacheBackendRedis {
		logger.Warn("CACHE_BACKEND is not redis, warmed entries stay local to the worker")
	}

	// Initialize infrastructure clients
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Enrichment.CacheBackend == config.CacheBackendRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = cache.NewRedisStore(redisClient)
		logger.Info("connected to Redis")
	}

	var posters usecase.PosterService
	if cfg.Worker.MirrorPosters {
		storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:     cfg.MinIO.Endpoint,
			AccessKey:    cfg.MinIO.AccessKey,
			SecretKey:    cfg.MinIO.SecretKey,
			Bucket:       cfg.MinIO.Bucket,
			UseSSL:       cfg.MinIO.UseSSL,
			CreateBucket: cfg.MinIO.CreateBucket,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		fetcher := tmdb.NewImageFetcher(&http.Client{Timeout: cfg.TMDB.Timeout})
		posters = usecase.NewPosterService(storageClient, fetcher, cfg.MinIO.PresignExpiry)
		logger.Info("connected to MinIO", slog.String("bucket", storageClient.Bucket()))
	}

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	var provider repository.MetadataProvider = tmdb.Unavailable{}
	if cfg.TMDB.Enabled() {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL,
			tmdb.WithHTTPClient(&http.Client{Timeout: cfg.TMDB.Timeout}),
			tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond, int(cfg.TMDB.RequestsPerSecond)),
			tmdb.WithLanguage(cfg.TMDB.Language),
		)
		if err != nil {
			return fmt.Errorf("failed to create TMDB client: %w", err)
		}
		provider = client
	} else {
		logger.Warn("TMDB_API_KEY not set, warm-up tasks will only produce fallback data")
	}

	// Initialize services
	clk := clock.New()
	metadataSvc := usecase.NewMetadataService(provider, cache.NewTTLCache(store, clk, cfg.Enrichment.CacheTTL))
	enrichmentSvc := usecase.NewEnrichmentService(
		metadataSvc,
		tmdb.NewImageURLBuilder(cfg.TMDB.ImageBaseURL),
		clk,
		usecase.EnrichmentServiceConfig{
			BatchSize:  cfg.Enrichment.BatchSize,
			BatchPause: cfg.Enrichment.BatchPause,
		},
	)
	processor := usecase.NewWarmupProcessor(enrichmentSvc, posters, usecase.WarmupProcessorConfig{
		MaxRetries:    cfg.Worker.MaxRetries,
		MirrorPosters: cfg.Worker.MirrorPosters,
	})

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming warm-up tasks")
		err := queueClient.ConsumeWarmupTasks(ctx, func(task repository.WarmupTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("task_id", task.TaskID.String()),
				slog.Int("items", len(task.Items)),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := processor.ProcessTask(ctx, task); err != nil {
				logger.Error("task processing failed",
					slog.String("task_id", task.TaskID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("task_id", task.TaskID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming new messages
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
