package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/movierec/internal/api/handler"
	"github.com/hszk-dev/movierec/internal/api/middleware"
	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/config"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/cache"
	"github.com/hszk-dev/movierec/internal/infrastructure/catalog"
	"github.com/hszk-dev/movierec/internal/infrastructure/postgres"
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

// handlers groups the HTTP handlers mounted by setupRouter.
type handlers struct {
	health   *handler.HealthHandler
	movies   *handler.MovieHandler
	metadata *handler.MetadataHandler
	posters  *handler.PosterHandler
	users    *handler.UserHandler
	sessions *handler.SessionHandler
}

func run() error {
	ctx := context.Background()

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

	// Initialize infrastructure clients
	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	if err := pgClient.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("connected to PostgreSQL")

	checks := map[string]handler.Pinger{
		"postgres": pgClient,
	}

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
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("connected to Redis")
	}

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
		CreateBucket:   cfg.MinIO.CreateBucket,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	checks["minio"] = storageClient
	logger.Info("connected to MinIO")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	checks["rabbitmq"] = handler.PingFunc(func(context.Context) error {
		if queueClient.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	})
	logger.Info("connected to RabbitMQ")

	catalogClient, err := catalog.New(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.Catalog.Timeout))
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	provider, err := newMetadataProvider(cfg.TMDB, logger)
	if err != nil {
		return err
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
	profileRepo := postgres.NewProfileRepository(pgClient.Pool())
	resolver := usecase.NewMovieResolver(catalogClient)
	merger := usecase.NewRatingMerger(resolver, clk)

	h := handlers{
		health: handler.NewHealthHandler(checks, func() handler.PoolStats {
			s := pgClient.Stats()
			return handler.PoolStats{
				TotalConns:    s.TotalConns,
				IdleConns:     s.IdleConns,
				AcquiredConns: s.AcquiredConns,
				MaxConns:      s.MaxConns,
			}
		}),
		movies: handler.NewMovieHandler(
			usecase.NewCatalogService(catalogClient, enrichmentSvc),
			enrichmentSvc,
			usecase.NewWarmupService(queueClient),
		),
		metadata: handler.NewMetadataHandler(metadataSvc),
		posters:  handler.NewPosterHandler(usecase.NewPosterService(storageClient, nil, cfg.MinIO.PresignExpiry)),
		users: handler.NewUserHandler(
			usecase.NewProfileService(profileRepo, resolver, clk),
			usecase.NewRatingService(profileRepo, resolver, clk),
		),
		sessions: handler.NewSessionHandler(usecase.NewSessionService(profileRepo, merger, clk)),
	}

	r := setupRouter(logger, h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("cache_backend", cfg.Enrichment.CacheBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newMetadataProvider returns the TMDB client, or a provider that fails every
// lookup when no API key is configured so enrichment degrades to fallbacks.
func newMetadataProvider(cfg config.TMDBConfig, logger *slog.Logger) (repository.MetadataProvider, error) {
	if !cfg.Enabled() {
		logger.Warn("TMDB_API_KEY not set, enrichment will return fallback data")
		return tmdb.Unavailable{}, nil
	}

	client, err := tmdb.New(cfg.APIKey, cfg.BaseURL,
		tmdb.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		tmdb.WithRateLimit(cfg.RequestsPerSecond, int(cfg.RequestsPerSecond)),
		tmdb.WithLanguage(cfg.Language),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create TMDB client: %w", err)
	}
	return client, nil
}

func setupRouter(logger *slog.Logger, h handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", h.health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/movies", h.movies.List)
		r.Post("/movies/enrich", h.movies.Enrich)
		r.Post("/catalog/warmup", h.movies.Warmup)

		r.Get("/metadata/search", h.metadata.Search)
		r.Get("/metadata/trending", h.metadata.Trending)
		r.Get("/metadata/movies/{tmdbId}/recommendations", h.metadata.Recommendations)
		r.Delete("/metadata/cache", h.metadata.ClearCache)

		r.Get("/posters/{tmdbId}", h.posters.Get)

		r.Post("/users", h.users.Create)
		r.Get("/users/{userID}", h.users.Get)
		r.Patch("/users/{userID}/preferences", h.users.UpdatePreferences)
		r.Get("/users/{userID}/ratings", h.users.ListRatings)
		r.Put("/users/{userID}/ratings/{movieID}", h.users.RateMovie)
		r.Put("/users/{userID}/{list:watchlist|favorites}/{movieID}", h.users.AddToList)
		r.Delete("/users/{userID}/{list:watchlist|favorites}/{movieID}", h.users.RemoveFromList)

		r.Post("/sessions", h.sessions.SignIn)
		r.Get("/sessions/{sessionID}", h.sessions.Get)
		r.Delete("/sessions/{sessionID}", h.sessions.SignOut)
	})

	return r
}
