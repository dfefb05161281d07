package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before a task is dropped.
	DefaultMaxRetries = 3

	// MaxWarmupItems bounds the size of one warm-up task.
	MaxWarmupItems = 500
)

var (
	// ErrNoWarmupItems is returned when a warm-up request has no valid items.
	ErrNoWarmupItems = errors.New("warm-up requires at least one item")

	// ErrTooManyWarmupItems is returned when a warm-up request exceeds MaxWarmupItems.
	ErrTooManyWarmupItems = fmt.Errorf("warm-up accepts at most %d items", MaxWarmupItems)

	// ErrPosterNotMirrored is returned when no mirrored poster exists for a movie.
	ErrPosterNotMirrored = errors.New("poster not mirrored")
)

// PosterObjectKey returns the storage key of a mirrored w500 poster.
func PosterObjectKey(tmdbID int) string {
	return "posters/" + strconv.Itoa(tmdbID) + "/w500.jpg"
}

// ImageFetcher downloads a remote image.
type ImageFetcher interface {
	// Fetch returns the image body and its content type. The caller closes the body.
	Fetch(ctx context.Context, url string) (io.ReadCloser, string, error)
}

// WarmupService schedules cache warm-up work for the worker.
type WarmupService interface {
	// Schedule publishes a warm-up task for items.
	Schedule(ctx context.Context, items []model.CatalogItem) (*repository.WarmupTask, error)
}

type warmupService struct {
	queue repository.MessageQueue
}

// NewWarmupService creates a new WarmupService instance.
func NewWarmupService(queue repository.MessageQueue) WarmupService {
	return &warmupService{queue: queue}
}

func (s *warmupService) Schedule(ctx context.Context, items []model.CatalogItem) (*repository.WarmupTask, error) {
	task := repository.WarmupTask{TaskID: uuid.New()}
	for _, item := range items {
		if item.ID <= 0 || item.Title == "" {
			continue
		}
		task.Items = append(task.Items, repository.WarmupItem{ID: item.ID, Title: item.Title})
	}
	if len(task.Items) == 0 {
		return nil, ErrNoWarmupItems
	}
	if len(task.Items) > MaxWarmupItems {
		return nil, ErrTooManyWarmupItems
	}

	if err := s.queue.PublishWarmupTask(ctx, task); err != nil {
		return nil, fmt.Errorf("publish warm-up task: %w", err)
	}
	return &task, nil
}

// PosterService mirrors posters into object storage and serves them back.
type PosterService interface {
	// Mirror copies the poster at sourceURL to storage unless already present.
	// Reports whether an upload happened.
	Mirror(ctx context.Context, tmdbID int, sourceURL string) (bool, error)

	// PosterURL returns a presigned download URL for a mirrored poster.
	// Returns ErrPosterNotMirrored when it has not been mirrored.
	PosterURL(ctx context.Context, tmdbID int) (string, error)
}

type posterService struct {
	storage repository.ObjectStorage
	fetcher ImageFetcher

	urlExpiry time.Duration
}

// NewPosterService creates a new PosterService instance.
// fetcher may be nil when the service only serves posters.
func NewPosterService(storage repository.ObjectStorage, fetcher ImageFetcher, urlExpiry time.Duration) PosterService {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &posterService{
		storage:   storage,
		fetcher:   fetcher,
		urlExpiry: urlExpiry,
	}
}

func (s *posterService) Mirror(ctx context.Context, tmdbID int, sourceURL string) (bool, error) {
	key := PosterObjectKey(tmdbID)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		metrics.PostersMirroredTotal.WithLabelValues(metrics.PosterError).Inc()
		return false, fmt.Errorf("check poster %s: %w", key, err)
	}
	if exists {
		metrics.PostersMirroredTotal.WithLabelValues(metrics.PosterExists).Inc()
		return false, nil
	}
	if s.fetcher == nil {
		return false, errors.New("poster fetcher not configured")
	}

	body, contentType, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		metrics.PostersMirroredTotal.WithLabelValues(metrics.PosterError).Inc()
		return false, fmt.Errorf("fetch poster %d: %w", tmdbID, err)
	}
	defer func() { _ = body.Close() }()

	if contentType == "" {
		contentType = "image/jpeg"
	}
	if err := s.storage.Upload(ctx, key, body, contentType); err != nil {
		metrics.PostersMirroredTotal.WithLabelValues(metrics.PosterError).Inc()
		return false, fmt.Errorf("upload poster %s: %w", key, err)
	}

	metrics.PostersMirroredTotal.WithLabelValues(metrics.PosterUploaded).Inc()
	return true, nil
}

func (s *posterService) PosterURL(ctx context.Context, tmdbID int) (string, error) {
	if tmdbID <= 0 {
		return "", model.ErrInvalidMovieID
	}
	key := PosterObjectKey(tmdbID)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check poster %s: %w", key, err)
	}
	if !exists {
		return "", ErrPosterNotMirrored
	}

	return s.storage.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
}

// WarmupProcessorConfig holds configuration for WarmupProcessor.
type WarmupProcessorConfig struct {
	// MaxRetries is the number of attempts after which a task is dropped.
	MaxRetries int
	// MirrorPosters enables copying matched posters into storage.
	MirrorPosters bool
}

// DefaultWarmupProcessorConfig returns the default configuration.
func DefaultWarmupProcessorConfig() WarmupProcessorConfig {
	return WarmupProcessorConfig{
		MaxRetries:    DefaultMaxRetries,
		MirrorPosters: true,
	}
}

// WarmupProcessor handles warm-up tasks in the worker.
type WarmupProcessor interface {
	// ProcessTask enriches the task's items, filling the shared cache, and
	// mirrors matched posters.
	// Returns nil on success or permanent failure (max retries exceeded).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.WarmupTask) error
}

type warmupProcessor struct {
	enrichment EnrichmentService
	posters    PosterService

	maxRetries    int
	mirrorPosters bool
}

// NewWarmupProcessor creates a new WarmupProcessor instance.
func NewWarmupProcessor(enrichment EnrichmentService, posters PosterService, cfg WarmupProcessorConfig) WarmupProcessor {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &warmupProcessor{
		enrichment:    enrichment,
		posters:       posters,
		maxRetries:    cfg.MaxRetries,
		mirrorPosters: cfg.MirrorPosters && posters != nil,
	}
}

func (p *warmupProcessor) ProcessTask(ctx context.Context, task repository.WarmupTask) error {
	if task.RetryCount >= p.maxRetries {
		slog.Error("dropping warm-up task after max retries",
			"task_id", task.TaskID,
			"retry_count", task.RetryCount,
			"items", len(task.Items),
		)
		metrics.WarmupTasksTotal.WithLabelValues(metrics.WarmupDropped).Inc()
		return nil
	}

	items := make([]model.CatalogItem, 0, len(task.Items))
	for _, it := range task.Items {
		items = append(items, model.CatalogItem{ID: it.ID, Title: it.Title})
	}

	enriched := p.enrichment.EnrichBatch(ctx, items, 0)

	if p.mirrorPosters {
		if err := p.mirror(ctx, enriched); err != nil {
			metrics.WarmupTasksTotal.WithLabelValues(metrics.WarmupRetried).Inc()
			return err
		}
	}

	metrics.WarmupTasksTotal.WithLabelValues(metrics.WarmupCompleted).Inc()
	return nil
}

// mirror copies every matched poster, continuing past failures.
func (p *warmupProcessor) mirror(ctx context.Context, enriched []model.EnrichedItem) error {
	var errs []error
	seen := make(map[int]struct{})
	for _, item := range enriched {
		if !item.IsEnriched() || item.PosterURL == nil {
			continue
		}
		if _, dup := seen[item.TMDBID]; dup {
			continue
		}
		seen[item.TMDBID] = struct{}{}

		if _, err := p.posters.Mirror(ctx, item.TMDBID, *item.PosterURL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
