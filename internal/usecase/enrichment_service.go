package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

const (
	// DefaultBatchSize is the number of items enriched concurrently per chunk.
	DefaultBatchSize = 5

	// DefaultBatchPause is the pause between consecutive chunks.
	DefaultBatchPause = 100 * time.Millisecond
)

// FallbackReason explains why an item carries neutral enrichment data.
type FallbackReason string

const (
	FallbackNone               FallbackReason = ""
	FallbackNoMatch            FallbackReason = "no_match"
	FallbackLookupFailed       FallbackReason = "lookup_failed"
	FallbackDetailsUnavailable FallbackReason = "details_unavailable"
)

// Enrichment is the result of enriching one catalog item.
type Enrichment struct {
	Item     model.EnrichedItem
	Fallback FallbackReason
}

// ImageURLs builds absolute artwork URLs from provider file paths.
type ImageURLs interface {
	Poster(path string) *string
	Backdrop(path string) *string
}

// EnrichmentServiceConfig holds configuration for EnrichmentService.
type EnrichmentServiceConfig struct {
	// BatchSize is the default chunk size for EnrichBatch.
	BatchSize int
	// BatchPause is the pause between chunks.
	BatchPause time.Duration
}

// DefaultEnrichmentServiceConfig returns the default configuration.
func DefaultEnrichmentServiceConfig() EnrichmentServiceConfig {
	return EnrichmentServiceConfig{
		BatchSize:  DefaultBatchSize,
		BatchPause: DefaultBatchPause,
	}
}

// EnrichmentService merges external metadata into catalog items.
// Both operations are total: failures degrade to neutral data.
type EnrichmentService interface {
	// Enrich returns item merged with its best external match.
	Enrich(ctx context.Context, item model.CatalogItem) Enrichment

	// EnrichBatch enriches items in chunks of batchSize, in input order.
	// batchSize < 1 uses the configured default.
	EnrichBatch(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem
}

type enrichmentService struct {
	metadata MetadataService
	images   ImageURLs
	clock    clock.Clock

	batchSize  int
	batchPause time.Duration
}

// NewEnrichmentService creates a new EnrichmentService instance.
func NewEnrichmentService(
	metadata MetadataService,
	images ImageURLs,
	clk clock.Clock,
	cfg EnrichmentServiceConfig,
) EnrichmentService {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	if clk == nil {
		clk = clock.New()
	}
	return &enrichmentService{
		metadata:   metadata,
		images:     images,
		clock:      clk,
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
	}
}

// SelectBestMatch picks the candidate released in year when year > 0, otherwise
// the first candidate. Returns nil when there are no candidates.
func SelectBestMatch(results []repository.SearchCandidate, year int) *repository.SearchCandidate {
	if len(results) == 0 {
		return nil
	}
	if year > 0 {
		for i := range results {
			if model.ParseReleaseYear(results[i].ReleaseDate) == year {
				return &results[i]
			}
		}
	}
	return &results[0]
}

func (s *enrichmentService) Enrich(ctx context.Context, item model.CatalogItem) Enrichment {
	result := s.enrich(ctx, item)

	label := string(result.Fallback)
	if result.Fallback == FallbackNone {
		label = "enriched"
	}
	metrics.EnrichmentsTotal.WithLabelValues(label).Inc()

	return result
}

func (s *enrichmentService) enrich(ctx context.Context, item model.CatalogItem) Enrichment {
	year, _ := model.ExtractYear(item.Title)

	found, err := s.metadata.SearchByTitle(ctx, item.Title, year)
	if err != nil {
		slog.Warn("enrichment lookup failed",
			"movie_id", item.ID,
			"title", item.Title,
			"error", err,
		)
		return Enrichment{Item: model.NewFallbackItem(item), Fallback: FallbackLookupFailed}
	}

	best := SelectBestMatch(found.Results, year)
	if best == nil {
		return Enrichment{Item: model.NewFallbackItem(item), Fallback: FallbackNoMatch}
	}

	enriched := model.EnrichedItem{
		CatalogItem:    item,
		TMDBID:         best.ID,
		PosterURL:      s.images.Poster(best.PosterPath),
		BackdropURL:    s.images.Backdrop(best.BackdropPath),
		Overview:       best.Overview,
		ExternalRating: best.VoteAverage,
		VoteCount:      best.VoteCount,
		ReleaseDate:    best.ReleaseDate,
		Genres:         []string{},
		Cast:           []model.CastMember{},
	}

	details := s.metadata.FetchDetails(ctx, best.ID)
	if details == nil {
		return Enrichment{Item: enriched, Fallback: FallbackDetailsUnavailable}
	}
	applyDetails(&enriched, details)

	return Enrichment{Item: enriched}
}

// applyDetails copies genres, top-billed cast, director, runtime and trailer.
func applyDetails(item *model.EnrichedItem, details *repository.MovieDetails) {
	for _, g := range details.Genres {
		item.Genres = append(item.Genres, g.Name)
	}

	for _, c := range details.Credits.Cast {
		if len(item.Cast) == model.MaxCastMembers {
			break
		}
		item.Cast = append(item.Cast, model.CastMember{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			ProfilePath: c.ProfilePath,
			Order:       c.Order,
		})
	}

	for _, c := range details.Credits.Crew {
		if c.Job == "Director" {
			item.Director = c.Name
			break
		}
	}

	item.RuntimeMinutes = details.Runtime

	for _, v := range details.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			key := v.Key
			item.TrailerKey = &key
			break
		}
	}
}

func (s *enrichmentService) EnrichBatch(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem {
	if batchSize < 1 {
		batchSize = s.batchSize
	}

	out := make([]model.EnrichedItem, len(items))
	for start := 0; start < len(items); start += batchSize {
		if start > 0 && s.batchPause > 0 {
			if err := s.clock.Sleep(ctx, s.batchPause); err != nil {
				// Cancelled between chunks: the rest degrade without lookups.
				for i := start; i < len(items); i++ {
					out[i] = model.NewFallbackItem(items[i])
				}
				return out
			}
		}

		end := min(start+batchSize, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out[i] = s.Enrich(ctx, items[i]).Item
				return nil
			})
		}
		_ = g.Wait() // Enrich never fails
	}
	return out
}

// CatalogService serves enriched pages of the external catalog.
type CatalogService interface {
	// ListEnriched fetches up to limit catalog items and enriches them.
	ListEnriched(ctx context.Context, limit int) ([]model.EnrichedItem, error)
}

type catalogService struct {
	catalog    repository.Catalog
	enrichment EnrichmentService
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(catalog repository.Catalog, enrichment EnrichmentService) CatalogService {
	return &catalogService{
		catalog:    catalog,
		enrichment: enrichment,
	}
}

func (s *catalogService) ListEnriched(ctx context.Context, limit int) ([]model.EnrichedItem, error) {
	items, err := s.catalog.ListMovies(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.enrichment.EnrichBatch(ctx, items, 0), nil
}
