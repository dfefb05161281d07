package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

// MetadataCache is the TTL-aware cache used for external lookups.
// *cache.TTLCache satisfies this interface.
type MetadataCache interface {
	// Get decodes the live value for key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) error
}

// MetadataService performs cached lookups against the external metadata provider.
type MetadataService interface {
	// LookupByTitle searches by title with any "(YYYY)" groups removed.
	// It never fails: on error it returns an empty result, which is not cached.
	LookupByTitle(ctx context.Context, title string, year int) *repository.SearchResult

	// SearchByTitle is LookupByTitle with the failure reported to the caller.
	SearchByTitle(ctx context.Context, title string, year int) (*repository.SearchResult, error)

	// FetchDetails returns details with credits and videos, or nil on failure.
	FetchDetails(ctx context.Context, externalID int) *repository.MovieDetails

	// Trending returns the movies trending over window ("day" or "week").
	// Failures yield an empty list, which is not cached.
	Trending(ctx context.Context, window string) []repository.SearchCandidate

	// Recommendations returns the provider's recommendations for externalID.
	// Failures yield an empty list, which is not cached.
	Recommendations(ctx context.Context, externalID int) []repository.SearchCandidate

	// ClearCache drops every cached lookup.
	ClearCache(ctx context.Context) error
}

type metadataService struct {
	provider repository.MetadataProvider
	cache    MetadataCache
	sfGroup  singleflight.Group
}

// NewMetadataService creates a MetadataService backed by provider and cache.
func NewMetadataService(provider repository.MetadataProvider, cache MetadataCache) MetadataService {
	return &metadataService{
		provider: provider,
		cache:    cache,
	}
}

// SearchCacheKey returns the cache key of a title search.
// An absent year is encoded as 0.
func SearchCacheKey(normalizedTitle string, year int) string {
	return "search_" + normalizedTitle + "_" + strconv.Itoa(year)
}

// DetailsCacheKey returns the cache key of a detail lookup.
func DetailsCacheKey(externalID int) string {
	return "details_" + strconv.Itoa(externalID)
}

// TrendingCacheKey returns the cache key of a trending list.
func TrendingCacheKey(window string) string {
	return "trending_" + window
}

// RecommendationsCacheKey returns the cache key of a recommendation list.
func RecommendationsCacheKey(externalID int) string {
	return "recommendations_" + strconv.Itoa(externalID)
}

func (s *metadataService) LookupByTitle(ctx context.Context, title string, year int) *repository.SearchResult {
	result, err := s.SearchByTitle(ctx, title, year)
	if err != nil {
		slog.Warn("metadata search failed",
			"title", title,
			"year", year,
			"error", err,
		)
		return &repository.SearchResult{Results: []repository.SearchCandidate{}}
	}
	return result
}

func (s *metadataService) SearchByTitle(ctx context.Context, title string, year int) (*repository.SearchResult, error) {
	if year < 0 {
		year = 0
	}
	query := model.StripYear(title)
	key := SearchCacheKey(query, year)

	result, err := s.coalesce(ctx, key, func(ctx context.Context) (any, error) {
		var cached repository.SearchResult
		if s.cacheGet(ctx, key, &cached) {
			if cached.Results == nil {
				cached.Results = []repository.SearchCandidate{}
			}
			return &cached, nil
		}

		fetched, err := s.provider.SearchMovie(ctx, query, year)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		if fetched.Results == nil {
			fetched.Results = []repository.SearchCandidate{}
		}

		s.cacheSet(ctx, key, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*repository.SearchResult), nil
}

func (s *metadataService) FetchDetails(ctx context.Context, externalID int) *repository.MovieDetails {
	details, err := s.movieDetails(ctx, externalID)
	if err != nil {
		slog.Warn("metadata details lookup failed",
			"external_id", externalID,
			"error", err,
		)
		return nil
	}
	return details
}

func (s *metadataService) movieDetails(ctx context.Context, externalID int) (*repository.MovieDetails, error) {
	key := DetailsCacheKey(externalID)

	result, err := s.coalesce(ctx, key, func(ctx context.Context) (any, error) {
		var cached repository.MovieDetails
		if s.cacheGet(ctx, key, &cached) {
			return &cached, nil
		}

		fetched, err := s.provider.MovieDetails(ctx, externalID)
		if err != nil {
			return nil, fmt.Errorf("details %d: %w", externalID, err)
		}

		s.cacheSet(ctx, key, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*repository.MovieDetails), nil
}

func (s *metadataService) Trending(ctx context.Context, window string) []repository.SearchCandidate {
	if window == "" {
		window = "day"
	}
	return s.candidateList(ctx, TrendingCacheKey(window), func(ctx context.Context) (*repository.SearchResult, error) {
		return s.provider.TrendingMovies(ctx, window)
	})
}

func (s *metadataService) Recommendations(ctx context.Context, externalID int) []repository.SearchCandidate {
	return s.candidateList(ctx, RecommendationsCacheKey(externalID), func(ctx context.Context) (*repository.SearchResult, error) {
		return s.provider.MovieRecommendations(ctx, externalID)
	})
}

// candidateList is the cache-aside path shared by the list lookups.
func (s *metadataService) candidateList(
	ctx context.Context,
	key string,
	fetch func(ctx context.Context) (*repository.SearchResult, error),
) []repository.SearchCandidate {
	result, err := s.coalesce(ctx, key, func(ctx context.Context) (any, error) {
		var cached repository.SearchResult
		if s.cacheGet(ctx, key, &cached) {
			return &cached, nil
		}

		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, fetched)
		return fetched, nil
	})
	if err != nil {
		slog.Warn("metadata list lookup failed",
			"key", key,
			"error", err,
		)
		return []repository.SearchCandidate{}
	}

	candidates := result.(*repository.SearchResult).Results
	if candidates == nil {
		candidates = []repository.SearchCandidate{}
	}
	return candidates
}

func (s *metadataService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear metadata cache: %w", err)
	}
	return nil
}

// coalesce runs fn once per key among concurrent callers. fn does not inherit
// the initiating caller's cancellation; each caller stops waiting when its own
// ctx ends.
func (s *metadataService) coalesce(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.sfGroup.DoChan(key, func() (any, error) {
		return fn(shared)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cacheGet reports a hit. Cache errors are logged and treated as misses.
func (s *metadataService) cacheGet(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		slog.Warn("cache get failed, falling back to provider",
			"key", key,
			"error", err,
		)
		return false
	}
	return hit
}

func (s *metadataService) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		slog.Warn("failed to cache metadata",
			"key", key,
			"error", err,
		)
	}
}
