package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

// MergeResult is the outcome of merging local ratings into a remote mapping.
type MergeResult struct {
	// Ratings is the merged mapping. Remote entries are never replaced.
	Ratings model.Ratings
	// Added holds the records created from local ratings, keyed by movie ID.
	Added model.Ratings
	// Stats is derived from Ratings.
	Stats model.RatingStats
	// Document is the sanitized document form of Ratings.
	Document map[string]any
	// Skipped lists local movie IDs ignored because their rating was out of range.
	Skipped []int
}

// MovieResolver looks up display data for a rated movie.
type MovieResolver struct {
	catalog repository.Catalog
}

// NewMovieResolver creates a MovieResolver backed by the catalog API.
func NewMovieResolver(catalog repository.Catalog) *MovieResolver {
	return &MovieResolver{catalog: catalog}
}

// Resolve returns the title and poster of movieID. Any failure yields the
// synthetic "Movie <id>" title and no poster.
func (r *MovieResolver) Resolve(ctx context.Context, movieID int) (string, *string) {
	if r == nil || r.catalog == nil {
		return model.SyntheticTitle(movieID), nil
	}

	movie, err := r.catalog.GetMovie(ctx, movieID)
	if err != nil {
		if !errors.Is(err, repository.ErrMovieNotFound) {
			slog.Warn("catalog lookup failed, using synthetic title",
				"movie_id", movieID,
				"error", err,
			)
		}
		return model.SyntheticTitle(movieID), nil
	}

	title := movie.Title
	if title == "" {
		title = model.SyntheticTitle(movieID)
	}
	var poster *string
	if movie.PosterURL != "" {
		p := movie.PosterURL
		poster = &p
	}
	return title, poster
}

// RatingMerger merges anonymous local ratings into a remote ratings mapping.
type RatingMerger struct {
	resolver *MovieResolver
	clock    clock.Clock
}

// NewRatingMerger creates a RatingMerger.
func NewRatingMerger(resolver *MovieResolver, clk clock.Clock) *RatingMerger {
	if clk == nil {
		clk = clock.New()
	}
	return &RatingMerger{resolver: resolver, clock: clk}
}

// MergeLocalRatings adds every local rating whose movie is absent from remote.
// Remote entries win; remote itself is not modified. Movies are resolved in
// ascending ID order.
func (m *RatingMerger) MergeLocalRatings(ctx context.Context, local model.LocalRatings, remote model.Ratings) MergeResult {
	merged := remote.Clone()
	added := model.Ratings{}
	var skipped []int

	ids := make([]int, 0, len(local))
	for id := range local {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	now := m.clock.Now()
	for _, movieID := range ids {
		if _, exists := merged[movieID]; exists {
			continue
		}

		rating := local[movieID]
		if err := model.ValidateRating(movieID, rating); err != nil {
			slog.Warn("skipping invalid local rating",
				"movie_id", movieID,
				"rating", rating,
				"error", err,
			)
			skipped = append(skipped, movieID)
			continue
		}

		title, poster := m.resolver.Resolve(ctx, movieID)
		rec, err := model.NewRatingRecord(movieID, rating, "", title, poster, now)
		if err != nil {
			skipped = append(skipped, movieID)
			continue
		}
		merged[movieID] = *rec
		added[movieID] = *rec
	}

	return MergeResult{
		Ratings:  merged,
		Added:    added,
		Stats:    merged.Stats(),
		Document: merged.Document(),
		Skipped:  skipped,
	}
}
