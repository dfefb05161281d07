package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

// RateMovieInput contains the input parameters for rating a movie.
type RateMovieInput struct {
	UserID  uuid.UUID
	MovieID int
	Rating  int
	Review  string
}

// RateMovieOutput contains the stored record and the profile's updated stats.
type RateMovieOutput struct {
	Record model.RatingRecord
	Stats  model.RatingStats
}

// RatingService manages a signed-in user's ratings.
type RatingService interface {
	// RateMovie creates or overwrites the user's rating of a movie.
	RateMovie(ctx context.Context, input RateMovieInput) (*RateMovieOutput, error)

	// ListRatings returns the user's ratings, newest first.
	ListRatings(ctx context.Context, userID uuid.UUID) ([]model.RatingRecord, model.RatingStats, error)
}

type ratingService struct {
	profiles repository.ProfileRepository
	resolver *MovieResolver
	clock    clock.Clock
}

// NewRatingService creates a new RatingService instance.
func NewRatingService(profiles repository.ProfileRepository, resolver *MovieResolver, clk clock.Clock) RatingService {
	if clk == nil {
		clk = clock.New()
	}
	return &ratingService{
		profiles: profiles,
		resolver: resolver,
		clock:    clk,
	}
}

func (s *ratingService) RateMovie(ctx context.Context, input RateMovieInput) (*RateMovieOutput, error) {
	if input.UserID == uuid.Nil {
		return nil, model.ErrInvalidUserID
	}
	if err := model.ValidateRating(input.MovieID, input.Rating); err != nil {
		return nil, err
	}

	title, poster := s.resolver.Resolve(ctx, input.MovieID)
	rec, err := model.NewRatingRecord(input.MovieID, input.Rating, input.Review, title, poster, s.clock.Now())
	if err != nil {
		return nil, err
	}

	stats, err := s.profiles.MergeRatings(ctx, input.UserID, model.Ratings{rec.MovieID: *rec})
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}

	return &RateMovieOutput{Record: *rec, Stats: stats}, nil
}

func (s *ratingService) ListRatings(ctx context.Context, userID uuid.UUID) ([]model.RatingRecord, model.RatingStats, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, model.RatingStats{}, err
	}
	return profile.Ratings.Sorted(), profile.Ratings.Stats(), nil
}
