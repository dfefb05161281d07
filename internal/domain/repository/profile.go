package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/movierec/internal/domain/model"
)

// ProfileRepository defines the interface for the remote profile store.
// Rating writes are merges into the stored mapping, never replacements.
type ProfileRepository interface {
	// Create persists a new profile.
	// Returns ErrDuplicateProfile if a profile already exists for the user.
	Create(ctx context.Context, profile *model.Profile) error

	// GetByUserID retrieves a profile with its ratings and preferences.
	// Returns nil and ErrProfileNotFound if the profile does not exist.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)

	// MergeRatings merges patch into the stored ratings mapping, overwriting
	// the keys present in patch, and recomputes the rating stats.
	// Returns the stats after the write, or ErrProfileNotFound.
	MergeRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error)

	// AddMissingRatings merges patch into the stored ratings mapping, keeping
	// every key that is already stored, and recomputes the rating stats.
	// Returns the stats after the write, or ErrProfileNotFound.
	AddMissingRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error)

	// AddToList appends entry to the list unless the movie is already on it
	// and returns the stored list. Returns ErrProfileNotFound.
	AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, entry model.ListEntry) ([]model.ListEntry, error)

	// RemoveFromList removes movieID from the list and returns the stored list.
	// Removing an absent movie is not an error. Returns ErrProfileNotFound.
	RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)

	// UpdateFavoriteGenres replaces the stored favorite genres.
	// Returns ErrProfileNotFound.
	UpdateFavoriteGenres(ctx context.Context, userID uuid.UUID, genres []string) error
}
