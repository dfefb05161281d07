package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

// CreateProfileInput contains the input parameters for creating a profile.
type CreateProfileInput struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// UpdatePreferencesInput contains the preference fields to replace.
// A nil FavoriteGenres leaves the stored genres unchanged.
type UpdatePreferencesInput struct {
	UserID         uuid.UUID
	FavoriteGenres []string
}

// ProfileService manages user profiles and their saved lists.
type ProfileService interface {
	// CreateProfile creates an empty profile.
	// Returns repository.ErrDuplicateProfile if one already exists.
	CreateProfile(ctx context.Context, input CreateProfileInput) (*model.Profile, error)

	// GetProfile returns the stored profile.
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)

	// AddToList saves movieID to the watchlist or favorites. Adding a movie
	// already on the list leaves it unchanged. Returns the resulting list.
	AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)

	// RemoveFromList drops movieID from the list. Removing an absent movie
	// is a no-op. Returns the resulting list.
	RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)

	// UpdatePreferences replaces the favorite genres and returns the stored
	// preferences.
	UpdatePreferences(ctx context.Context, input UpdatePreferencesInput) (*model.Preferences, error)
}

type profileService struct {
	profiles repository.ProfileRepository
	resolver *MovieResolver
	clock    clock.Clock
}

// NewProfileService creates a new ProfileService instance. List entries are
// titled through resolver.
func NewProfileService(profiles repository.ProfileRepository, resolver *MovieResolver, clk clock.Clock) ProfileService {
	if clk == nil {
		clk = clock.New()
	}
	return &profileService{
		profiles: profiles,
		resolver: resolver,
		clock:    clk,
	}
}

func (s *profileService) CreateProfile(ctx context.Context, input CreateProfileInput) (*model.Profile, error) {
	if input.UserID == uuid.Nil {
		input.UserID = uuid.New()
	}

	profile, err := model.NewProfile(input.UserID, input.Email, input.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if userID == uuid.Nil {
		return nil, model.ErrInvalidUserID
	}
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *profileService) AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	if err := validateListTarget(userID, list, movieID); err != nil {
		return nil, err
	}

	title, poster := s.resolver.Resolve(ctx, movieID)
	entry, err := model.NewListEntry(movieID, title, poster, s.clock.Now())
	if err != nil {
		return nil, err
	}

	entries, err := s.profiles.AddToList(ctx, userID, list, *entry)
	if err != nil {
		return nil, fmt.Errorf("add to %s: %w", list, err)
	}
	return entries, nil
}

func (s *profileService) RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	if err := validateListTarget(userID, list, movieID); err != nil {
		return nil, err
	}

	entries, err := s.profiles.RemoveFromList(ctx, userID, list, movieID)
	if err != nil {
		return nil, fmt.Errorf("remove from %s: %w", list, err)
	}
	return entries, nil
}

func (s *profileService) UpdatePreferences(ctx context.Context, input UpdatePreferencesInput) (*model.Preferences, error) {
	if input.UserID == uuid.Nil {
		return nil, model.ErrInvalidUserID
	}

	if input.FavoriteGenres != nil {
		genres, err := model.NormalizeGenres(input.FavoriteGenres)
		if err != nil {
			return nil, err
		}
		if err := s.profiles.UpdateFavoriteGenres(ctx, input.UserID, genres); err != nil {
			return nil, fmt.Errorf("update favorite genres: %w", err)
		}
	}

	profile, err := s.profiles.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &profile.Preferences, nil
}

func validateListTarget(userID uuid.UUID, list model.ListKind, movieID int) error {
	if userID == uuid.Nil {
		return model.ErrInvalidUserID
	}
	if !list.IsValid() {
		return model.ErrInvalidList
	}
	if movieID <= 0 {
		return model.ErrInvalidMovieID
	}
	return nil
}
