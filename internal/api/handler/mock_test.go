package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/usecase"
)

// Mock services

type mockCatalogService struct {
	listEnrichedFn func(ctx context.Context, limit int) ([]model.EnrichedItem, error)
}

func (m *mockCatalogService) ListEnriched(ctx context.Context, limit int) ([]model.EnrichedItem, error) {
	if m.listEnrichedFn != nil {
		return m.listEnrichedFn(ctx, limit)
	}
	return nil, nil
}

type mockEnrichmentService struct {
	enrichBatchFn func(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem
}

func (m *mockEnrichmentService) Enrich(ctx context.Context, item model.CatalogItem) usecase.Enrichment {
	return usecase.Enrichment{Item: model.NewFallbackItem(item), Fallback: usecase.FallbackNoMatch}
}

func (m *mockEnrichmentService) EnrichBatch(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem {
	if m.enrichBatchFn != nil {
		return m.enrichBatchFn(ctx, items, batchSize)
	}
	out := make([]model.EnrichedItem, len(items))
	for i, item := range items {
		out[i] = model.NewFallbackItem(item)
	}
	return out
}

type mockWarmupService struct {
	scheduleFn func(ctx context.Context, items []model.CatalogItem) (*repository.WarmupTask, error)
}

func (m *mockWarmupService) Schedule(ctx context.Context, items []model.CatalogItem) (*repository.WarmupTask, error) {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, items)
	}
	task := &repository.WarmupTask{TaskID: uuid.New()}
	for _, item := range items {
		task.Items = append(task.Items, repository.WarmupItem{ID: item.ID, Title: item.Title})
	}
	return task, nil
}

type mockMetadataService struct {
	lookupFn          func(ctx context.Context, title string, year int) *repository.SearchResult
	trendingFn        func(ctx context.Context, window string) []repository.SearchCandidate
	recommendationsFn func(ctx context.Context, externalID int) []repository.SearchCandidate
	clearCacheFn      func(ctx context.Context) error
}

func (m *mockMetadataService) LookupByTitle(ctx context.Context, title string, year int) *repository.SearchResult {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, title, year)
	}
	return &repository.SearchResult{Results: []repository.SearchCandidate{}}
}

func (m *mockMetadataService) SearchByTitle(ctx context.Context, title string, year int) (*repository.SearchResult, error) {
	return m.LookupByTitle(ctx, title, year), nil
}

func (m *mockMetadataService) FetchDetails(ctx context.Context, externalID int) *repository.MovieDetails {
	return nil
}

func (m *mockMetadataService) Trending(ctx context.Context, window string) []repository.SearchCandidate {
	if m.trendingFn != nil {
		return m.trendingFn(ctx, window)
	}
	return []repository.SearchCandidate{}
}

func (m *mockMetadataService) Recommendations(ctx context.Context, externalID int) []repository.SearchCandidate {
	if m.recommendationsFn != nil {
		return m.recommendationsFn(ctx, externalID)
	}
	return []repository.SearchCandidate{}
}

func (m *mockMetadataService) ClearCache(ctx context.Context) error {
	if m.clearCacheFn != nil {
		return m.clearCacheFn(ctx)
	}
	return nil
}

type mockPosterService struct {
	posterURLFn func(ctx context.Context, tmdbID int) (string, error)
}

func (m *mockPosterService) Mirror(ctx context.Context, tmdbID int, sourceURL string) (bool, error) {
	return false, nil
}

func (m *mockPosterService) PosterURL(ctx context.Context, tmdbID int) (string, error) {
	if m.posterURLFn != nil {
		return m.posterURLFn(ctx, tmdbID)
	}
	return "", usecase.ErrPosterNotMirrored
}

type mockProfileService struct {
	createProfileFn     func(ctx context.Context, input usecase.CreateProfileInput) (*model.Profile, error)
	getProfileFn        func(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	addToListFn         func(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)
	removeFromListFn    func(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)
	updatePreferencesFn func(ctx context.Context, input usecase.UpdatePreferencesInput) (*model.Preferences, error)
}

func (m *mockProfileService) CreateProfile(ctx context.Context, input usecase.CreateProfileInput) (*model.Profile, error) {
	if m.createProfileFn != nil {
		return m.createProfileFn(ctx, input)
	}
	return model.NewProfile(input.UserID, input.Email, input.DisplayName)
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return model.NewProfile(userID, "", "")
}

func (m *mockProfileService) AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	if m.addToListFn != nil {
		return m.addToListFn(ctx, userID, list, movieID)
	}
	return []model.ListEntry{}, nil
}

func (m *mockProfileService) RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	if m.removeFromListFn != nil {
		return m.removeFromListFn(ctx, userID, list, movieID)
	}
	return []model.ListEntry{}, nil
}

func (m *mockProfileService) UpdatePreferences(ctx context.Context, input usecase.UpdatePreferencesInput) (*model.Preferences, error) {
	if m.updatePreferencesFn != nil {
		return m.updatePreferencesFn(ctx, input)
	}
	prefs := model.NewPreferences()
	return &prefs, nil
}

type mockRatingService struct {
	rateMovieFn   func(ctx context.Context, input usecase.RateMovieInput) (*usecase.RateMovieOutput, error)
	listRatingsFn func(ctx context.Context, userID uuid.UUID) ([]model.RatingRecord, model.RatingStats, error)
}

func (m *mockRatingService) RateMovie(ctx context.Context, input usecase.RateMovieInput) (*usecase.RateMovieOutput, error) {
	if m.rateMovieFn != nil {
		return m.rateMovieFn(ctx, input)
	}
	return nil, nil
}

func (m *mockRatingService) ListRatings(ctx context.Context, userID uuid.UUID) ([]model.RatingRecord, model.RatingStats, error) {
	if m.listRatingsFn != nil {
		return m.listRatingsFn(ctx, userID)
	}
	return nil, model.RatingStats{}, nil
}

type mockSessionService struct {
	signInFn     func(ctx context.Context, input usecase.SignInInput) (*usecase.SignInOutput, error)
	signOutFn    func(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
	getSessionFn func(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
}

func (m *mockSessionService) SignIn(ctx context.Context, input usecase.SignInInput) (*usecase.SignInOutput, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, input)
	}
	return nil, nil
}

func (m *mockSessionService) SignOut(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil, usecase.ErrSessionNotFound
}

func (m *mockSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, sessionID)
	}
	return nil, usecase.ErrSessionNotFound
}
