package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

// mockMetadataProvider provides a configurable mock for MetadataProvider.
type mockMetadataProvider struct {
	mu                sync.Mutex
	searchCalls       int
	detailsCalls      int
	listCalls         int
	searchMovieFn     func(ctx context.Context, query string, year int) (*repository.SearchResult, error)
	detailsFn         func(ctx context.Context, id int) (*repository.MovieDetails, error)
	trendingFn        func(ctx context.Context, window string) (*repository.SearchResult, error)
	recommendationsFn func(ctx context.Context, id int) (*repository.SearchResult, error)
}

func (m *mockMetadataProvider) SearchMovie(ctx context.Context, query string, year int) (*repository.SearchResult, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if m.searchMovieFn != nil {
		return m.searchMovieFn(ctx, query, year)
	}
	return &repository.SearchResult{Results: []repository.SearchCandidate{}}, nil
}

func (m *mockMetadataProvider) MovieDetails(ctx context.Context, id int) (*repository.MovieDetails, error) {
	m.mu.Lock()
	m.detailsCalls++
	m.mu.Unlock()
	if m.detailsFn != nil {
		return m.detailsFn(ctx, id)
	}
	return &repository.MovieDetails{ID: id}, nil
}

func (m *mockMetadataProvider) TrendingMovies(ctx context.Context, window string) (*repository.SearchResult, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.trendingFn != nil {
		return m.trendingFn(ctx, window)
	}
	return &repository.SearchResult{Results: []repository.SearchCandidate{}}, nil
}

func (m *mockMetadataProvider) MovieRecommendations(ctx context.Context, id int) (*repository.SearchResult, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.recommendationsFn != nil {
		return m.recommendationsFn(ctx, id)
	}
	return &repository.SearchResult{Results: []repository.SearchCandidate{}}, nil
}

func (m *mockMetadataProvider) lists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *mockMetadataProvider) calls() (search, details int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls, m.detailsCalls
}

// mockCatalog provides a configurable mock for Catalog.
type mockCatalog struct {
	mu           sync.Mutex
	getCalls     []int
	getMovieFn   func(ctx context.Context, movieID int) (*repository.CatalogMovie, error)
	listMoviesFn func(ctx context.Context, limit int) ([]model.CatalogItem, error)
}

func (m *mockCatalog) GetMovie(ctx context.Context, movieID int) (*repository.CatalogMovie, error) {
	m.mu.Lock()
	m.getCalls = append(m.getCalls, movieID)
	m.mu.Unlock()
	if m.getMovieFn != nil {
		return m.getMovieFn(ctx, movieID)
	}
	return nil, repository.ErrMovieNotFound
}

func (m *mockCatalog) ListMovies(ctx context.Context, limit int) ([]model.CatalogItem, error) {
	if m.listMoviesFn != nil {
		return m.listMoviesFn(ctx, limit)
	}
	return nil, nil
}

// mockProfileRepository provides a configurable mock for ProfileRepository.
type mockProfileRepository struct {
	createFn               func(ctx context.Context, profile *model.Profile) error
	getByUserIDFn          func(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	mergeRatingsFn         func(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error)
	addMissingRatingsFn    func(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error)
	addToListFn            func(ctx context.Context, userID uuid.UUID, list model.ListKind, entry model.ListEntry) ([]model.ListEntry, error)
	removeFromListFn       func(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error)
	updateFavoriteGenresFn func(ctx context.Context, userID uuid.UUID, genres []string) error
}

func (m *mockProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}
	return nil, repository.ErrProfileNotFound
}

func (m *mockProfileRepository) MergeRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	if m.mergeRatingsFn != nil {
		return m.mergeRatingsFn(ctx, userID, patch)
	}
	return patch.Stats(), nil
}

func (m *mockProfileRepository) AddMissingRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	if m.addMissingRatingsFn != nil {
		return m.addMissingRatingsFn(ctx, userID, patch)
	}
	return patch.Stats(), nil
}

func (m *mockProfileRepository) AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, entry model.ListEntry) ([]model.ListEntry, error) {
	if m.addToListFn != nil {
		return m.addToListFn(ctx, userID, list, entry)
	}
	return []model.ListEntry{entry}, nil
}

func (m *mockProfileRepository) RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	if m.removeFromListFn != nil {
		return m.removeFromListFn(ctx, userID, list, movieID)
	}
	return []model.ListEntry{}, nil
}

func (m *mockProfileRepository) UpdateFavoriteGenres(ctx context.Context, userID uuid.UUID, genres []string) error {
	if m.updateFavoriteGenresFn != nil {
		return m.updateFavoriteGenresFn(ctx, userID, genres)
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	generatePresignedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn                       func(ctx context.Context, key string, reader io.Reader, contentType string) error
	existsFn                       func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedDownloadURLFn != nil {
		return m.generatePresignedDownloadURLFn(ctx, key, expiry)
	}
	return "http://example.com/download", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishWarmupTaskFn  func(ctx context.Context, task repository.WarmupTask) error
	consumeWarmupTasksFn func(ctx context.Context, handler func(task repository.WarmupTask) error) error
}

func (m *mockMessageQueue) PublishWarmupTask(ctx context.Context, task repository.WarmupTask) error {
	if m.publishWarmupTaskFn != nil {
		return m.publishWarmupTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeWarmupTasks(ctx context.Context, handler func(task repository.WarmupTask) error) error {
	if m.consumeWarmupTasksFn != nil {
		return m.consumeWarmupTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockImageFetcher provides a configurable mock for ImageFetcher.
type mockImageFetcher struct {
	fetchFn func(ctx context.Context, url string) (io.ReadCloser, string, error)
}

func (m *mockImageFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return io.NopCloser(strings.NewReader("jpeg")), "image/jpeg", nil
}

// stubImages builds deterministic artwork URLs.
type stubImages struct{}

func (stubImages) Poster(path string) *string {
	if path == "" {
		return nil
	}
	u := "https://img.test/w500" + path
	return &u
}

func (stubImages) Backdrop(path string) *string {
	if path == "" {
		return nil
	}
	u := "https://img.test/w1280" + path
	return &u
}

func strPtr(s string) *string { return &s }
