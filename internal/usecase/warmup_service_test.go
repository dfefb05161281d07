package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

func TestWarmupService_Schedule(t *testing.T) {
	tests := []struct {
		name       string
		items      []model.CatalogItem
		publishErr error
		wantItems  int
		wantErr    error
		anyErr     bool
	}{
		{
			name:      "publishes valid items",
			items:     []model.CatalogItem{{ID: 1, Title: "Toy Story (1995)"}, {ID: 0, Title: "bad"}, {ID: 2}},
			wantItems: 1,
		},
		{
			name:    "no valid items",
			items:   []model.CatalogItem{{ID: -1, Title: "x"}},
			wantErr: ErrNoWarmupItems,
		},
		{
			name:    "too many items",
			items:   make501(),
			wantErr: ErrTooManyWarmupItems,
		},
		{
			name:       "publish failure",
			items:      []model.CatalogItem{{ID: 1, Title: "x"}},
			publishErr: errors.New("channel closed"),
			anyErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var published *repository.WarmupTask
			queue := &mockMessageQueue{
				publishWarmupTaskFn: func(ctx context.Context, task repository.WarmupTask) error {
					published = &task
					return tt.publishErr
				},
			}
			svc := NewWarmupService(queue)

			task, err := svc.Schedule(context.Background(), tt.items)

			if tt.wantErr != nil || tt.anyErr {
				if err == nil {
					t.Fatal("Schedule() expected error")
				}
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Errorf("error = %v, want %v", err, tt.wantErr)
					}
					if published != nil {
						t.Error("task published despite validation error")
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Schedule() error = %v", err)
			}
			if len(task.Items) != tt.wantItems || published == nil || published.TaskID != task.TaskID {
				t.Errorf("task = %+v, published = %+v", task, published)
			}
			if task.RetryCount != 0 {
				t.Errorf("RetryCount = %d", task.RetryCount)
			}
		})
	}
}

func make501() []model.CatalogItem {
	items := make([]model.CatalogItem, MaxWarmupItems+1)
	for i := range items {
		items[i] = model.CatalogItem{ID: i + 1, Title: "x"}
	}
	return items
}

func TestPosterObjectKey(t *testing.T) {
	if got := PosterObjectKey(862); got != "posters/862/w500.jpg" {
		t.Errorf("PosterObjectKey() = %q", got)
	}
}

func TestPosterService_Mirror(t *testing.T) {
	tests := []struct {
		name         string
		storage      *mockObjectStorage
		fetcher      *mockImageFetcher
		wantUploaded bool
		wantErr      bool
	}{
		{
			name: "uploads missing poster",
			storage: &mockObjectStorage{
				uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
					if key != "posters/862/w500.jpg" || contentType != "image/jpeg" {
						t.Errorf("Upload(%q, %q)", key, contentType)
					}
					body, _ := io.ReadAll(reader)
					if string(body) != "jpeg" {
						t.Errorf("body = %q", body)
					}
					return nil
				},
			},
			fetcher:      &mockImageFetcher{},
			wantUploaded: true,
		},
		{
			name: "skips existing poster",
			storage: &mockObjectStorage{
				existsFn: func(ctx context.Context, key string) (bool, error) { return true, nil },
				uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
					t.Error("Upload should not be called")
					return nil
				},
			},
			fetcher: &mockImageFetcher{},
		},
		{
			name: "defaults content type",
			storage: &mockObjectStorage{
				uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
					if contentType != "image/jpeg" {
						t.Errorf("contentType = %q", contentType)
					}
					return nil
				},
			},
			fetcher: &mockImageFetcher{
				fetchFn: func(ctx context.Context, url string) (io.ReadCloser, string, error) {
					return io.NopCloser(strings.NewReader("x")), "", nil
				},
			},
			wantUploaded: true,
		},
		{
			name: "exists check fails",
			storage: &mockObjectStorage{
				existsFn: func(ctx context.Context, key string) (bool, error) { return false, errors.New("timeout") },
			},
			fetcher: &mockImageFetcher{},
			wantErr: true,
		},
		{
			name:    "fetch fails",
			storage: &mockObjectStorage{},
			fetcher: &mockImageFetcher{
				fetchFn: func(ctx context.Context, url string) (io.ReadCloser, string, error) {
					return nil, "", errors.New("404")
				},
			},
			wantErr: true,
		},
		{
			name: "upload fails",
			storage: &mockObjectStorage{
				uploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) error {
					return errors.New("disk full")
				},
			},
			fetcher: &mockImageFetcher{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPosterService(tt.storage, tt.fetcher, time.Hour)

			uploaded, err := svc.Mirror(context.Background(), 862, "https://img.test/w500/a.jpg")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Mirror() error = %v, wantErr %v", err, tt.wantErr)
			}
			if uploaded != tt.wantUploaded {
				t.Errorf("uploaded = %v, want %v", uploaded, tt.wantUploaded)
			}
		})
	}
}

func TestPosterService_Mirror_NoFetcher(t *testing.T) {
	svc := NewPosterService(&mockObjectStorage{}, nil, 0)
	if _, err := svc.Mirror(context.Background(), 1, "u"); err == nil {
		t.Error("expected error without fetcher")
	}
}

func TestPosterService_PosterURL(t *testing.T) {
	t.Run("mirrored", func(t *testing.T) {
		svc := NewPosterService(&mockObjectStorage{
			existsFn: func(ctx context.Context, key string) (bool, error) { return true, nil },
			generatePresignedDownloadURLFn: func(ctx context.Context, key string, expiry time.Duration) (string, error) {
				if expiry != 2*time.Hour {
					t.Errorf("expiry = %v", expiry)
				}
				return "http://cdn/" + key, nil
			},
		}, nil, 2*time.Hour)

		got, err := svc.PosterURL(context.Background(), 862)
		if err != nil {
			t.Fatalf("PosterURL() error = %v", err)
		}
		if got != "http://cdn/posters/862/w500.jpg" {
			t.Errorf("PosterURL() = %q", got)
		}
	})

	t.Run("not mirrored", func(t *testing.T) {
		svc := NewPosterService(&mockObjectStorage{}, nil, time.Hour)
		if _, err := svc.PosterURL(context.Background(), 862); !errors.Is(err, ErrPosterNotMirrored) {
			t.Errorf("error = %v, want ErrPosterNotMirrored", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := NewPosterService(&mockObjectStorage{}, nil, time.Hour)
		if _, err := svc.PosterURL(context.Background(), 0); !errors.Is(err, model.ErrInvalidMovieID) {
			t.Errorf("error = %v, want ErrInvalidMovieID", err)
		}
	})
}

// mockEnrichmentService is a mock implementation of EnrichmentService for testing.
type mockEnrichmentService struct {
	enrichBatchFn func(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem
	batchCalls    int
}

func (m *mockEnrichmentService) Enrich(ctx context.Context, item model.CatalogItem) Enrichment {
	return Enrichment{Item: model.NewFallbackItem(item), Fallback: FallbackNoMatch}
}

func (m *mockEnrichmentService) EnrichBatch(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem {
	m.batchCalls++
	if m.enrichBatchFn != nil {
		return m.enrichBatchFn(ctx, items, batchSize)
	}
	out := make([]model.EnrichedItem, len(items))
	for i, item := range items {
		out[i] = model.NewFallbackItem(item)
	}
	return out
}

// mockPosterService records Mirror calls.
type mockPosterService struct {
	mu       sync.Mutex
	mirrored []int
	mirrorFn func(ctx context.Context, tmdbID int, sourceURL string) (bool, error)
}

func (m *mockPosterService) Mirror(ctx context.Context, tmdbID int, sourceURL string) (bool, error) {
	m.mu.Lock()
	m.mirrored = append(m.mirrored, tmdbID)
	m.mu.Unlock()
	if m.mirrorFn != nil {
		return m.mirrorFn(ctx, tmdbID, sourceURL)
	}
	return true, nil
}

func (m *mockPosterService) PosterURL(ctx context.Context, tmdbID int) (string, error) {
	return "", ErrPosterNotMirrored
}

func enrichedPosters(ids ...int) func(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem {
	return func(ctx context.Context, items []model.CatalogItem, batchSize int) []model.EnrichedItem {
		out := make([]model.EnrichedItem, len(items))
		for i, item := range items {
			out[i] = model.NewFallbackItem(item)
			if i < len(ids) && ids[i] != 0 {
				out[i].TMDBID = ids[i]
				out[i].PosterURL = strPtr("https://img.test/w500/p.jpg")
			}
		}
		return out
	}
}

func TestWarmupProcessor_ProcessTask(t *testing.T) {
	task := repository.WarmupTask{
		Items: []repository.WarmupItem{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}, {ID: 4, Title: "D"}},
	}

	tests := []struct {
		name         string
		retryCount   int
		ids          []int
		mirrorErr    error
		cfg          WarmupProcessorConfig
		wantErr      bool
		wantBatch    int
		wantMirrored []int
	}{
		{
			name:         "enriches and mirrors unique posters",
			ids:          []int{862, 0, 862, 8844},
			cfg:          DefaultWarmupProcessorConfig(),
			wantBatch:    1,
			wantMirrored: []int{862, 8844},
		},
		{
			name:      "mirroring disabled",
			ids:       []int{862},
			cfg:       WarmupProcessorConfig{MaxRetries: 3},
			wantBatch: 1,
		},
		{
			name:         "mirror failure requests retry",
			ids:          []int{862, 8844},
			mirrorErr:    errors.New("upload failed"),
			cfg:          DefaultWarmupProcessorConfig(),
			wantErr:      true,
			wantBatch:    1,
			wantMirrored: []int{862, 8844},
		},
		{
			name:       "dropped after max retries",
			retryCount: 3,
			cfg:        DefaultWarmupProcessorConfig(),
		},
		{
			name:       "below max retries still processed",
			retryCount: 2,
			cfg:        DefaultWarmupProcessorConfig(),
			wantBatch:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrichment := &mockEnrichmentService{enrichBatchFn: enrichedPosters(tt.ids...)}
			posters := &mockPosterService{
				mirrorFn: func(ctx context.Context, tmdbID int, sourceURL string) (bool, error) {
					return tt.mirrorErr == nil, tt.mirrorErr
				},
			}
			p := NewWarmupProcessor(enrichment, posters, tt.cfg)

			tk := task
			tk.RetryCount = tt.retryCount
			err := p.ProcessTask(context.Background(), tk)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if enrichment.batchCalls != tt.wantBatch {
				t.Errorf("EnrichBatch calls = %d, want %d", enrichment.batchCalls, tt.wantBatch)
			}
			if len(posters.mirrored) != len(tt.wantMirrored) {
				t.Fatalf("mirrored = %v, want %v", posters.mirrored, tt.wantMirrored)
			}
			for i, id := range tt.wantMirrored {
				if posters.mirrored[i] != id {
					t.Errorf("mirrored[%d] = %d, want %d", i, posters.mirrored[i], id)
				}
			}
		})
	}
}

func TestWarmupProcessor_NilPosters(t *testing.T) {
	enrichment := &mockEnrichmentService{enrichBatchFn: enrichedPosters(862)}
	p := NewWarmupProcessor(enrichment, nil, DefaultWarmupProcessorConfig())

	if err := p.ProcessTask(context.Background(), repository.WarmupTask{Items: []repository.WarmupItem{{ID: 1, Title: "A"}}}); err != nil {
		t.Errorf("ProcessTask() error = %v", err)
	}
}
