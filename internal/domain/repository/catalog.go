package repository

import (
	"context"

	"github.com/hszk-dev/movierec/internal/domain/model"
)

// CatalogMovie is the catalog API's movie detail payload.
type CatalogMovie struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

// Catalog defines the recommendation service's catalog endpoints.
// Implementations should be provided by the infrastructure layer (HTTP client).
type Catalog interface {
	// GetMovie returns a single movie.
	// Returns ErrMovieNotFound if the catalog has no such movie.
	GetMovie(ctx context.Context, movieID int) (*CatalogMovie, error)

	// ListMovies returns up to limit catalog items in catalog order.
	ListMovies(ctx context.Context, limit int) ([]model.CatalogItem, error)
}
