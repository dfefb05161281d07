// Package catalog is an HTTP client for the recommendation service's movie catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

// Client provides access to the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ repository.Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a catalog client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetMovie fetches /movies/{id}.
// Returns repository.ErrMovieNotFound on 404.
func (c *Client) GetMovie(ctx context.Context, movieID int) (*repository.CatalogMovie, error) {
	if movieID <= 0 {
		return nil, model.ErrInvalidMovieID
	}

	var movie repository.CatalogMovie
	if err := c.get(ctx, metrics.EndpointMovie, "/movies/"+strconv.Itoa(movieID), nil, &movie); err != nil {
		return nil, err
	}
	if movie.ID == 0 {
		movie.ID = movieID
	}
	return &movie, nil
}

type listMoviesResponse struct {
	Movies []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"movies"`
	Total int `json:"total"`
}

// ListMovies fetches /movies, optionally capped by limit. Entries without a
// positive ID are skipped.
func (c *Client) ListMovies(ctx context.Context, limit int) ([]model.CatalogItem, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var payload listMoviesResponse
	if err := c.get(ctx, metrics.EndpointMovies, "/movies", params, &payload); err != nil {
		return nil, err
	}

	items := make([]model.CatalogItem, 0, len(payload.Movies))
	for _, m := range payload.Movies {
		if m.ID <= 0 {
			continue
		}
		items = append(items, model.CatalogItem{ID: m.ID, Title: m.Title})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpointLabel, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceCatalog, endpointLabel, metrics.OutcomeError).Inc()
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceCatalog, endpointLabel, metrics.OutcomeStatus).Inc()
		return repository.ErrMovieNotFound
	case resp.StatusCode != http.StatusOK:
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceCatalog, endpointLabel, metrics.OutcomeStatus).Inc()
		return fmt.Errorf("catalog %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceCatalog, endpointLabel, metrics.OutcomeDecode).Inc()
		return fmt.Errorf("decode catalog response: %w", err)
	}
	metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceCatalog, endpointLabel, metrics.OutcomeSuccess).Inc()
	return nil
}
