// Package tmdb is a client for the TMDB v3 API, limited to the movie search,
// detail, trending and recommendation endpoints used by the service.
package tmdb

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

	"golang.org/x/time/rate"

	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

const (
	// DefaultBaseURL is the public TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultImageBaseURL is the root for poster and backdrop images.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	PosterSize   = "w500"
	BackdropSize = "w1280"
)

var (
	// ErrUnavailable is returned by Unavailable for every lookup.
	ErrUnavailable = errors.New("tmdb: no api key configured")

	// ErrInvalidTimeWindow is returned for a trending window other than day or week.
	ErrInvalidTimeWindow = errors.New("tmdb: time window must be day or week")
)

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ repository.MetadataProvider = (*Client)(nil)

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

// WithRateLimit caps outbound requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLanguage sets the response language (e.g. "en-US").
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMovie searches TMDB movies by title, optionally filtered by release year.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) (*repository.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var payload repository.SearchResult
	if err := c.get(ctx, metrics.EndpointSearch, "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		payload.Results = []repository.SearchCandidate{}
	}
	return &payload, nil
}

// MovieDetails fetches a movie with credits and videos appended.
func (c *Client) MovieDetails(ctx context.Context, id int) (*repository.MovieDetails, error) {
	if id <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "credits,videos")

	var payload repository.MovieDetails
	if err := c.get(ctx, metrics.EndpointDetails, fmt.Sprintf("/movie/%d", id), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TrendingMovies lists movies trending over window ("day" or "week").
func (c *Client) TrendingMovies(ctx context.Context, window string) (*repository.SearchResult, error) {
	if window != "day" && window != "week" {
		return nil, ErrInvalidTimeWindow
	}

	var payload repository.SearchResult
	if err := c.get(ctx, metrics.EndpointTrending, "/trending/movie/"+window, url.Values{}, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		payload.Results = []repository.SearchCandidate{}
	}
	return &payload, nil
}

// MovieRecommendations lists TMDB's recommendations for a movie.
func (c *Client) MovieRecommendations(ctx context.Context, id int) (*repository.SearchResult, error) {
	if id <= 0 {
		return nil, errors.New("movie id must be positive")
	}

	var payload repository.SearchResult
	path := fmt.Sprintf("/movie/%d/recommendations", id)
	if err := c.get(ctx, metrics.EndpointRecommendations, path, url.Values{}, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		payload.Results = []repository.SearchCandidate{}
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, endpointLabel, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceTMDB, endpointLabel, metrics.OutcomeError).Inc()
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceTMDB, endpointLabel, metrics.OutcomeStatus).Inc()
		return fmt.Errorf("tmdb %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceTMDB, endpointLabel, metrics.OutcomeDecode).Inc()
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	metrics.ExternalRequestsTotal.WithLabelValues(metrics.ServiceTMDB, endpointLabel, metrics.OutcomeSuccess).Inc()
	return nil
}

// Unavailable is a MetadataProvider used when no API key is configured.
// Every lookup fails, so enrichment degrades to neutral data.
type Unavailable struct{}

var _ repository.MetadataProvider = Unavailable{}

func (Unavailable) SearchMovie(context.Context, string, int) (*repository.SearchResult, error) {
	return nil, ErrUnavailable
}

func (Unavailable) MovieDetails(context.Context, int) (*repository.MovieDetails, error) {
	return nil, ErrUnavailable
}

func (Unavailable) TrendingMovies(context.Context, string) (*repository.SearchResult, error) {
	return nil, ErrUnavailable
}

func (Unavailable) MovieRecommendations(context.Context, int) (*repository.SearchResult, error) {
	return nil, ErrUnavailable
}
