package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageURLBuilder builds absolute image URLs from TMDB file paths.
type ImageURLBuilder struct {
	baseURL string
}

// NewImageURLBuilder returns a builder rooted at baseURL (DefaultImageBaseURL when empty).
func NewImageURLBuilder(baseURL string) ImageURLBuilder {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultImageBaseURL
	}
	return ImageURLBuilder{baseURL: baseURL}
}

// URL returns the image URL for path at size, or nil when path is empty.
func (b ImageURLBuilder) URL(path, size string) *string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := b.baseURL + "/" + size + path
	return &u
}

// Poster returns the w500 poster URL for path, or nil.
func (b ImageURLBuilder) Poster(path string) *string {
	return b.URL(path, PosterSize)
}

// Backdrop returns the w1280 backdrop URL for path, or nil.
func (b ImageURLBuilder) Backdrop(path string) *string {
	return b.URL(path, BackdropSize)
}

// ImageFetcher downloads images from the TMDB image CDN.
type ImageFetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// DefaultMaxImageBytes bounds a single image download.
const DefaultMaxImageBytes = 10 << 20

// NewImageFetcher creates an ImageFetcher. A nil client uses a 30s-timeout default.
func NewImageFetcher(client *http.Client) *ImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ImageFetcher{httpClient: client, maxBytes: DefaultMaxImageBytes}
}

// Fetch GETs url and returns its body and content type. Non-image responses are rejected.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("image %s returned %d", url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected content type %q", contentType)
	}

	return limitedBody{Reader: io.LimitReader(resp.Body, f.maxBytes), Closer: resp.Body}, contentType, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
