package model

import (
	"errors"
	"strings"
	"time"
)

const (
	maxFavoriteGenres = 50
	maxGenreLength    = 100
)

var (
	ErrInvalidList      = errors.New("list must be watchlist or favorites")
	ErrTooManyGenres    = errors.New("at most 50 favorite genres are allowed")
	ErrGenreNameTooLong = errors.New("genre name exceeds maximum length of 100 characters")
)

// ListKind names one of a profile's saved-movie lists.
type ListKind string

const (
	ListWatchlist ListKind = "watchlist"
	ListFavorites ListKind = "favorites"
)

func (k ListKind) IsValid() bool {
	return k == ListWatchlist || k == ListFavorites
}

func (k ListKind) String() string {
	return string(k)
}

// ListEntry is a movie saved to a watchlist or favorites list.
type ListEntry struct {
	MovieID   int
	Title     string
	PosterURL *string
	AddedAt   time.Time
}

// NewListEntry creates an entry added at now. An empty title falls back to
// the synthetic "Movie <id>" title.
func NewListEntry(movieID int, title string, poster *string, now time.Time) (*ListEntry, error) {
	if movieID <= 0 {
		return nil, ErrInvalidMovieID
	}
	if title == "" {
		title = SyntheticTitle(movieID)
	}
	if poster != nil && *poster == "" {
		poster = nil
	}
	return &ListEntry{
		MovieID:   movieID,
		Title:     title,
		PosterURL: poster,
		AddedAt:   now.UTC(),
	}, nil
}

// Preferences holds a profile's saved lists and genre preferences.
type Preferences struct {
	FavoriteGenres []string
	Watchlist      []ListEntry
	Favorites      []ListEntry
}

// NewPreferences returns empty, non-nil preferences.
func NewPreferences() Preferences {
	return Preferences{
		FavoriteGenres: []string{},
		Watchlist:      []ListEntry{},
		Favorites:      []ListEntry{},
	}
}

// List returns the entries of kind, or nil for an unknown kind.
func (p Preferences) List(kind ListKind) []ListEntry {
	switch kind {
	case ListWatchlist:
		return p.Watchlist
	case ListFavorites:
		return p.Favorites
	default:
		return nil
	}
}

// Contains reports whether movieID is on the list of kind.
func (p Preferences) Contains(kind ListKind, movieID int) bool {
	for _, e := range p.List(kind) {
		if e.MovieID == movieID {
			return true
		}
	}
	return false
}

// NormalizeGenres trims names, drops empty ones and removes duplicates
// case-insensitively, keeping the first spelling and the input order.
func NormalizeGenres(genres []string) ([]string, error) {
	out := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if len(g) > maxGenreLength {
			return nil, ErrGenreNameTooLong
		}
		key := strings.ToLower(g)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	if len(out) > maxFavoriteGenres {
		return nil, ErrTooManyGenres
	}
	return out, nil
}
