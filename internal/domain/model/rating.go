package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hszk-dev/movierec/internal/document"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrInvalidMovieID = errors.New("movie ID must be positive")
)

// ValidateRating checks a movie/rating pair.
func ValidateRating(movieID, rating int) error {
	if movieID <= 0 {
		return ErrInvalidMovieID
	}
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// LocalRatings are ratings recorded while the user was anonymous, keyed by movie ID.
type LocalRatings map[int]int

// RatingRecord is a user's rating of one movie as stored in the profile.
type RatingRecord struct {
	MovieID     int
	Rating      int
	Review      string
	RatedAt     time.Time
	MovieTitle  string
	MoviePoster *string
}

// NewRatingRecord creates a record rated at now. An empty title falls back to
// the synthetic "Movie <id>" title.
func NewRatingRecord(movieID, rating int, review, title string, poster *string, now time.Time) (*RatingRecord, error) {
	if err := ValidateRating(movieID, rating); err != nil {
		return nil, err
	}
	if title == "" {
		title = SyntheticTitle(movieID)
	}
	if poster != nil && *poster == "" {
		poster = nil
	}
	return &RatingRecord{
		MovieID:     movieID,
		Rating:      rating,
		Review:      review,
		RatedAt:     now.UTC(),
		MovieTitle:  title,
		MoviePoster: poster,
	}, nil
}

// SyntheticTitle is the title used when a movie's real title cannot be resolved.
func SyntheticTitle(movieID int) string {
	return fmt.Sprintf("Movie %d", movieID)
}

// Document returns the record in its stored document form.
func (r RatingRecord) Document() map[string]any {
	var poster any
	if r.MoviePoster != nil {
		poster = *r.MoviePoster
	}
	return map[string]any{
		"rating":      r.Rating,
		"review":      r.Review,
		"ratedAt":     r.RatedAt.UTC().Format(time.RFC3339Nano),
		"movieTitle":  r.MovieTitle,
		"moviePoster": poster,
	}
}

// Ratings maps movie IDs to rating records. A movie appears at most once.
type Ratings map[int]RatingRecord

// Clone returns a shallow copy of the mapping.
func (r Ratings) Clone() Ratings {
	out := make(Ratings, len(r))
	for id, rec := range r {
		out[id] = rec
	}
	return out
}

// Stats derives aggregate counters from the mapping.
func (r Ratings) Stats() RatingStats {
	return RatingStats{TotalRatings: len(r)}
}

// Document returns the mapping keyed by decimal movie ID, sanitized.
func (r Ratings) Document() map[string]any {
	doc := make(map[string]any, len(r))
	for id, rec := range r {
		doc[strconv.Itoa(id)] = rec.Document()
	}
	return document.SanitizeMap(doc)
}

// Sorted returns the records newest first, ties broken by movie ID.
func (r Ratings) Sorted() []RatingRecord {
	out := make([]RatingRecord, 0, len(r))
	for _, rec := range r {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RatedAt.Equal(out[j].RatedAt) {
			return out[i].RatedAt.After(out[j].RatedAt)
		}
		return out[i].MovieID < out[j].MovieID
	})
	return out
}

// RatingStats holds counters derived from a ratings mapping.
type RatingStats struct {
	TotalRatings int
}
