package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUserID      = errors.New("user ID cannot be nil")
	ErrDisplayNameTooLong = errors.New("display name exceeds maximum length of 255 characters")
)

const maxDisplayNameLength = 255

// Profile is a user's remote profile document.
type Profile struct {
	UserID             uuid.UUID
	Email              string
	DisplayName        string
	Ratings            Ratings
	Preferences        Preferences
	Stats              RatingStats
	TotalMoviesWatched int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewProfile creates an empty profile for userID.
func NewProfile(userID uuid.UUID, email, displayName string) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, ErrDisplayNameTooLong
	}

	now := time.Now()
	return &Profile{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Ratings:     Ratings{},
		Preferences: NewPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetRating creates or overwrites the rating for rec.MovieID and recomputes stats.
func (p *Profile) SetRating(rec RatingRecord) {
	if p.Ratings == nil {
		p.Ratings = Ratings{}
	}
	p.Ratings[rec.MovieID] = rec
	p.Stats = p.Ratings.Stats()
	p.UpdatedAt = time.Now()
}
