package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/usecase"
)

type CreateProfileRequest struct {
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type ProfileResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	TotalRatings int    `json:"total_ratings"`
	CreatedAt    string `json:"created_at"`
}

type ListEntryResponse struct {
	MovieID   int     `json:"movie_id"`
	Title     string  `json:"title"`
	PosterURL *string `json:"poster_url"`
	AddedAt   string  `json:"added_at"`
}

type ListResponse struct {
	List    string              `json:"list"`
	Entries []ListEntryResponse `json:"entries"`
}

type PreferencesResponse struct {
	FavoriteGenres []string            `json:"favorite_genres"`
	Watchlist      []ListEntryResponse `json:"watchlist"`
	Favorites      []ListEntryResponse `json:"favorites"`
}

type ProfileDetailResponse struct {
	ProfileResponse
	TotalMoviesWatched int                 `json:"total_movies_watched"`
	Preferences        PreferencesResponse `json:"preferences"`
	UpdatedAt          string              `json:"updated_at"`
}

type UpdatePreferencesRequest struct {
	FavoriteGenres []string `json:"favorite_genres"`
}

type RateMovieRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type RatingResponse struct {
	MovieID     int     `json:"movie_id"`
	Rating      int     `json:"rating"`
	Review      string  `json:"review"`
	RatedAt     string  `json:"rated_at"`
	MovieTitle  string  `json:"movie_title"`
	MoviePoster *string `json:"movie_poster"`
}

type RateMovieResponse struct {
	Rating       RatingResponse `json:"rating"`
	TotalRatings int            `json:"total_ratings"`
}

type RatingsResponse struct {
	Ratings      []RatingResponse `json:"ratings"`
	TotalRatings int              `json:"total_ratings"`
}

// UserHandler handles profile and rating HTTP requests.
type UserHandler struct {
	profiles usecase.ProfileService
	ratings  usecase.RatingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(profiles usecase.ProfileService, ratings usecase.RatingService) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		ratings:  ratings,
	}
}

// Create handles POST /v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var userID uuid.UUID
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
			return
		}
		userID = id
	}

	profile, err := h.profiles.CreateProfile(r.Context(), usecase.CreateProfileInput{
		UserID:      userID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, toProfileResponse(profile))
}

// Get handles GET /v1/users/{userID}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, ProfileDetailResponse{
		ProfileResponse:    toProfileResponse(profile),
		TotalMoviesWatched: profile.TotalMoviesWatched,
		Preferences:        toPreferencesResponse(profile.Preferences),
		UpdatedAt:          profile.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// AddToList handles PUT /v1/users/{userID}/{list}/{movieID}
func (h *UserHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	h.changeList(w, r, h.profiles.AddToList)
}

// RemoveFromList handles DELETE /v1/users/{userID}/{list}/{movieID}
func (h *UserHandler) RemoveFromList(w http.ResponseWriter, r *http.Request) {
	h.changeList(w, r, h.profiles.RemoveFromList)
}

func (h *UserHandler) changeList(
	w http.ResponseWriter,
	r *http.Request,
	change func(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error),
) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	list := model.ListKind(chi.URLParam(r, "list"))
	if !list.IsValid() {
		Error(w, http.StatusNotFound, "list_not_found", "List must be watchlist or favorites")
		return
	}
	movieID, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_movie_id", "Movie ID must be an integer")
		return
	}

	entries, err := change(r.Context(), userID, list, movieID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, ListResponse{List: list.String(), Entries: toListEntries(entries)})
}

// UpdatePreferences handles PATCH /v1/users/{userID}/preferences
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prefs, err := h.profiles.UpdatePreferences(r.Context(), usecase.UpdatePreferencesInput{
		UserID:         userID,
		FavoriteGenres: req.FavoriteGenres,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toPreferencesResponse(*prefs))
}

// ListRatings handles GET /v1/users/{userID}/ratings
func (h *UserHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	records, stats, err := h.ratings.ListRatings(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := RatingsResponse{
		Ratings:      make([]RatingResponse, 0, len(records)),
		TotalRatings: stats.TotalRatings,
	}
	for _, rec := range records {
		resp.Ratings = append(resp.Ratings, toRatingResponse(rec))
	}
	JSON(w, http.StatusOK, resp)
}

// RateMovie handles PUT /v1/users/{userID}/ratings/{movieID}
func (h *UserHandler) RateMovie(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	movieID, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_movie_id", "Movie ID must be an integer")
		return
	}

	var req RateMovieRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.ratings.RateMovie(r.Context(), usecase.RateMovieInput{
		UserID:  userID,
		MovieID: movieID,
		Rating:  req.Rating,
		Review:  req.Review,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, RateMovieResponse{
		Rating:       toRatingResponse(out.Record),
		TotalRatings: out.Stats.TotalRatings,
	})
}

func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		Error(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	case errors.Is(err, repository.ErrDuplicateProfile):
		Error(w, http.StatusConflict, "profile_exists", "Profile already exists")
	case errors.Is(err, model.ErrInvalidUserID):
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID cannot be empty")
	case errors.Is(err, model.ErrDisplayNameTooLong):
		Error(w, http.StatusBadRequest, "invalid_display_name", "Display name exceeds maximum length")
	case errors.Is(err, model.ErrInvalidRating):
		Error(w, http.StatusBadRequest, "invalid_rating", "Rating must be between 1 and 5")
	case errors.Is(err, model.ErrInvalidMovieID):
		Error(w, http.StatusBadRequest, "invalid_movie_id", "Movie ID must be positive")
	case errors.Is(err, model.ErrInvalidList):
		Error(w, http.StatusNotFound, "list_not_found", "List must be watchlist or favorites")
	case errors.Is(err, model.ErrTooManyGenres), errors.Is(err, model.ErrGenreNameTooLong):
		Error(w, http.StatusBadRequest, "invalid_genres", err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
		return uuid.Nil, false
	}
	return userID, true
}

func toProfileResponse(profile *model.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:       profile.UserID.String(),
		Email:        profile.Email,
		DisplayName:  profile.DisplayName,
		TotalRatings: profile.Stats.TotalRatings,
		CreatedAt:    profile.CreatedAt.Format(time.RFC3339),
	}
}

func toPreferencesResponse(prefs model.Preferences) PreferencesResponse {
	genres := prefs.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}
	return PreferencesResponse{
		FavoriteGenres: genres,
		Watchlist:      toListEntries(prefs.Watchlist),
		Favorites:      toListEntries(prefs.Favorites),
	}
}

func toListEntries(entries []model.ListEntry) []ListEntryResponse {
	out := make([]ListEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ListEntryResponse{
			MovieID:   e.MovieID,
			Title:     e.Title,
			PosterURL: e.PosterURL,
			AddedAt:   e.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func toRatingResponse(rec model.RatingRecord) RatingResponse {
	return RatingResponse{
		MovieID:     rec.MovieID,
		Rating:      rec.Rating,
		Review:      rec.Review,
		RatedAt:     rec.RatedAt.UTC().Format(time.RFC3339),
		MovieTitle:  rec.MovieTitle,
		MoviePoster: rec.MoviePoster,
	}
}
