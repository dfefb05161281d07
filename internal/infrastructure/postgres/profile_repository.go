package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
// Ratings live in a JSONB column keyed by decimal movie ID.
type ProfileRepository struct {
	db  DBTX
	now func() time.Time
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db, now: time.Now}
}

// ratingJSON is the stored JSONB form of a single rating record.
type ratingJSON struct {
	Rating      int       `json:"rating"`
	Review      string    `json:"review"`
	RatedAt     time.Time `json:"ratedAt"`
	MovieTitle  string    `json:"movieTitle"`
	MoviePoster *string   `json:"moviePoster"`
}

// listEntryJSON is the stored JSONB form of a watchlist or favorites entry.
type listEntryJSON struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	PosterURL *string   `json:"poster_url"`
	AddedAt   time.Time `json:"addedAt"`
}

// listColumns maps list kinds to their JSONB columns.
var listColumns = map[model.ListKind]string{
	model.ListWatchlist: "watchlist",
	model.ListFavorites: "favorites",
}

// Create persists a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	const query = `
		INSERT INTO profiles (
			user_id, email, display_name, ratings, total_ratings,
			watchlist, favorites, favorite_genres, total_movies_watched,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11)
	`

	ratings, err := encodeRatings(profile.Ratings)
	if err != nil {
		return err
	}
	watchlist, err := encodeList(profile.Preferences.Watchlist)
	if err != nil {
		return err
	}
	favorites, err := encodeList(profile.Preferences.Favorites)
	if err != nil {
		return err
	}
	genres, err := encodeGenres(profile.Preferences.FavoriteGenres)
	if err != nil {
		return err
	}

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableProfiles).Inc()
	_, err = r.db.Exec(ctx, query,
		profile.UserID,
		profile.Email,
		profile.DisplayName,
		ratings,
		len(profile.Ratings),
		watchlist,
		favorites,
		genres,
		profile.TotalMoviesWatched,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateProfile
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves a profile with its ratings and preferences.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	const query = `
		SELECT user_id, email, display_name, ratings, total_ratings,
			watchlist, favorites, favorite_genres, total_movies_watched,
			created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var (
		profile      model.Profile
		rawRatings   []byte
		rawWatchlist []byte
		rawFavorites []byte
		rawGenres    []byte
		total        int
	)

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableProfiles).Inc()
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.DisplayName,
		&rawRatings,
		&total,
		&rawWatchlist,
		&rawFavorites,
		&rawGenres,
		&profile.TotalMoviesWatched,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile by user ID: %w", err)
	}

	ratings, err := decodeRatings(rawRatings)
	if err != nil {
		return nil, err
	}
	profile.Ratings = ratings
	profile.Stats = model.RatingStats{TotalRatings: total}

	prefs := model.NewPreferences()
	if prefs.Watchlist, err = decodeList(rawWatchlist); err != nil {
		return nil, err
	}
	if prefs.Favorites, err = decodeList(rawFavorites); err != nil {
		return nil, err
	}
	if prefs.FavoriteGenres, err = decodeGenres(rawGenres); err != nil {
		return nil, err
	}
	profile.Preferences = prefs

	return &profile, nil
}

// MergeRatings merges patch into the stored ratings with JSONB concatenation.
// Keys in patch replace stored ones; keys absent from patch are left untouched.
func (r *ProfileRepository) MergeRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	const query = `
		UPDATE profiles
		SET ratings = ratings || $2::jsonb,
			total_ratings = (SELECT count(*) FROM jsonb_object_keys(ratings || $2::jsonb)),
			updated_at = $3
		WHERE user_id = $1
		RETURNING total_ratings
	`
	return r.writeRatings(ctx, query, userID, patch)
}

// AddMissingRatings merges patch into the stored ratings with the operands
// reversed, so every stored key wins over patch. The check and the write
// happen in one statement.
func (r *ProfileRepository) AddMissingRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	const query = `
		UPDATE profiles
		SET ratings = $2::jsonb || ratings,
			total_ratings = (SELECT count(*) FROM jsonb_object_keys($2::jsonb || ratings)),
			updated_at = $3
		WHERE user_id = $1
		RETURNING total_ratings
	`
	return r.writeRatings(ctx, query, userID, patch)
}

func (r *ProfileRepository) writeRatings(ctx context.Context, query string, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	encoded, err := encodeRatings(patch)
	if err != nil {
		return model.RatingStats{}, err
	}

	var total int
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableProfiles).Inc()
	if err := r.db.QueryRow(ctx, query, userID, encoded, r.now()).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RatingStats{}, repository.ErrProfileNotFound
		}
		return model.RatingStats{}, fmt.Errorf("failed to merge ratings: %w", err)
	}

	return model.RatingStats{TotalRatings: total}, nil
}

// AddToList appends entry unless an element with the same id is already
// stored. The containment check and the append happen in one statement.
func (r *ProfileRepository) AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, entry model.ListEntry) ([]model.ListEntry, error) {
	column, ok := listColumns[list]
	if !ok {
		return nil, model.ErrInvalidList
	}
	query := fmt.Sprintf(`
		UPDATE profiles
		SET %[1]s = CASE WHEN %[1]s @> $2::jsonb THEN %[1]s ELSE %[1]s || $3::jsonb END,
			updated_at = $4
		WHERE user_id = $1
		RETURNING %[1]s
	`, column)

	match, err := json.Marshal([]map[string]int{{"id": entry.MovieID}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s entry: %w", column, err)
	}
	appended, err := encodeList([]model.ListEntry{entry})
	if err != nil {
		return nil, err
	}

	var raw []byte
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableProfiles).Inc()
	if err := r.db.QueryRow(ctx, query, userID, match, appended, r.now()).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to add to %s: %w", column, err)
	}
	return decodeList(raw)
}

// RemoveFromList filters movieID out of the stored list, keeping the order
// of the remaining entries.
func (r *ProfileRepository) RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	column, ok := listColumns[list]
	if !ok {
		return nil, model.ErrInvalidList
	}
	query := fmt.Sprintf(`
		UPDATE profiles
		SET %[1]s = COALESCE(
				(SELECT jsonb_agg(e ORDER BY i)
				FROM jsonb_array_elements(%[1]s) WITH ORDINALITY AS t(e, i)
				WHERE (e->>'id')::int <> $2),
				'[]'::jsonb),
			updated_at = $3
		WHERE user_id = $1
		RETURNING %[1]s
	`, column)

	var raw []byte
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableProfiles).Inc()
	if err := r.db.QueryRow(ctx, query, userID, movieID, r.now()).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to remove from %s: %w", column, err)
	}
	return decodeList(raw)
}

// UpdateFavoriteGenres replaces the stored favorite genres.
func (r *ProfileRepository) UpdateFavoriteGenres(ctx context.Context, userID uuid.UUID, genres []string) error {
	const query = `
		UPDATE profiles
		SET favorite_genres = $2::jsonb, updated_at = $3
		WHERE user_id = $1
	`

	encoded, err := encodeGenres(genres)
	if err != nil {
		return err
	}

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableProfiles).Inc()
	tag, err := r.db.Exec(ctx, query, userID, encoded, r.now())
	if err != nil {
		return fmt.Errorf("failed to update favorite genres: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrProfileNotFound
	}
	return nil
}

// encodeRatings renders ratings as their sanitized document form.
func encodeRatings(ratings model.Ratings) ([]byte, error) {
	data, err := json.Marshal(ratings.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode ratings: %w", err)
	}
	return data, nil
}

func decodeRatings(raw []byte) (model.Ratings, error) {
	ratings := model.Ratings{}
	if len(raw) == 0 {
		return ratings, nil
	}

	var stored map[string]ratingJSON
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}

	for key, v := range stored {
		movieID, err := strconv.Atoi(key)
		if err != nil || movieID <= 0 {
			return nil, fmt.Errorf("failed to decode ratings: invalid movie key %q", key)
		}
		ratings[movieID] = model.RatingRecord{
			MovieID:     movieID,
			Rating:      v.Rating,
			Review:      v.Review,
			RatedAt:     v.RatedAt,
			MovieTitle:  v.MovieTitle,
			MoviePoster: v.MoviePoster,
		}
	}
	return ratings, nil
}

func encodeList(entries []model.ListEntry) ([]byte, error) {
	stored := make([]listEntryJSON, 0, len(entries))
	for _, e := range entries {
		stored = append(stored, listEntryJSON{
			ID:        e.MovieID,
			Title:     e.Title,
			PosterURL: e.PosterURL,
			AddedAt:   e.AddedAt,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return data, nil
}

func decodeList(raw []byte) ([]model.ListEntry, error) {
	entries := []model.ListEntry{}
	if len(raw) == 0 {
		return entries, nil
	}

	var stored []listEntryJSON
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	for _, e := range stored {
		entries = append(entries, model.ListEntry{
			MovieID:   e.ID,
			Title:     e.Title,
			PosterURL: e.PosterURL,
			AddedAt:   e.AddedAt,
		})
	}
	return entries, nil
}

func encodeGenres(genres []string) ([]byte, error) {
	if genres == nil {
		genres = []string{}
	}
	data, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres: %w", err)
	}
	return data, nil
}

func decodeGenres(raw []byte) ([]string, error) {
	genres := []string{}
	if len(raw) == 0 {
		return genres, nil
	}
	if err := json.Unmarshal(raw, &genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	if genres == nil {
		genres = []string{}
	}
	return genres, nil
}

// Compile-time verification that ProfileRepository implements repository.ProfileRepository.
var _ repository.ProfileRepository = (*ProfileRepository)(nil)
