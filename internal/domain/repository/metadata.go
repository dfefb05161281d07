package repository

import "context"

// SearchResult is the external metadata search response.
// It is cached verbatim, so the JSON tags follow the provider's wire format.
type SearchResult struct {
	Page         int               `json:"page,omitempty"`
	Results      []SearchCandidate `json:"results"`
	TotalResults int               `json:"total_results,omitempty"`
}

// SearchCandidate is a single search hit, ordered by provider relevance.
type SearchCandidate struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
}

// MovieDetails is the detail payload with credits and videos appended.
type MovieDetails struct {
	ID      int     `json:"id"`
	Genres  []Genre `json:"genres"`
	Runtime int     `json:"runtime"`
	Credits Credits `json:"credits"`
	Videos  Videos  `json:"videos"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Credits struct {
	Cast []CastCredit `json:"cast"`
	Crew []CrewCredit `json:"crew"`
}

type CastCredit struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type CrewCredit struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

type Videos struct {
	Results []Video `json:"results"`
}

type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// MetadataProvider defines the external metadata lookups used for enrichment.
// Implementations should be provided by the infrastructure layer (e.g., TMDB).
type MetadataProvider interface {
	// SearchMovie searches movies by title. year <= 0 means no year filter.
	SearchMovie(ctx context.Context, query string, year int) (*SearchResult, error)

	// MovieDetails fetches details, credits and videos for a provider movie ID.
	MovieDetails(ctx context.Context, id int) (*MovieDetails, error)

	// TrendingMovies lists trending movies for a time window ("day" or "week").
	TrendingMovies(ctx context.Context, window string) (*SearchResult, error)

	// MovieRecommendations lists the provider's recommendations for a movie.
	MovieRecommendations(ctx context.Context, id int) (*SearchResult, error)
}
