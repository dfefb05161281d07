package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/usecase"
)

type SearchCandidateResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	PosterPath  string  `json:"poster_path,omitempty"`
}

type SearchResponse struct {
	Query     string                    `json:"query"`
	Year      int                       `json:"year,omitempty"`
	Results   []SearchCandidateResponse `json:"results"`
	BestMatch *SearchCandidateResponse  `json:"best_match"`
}

type CandidateListResponse struct {
	Results []SearchCandidateResponse `json:"results"`
}

// MetadataHandler exposes cached metadata lookups.
type MetadataHandler struct {
	svc usecase.MetadataService
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(svc usecase.MetadataService) *MetadataHandler {
	return &MetadataHandler{svc: svc}
}

// Search handles GET /v1/metadata/search?title=&year=
// The year defaults to the one embedded in the title.
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
		return
	}

	embedded, _ := model.ExtractYear(title)
	year, ok := queryInt(r, "year", embedded)
	if !ok || year < 0 {
		Error(w, http.StatusBadRequest, "invalid_year", "Year must be a non-negative integer")
		return
	}

	result := h.svc.LookupByTitle(r.Context(), title, year)

	resp := SearchResponse{
		Query:   model.StripYear(title),
		Year:    year,
		Results: make([]SearchCandidateResponse, 0, len(result.Results)),
	}
	for _, c := range result.Results {
		resp.Results = append(resp.Results, toSearchCandidateResponse(c))
	}
	if best := usecase.SelectBestMatch(result.Results, year); best != nil {
		b := toSearchCandidateResponse(*best)
		resp.BestMatch = &b
	}

	JSON(w, http.StatusOK, resp)
}

// Trending handles GET /v1/metadata/trending?window=day|week
func (h *MetadataHandler) Trending(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("window")
	if window == "" {
		window = "day"
	}
	if window != "day" && window != "week" {
		Error(w, http.StatusBadRequest, "invalid_window", "Window must be day or week")
		return
	}

	JSON(w, http.StatusOK, toCandidateList(h.svc.Trending(r.Context(), window)))
}

// Recommendations handles GET /v1/metadata/movies/{tmdbId}/recommendations
func (h *MetadataHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbId"))
	if err != nil || tmdbID <= 0 {
		Error(w, http.StatusBadRequest, "invalid_tmdb_id", "TMDB ID must be a positive integer")
		return
	}

	JSON(w, http.StatusOK, toCandidateList(h.svc.Recommendations(r.Context(), tmdbID)))
}

// ClearCache handles DELETE /v1/metadata/cache
func (h *MetadataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "cache_error", "Failed to clear the metadata cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSearchCandidateResponse(c repository.SearchCandidate) SearchCandidateResponse {
	return SearchCandidateResponse{
		ID:          c.ID,
		Title:       c.Title,
		ReleaseDate: c.ReleaseDate,
		Overview:    c.Overview,
		VoteAverage: c.VoteAverage,
		VoteCount:   c.VoteCount,
		PosterPath:  c.PosterPath,
	}
}

func toCandidateList(candidates []repository.SearchCandidate) CandidateListResponse {
	resp := CandidateListResponse{Results: make([]SearchCandidateResponse, 0, len(candidates))}
	for _, c := range candidates {
		resp.Results = append(resp.Results, toSearchCandidateResponse(c))
	}
	return resp
}

// PosterHandler serves mirrored posters.
type PosterHandler struct {
	svc usecase.PosterService
}

// NewPosterHandler creates a new PosterHandler.
func NewPosterHandler(svc usecase.PosterService) *PosterHandler {
	return &PosterHandler{svc: svc}
}

// Get handles GET /v1/posters/{tmdbId} by redirecting to a presigned URL.
func (h *PosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbId"))
	if err != nil || tmdbID <= 0 {
		Error(w, http.StatusBadRequest, "invalid_tmdb_id", "TMDB ID must be a positive integer")
		return
	}

	url, err := h.svc.PosterURL(r.Context(), tmdbID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrPosterNotMirrored):
			Error(w, http.StatusNotFound, "poster_not_found", "Poster has not been mirrored")
		default:
			Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
