package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/usecase"
)

const (
	defaultMovieLimit = 20
	maxMovieLimit     = 100
	maxEnrichItems    = 100
)

// Request/Response types

type CatalogItemRequest struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type EnrichRequest struct {
	Items     []CatalogItemRequest `json:"items"`
	BatchSize int                  `json:"batch_size,omitempty"`
}

type CastMemberResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path,omitempty"`
}

type EnrichedItemResponse struct {
	ID             int                  `json:"id"`
	Title          string               `json:"title"`
	TMDBID         int                  `json:"tmdb_id,omitempty"`
	PosterURL      *string              `json:"poster_url"`
	BackdropURL    *string              `json:"backdrop_url"`
	Overview       string               `json:"overview"`
	ExternalRating float64              `json:"external_rating"`
	VoteCount      int                  `json:"vote_count"`
	ReleaseDate    string               `json:"release_date,omitempty"`
	Genres         []string             `json:"genres"`
	Cast           []CastMemberResponse `json:"cast"`
	Director       string               `json:"director,omitempty"`
	RuntimeMinutes int                  `json:"runtime,omitempty"`
	TrailerKey     *string              `json:"trailer_key"`
}

type MoviesResponse struct {
	Movies []EnrichedItemResponse `json:"movies"`
	Total  int                    `json:"total"`
}

type WarmupResponse struct {
	TaskID string `json:"task_id"`
	Items  int    `json:"items"`
}

// MovieHandler handles catalog enrichment HTTP requests.
type MovieHandler struct {
	catalog    usecase.CatalogService
	enrichment usecase.EnrichmentService
	warmup     usecase.WarmupService
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(catalog usecase.CatalogService, enrichment usecase.EnrichmentService, warmup usecase.WarmupService) *MovieHandler {
	return &MovieHandler{
		catalog:    catalog,
		enrichment: enrichment,
		warmup:     warmup,
	}
}

// List handles GET /v1/movies
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultMovieLimit)
	if !ok || limit < 1 || limit > maxMovieLimit {
		Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be between 1 and 100")
		return
	}

	items, err := h.catalog.ListEnriched(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toMoviesResponse(items))
}

// Enrich handles POST /v1/movies/enrich
func (h *MovieHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items, ok := toCatalogItems(w, req.Items, maxEnrichItems)
	if !ok {
		return
	}

	enriched := h.enrichment.EnrichBatch(r.Context(), items, req.BatchSize)
	JSON(w, http.StatusOK, toMoviesResponse(enriched))
}

// Warmup handles POST /v1/catalog/warmup
func (h *MovieHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items, ok := toCatalogItems(w, req.Items, usecase.MaxWarmupItems)
	if !ok {
		return
	}

	task, err := h.warmup.Schedule(r.Context(), items)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, WarmupResponse{
		TaskID: task.TaskID.String(),
		Items:  len(task.Items),
	})
}

func (h *MovieHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrNoWarmupItems):
		Error(w, http.StatusBadRequest, "invalid_items", "At least one item with an ID and title is required")
	case errors.Is(err, usecase.ErrTooManyWarmupItems):
		Error(w, http.StatusBadRequest, "too_many_items", err.Error())
	default:
		Error(w, http.StatusBadGateway, "upstream_error", "The catalog service is unavailable")
	}
}

func toCatalogItems(w http.ResponseWriter, reqItems []CatalogItemRequest, limit int) ([]model.CatalogItem, bool) {
	if len(reqItems) == 0 {
		Error(w, http.StatusBadRequest, "invalid_items", "At least one item is required")
		return nil, false
	}
	if len(reqItems) > limit {
		Error(w, http.StatusBadRequest, "too_many_items", "Too many items in one request")
		return nil, false
	}

	items := make([]model.CatalogItem, 0, len(reqItems))
	for _, it := range reqItems {
		title := strings.TrimSpace(it.Title)
		if it.ID <= 0 || title == "" {
			Error(w, http.StatusBadRequest, "invalid_item", "Every item needs a positive id and a title")
			return nil, false
		}
		items = append(items, model.CatalogItem{ID: it.ID, Title: title})
	}
	return items, true
}

func toMoviesResponse(items []model.EnrichedItem) MoviesResponse {
	out := make([]EnrichedItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toEnrichedItemResponse(item))
	}
	return MoviesResponse{Movies: out, Total: len(out)}
}

func toEnrichedItemResponse(e model.EnrichedItem) EnrichedItemResponse {
	genres := e.Genres
	if genres == nil {
		genres = []string{}
	}
	cast := make([]CastMemberResponse, 0, len(e.Cast))
	for _, c := range e.Cast {
		cast = append(cast, CastMemberResponse{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			ProfilePath: c.ProfilePath,
		})
	}

	return EnrichedItemResponse{
		ID:             e.ID,
		Title:          e.Title,
		TMDBID:         e.TMDBID,
		PosterURL:      e.PosterURL,
		BackdropURL:    e.BackdropURL,
		Overview:       e.Overview,
		ExternalRating: e.ExternalRating,
		VoteCount:      e.VoteCount,
		ReleaseDate:    e.ReleaseDate,
		Genres:         genres,
		Cast:           cast,
		Director:       e.Director,
		RuntimeMinutes: e.RuntimeMinutes,
		TrailerKey:     e.TrailerKey,
	}
}
