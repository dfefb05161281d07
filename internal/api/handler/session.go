package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/usecase"
)

type SignInRequest struct {
	SessionID    string      `json:"session_id,omitempty"`
	UserID       string      `json:"user_id"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"display_name"`
	LocalRatings map[int]int `json:"local_ratings"`
}

type SessionResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	State    string `json:"state"`
	SyncedAt string `json:"synced_at,omitempty"`
}

type SignInResponse struct {
	Session      SessionResponse `json:"session"`
	Added        int             `json:"added"`
	Skipped      []int           `json:"skipped"`
	TotalRatings int             `json:"total_ratings"`
}

// SessionHandler handles sign-in and sign-out.
type SessionHandler struct {
	svc usecase.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc usecase.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// SignIn handles POST /v1/sessions
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
		return
	}

	var sessionID uuid.UUID
	if req.SessionID != "" {
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_session_id", "Session ID must be a valid UUID")
			return
		}
	}

	out, err := h.svc.SignIn(r.Context(), usecase.SignInInput{
		SessionID:    sessionID,
		UserID:       userID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		LocalRatings: model.LocalRatings(req.LocalRatings),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	skipped := out.Skipped
	if skipped == nil {
		skipped = []int{}
	}
	JSON(w, http.StatusOK, SignInResponse{
		Session:      toSessionResponse(out.Session),
		Added:        out.Added,
		Skipped:      skipped,
		TotalRatings: out.Stats.TotalRatings,
	})
}

// Get handles GET /v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_session_id", "Session ID must be a valid UUID")
		return
	}

	session, err := h.svc.GetSession(r.Context(), sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(session))
}

// SignOut handles DELETE /v1/sessions/{sessionID}
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_session_id", "Session ID must be a valid UUID")
		return
	}

	session, err := h.svc.SignOut(r.Context(), sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session_not_found", "Session not found")
	case errors.Is(err, usecase.ErrSessionBusy):
		Error(w, http.StatusConflict, "session_busy", "Session is already signed in")
	case errors.Is(err, usecase.ErrSyncSuperseded):
		Error(w, http.StatusConflict, "sync_superseded", "Session changed while ratings were syncing")
	case errors.Is(err, model.ErrInvalidUserID):
		Error(w, http.StatusBadRequest, "invalid_user_id", "User ID cannot be empty")
	case errors.Is(err, model.ErrDisplayNameTooLong):
		Error(w, http.StatusBadRequest, "invalid_display_name", "Display name exceeds maximum length")
	case errors.Is(err, repository.ErrProfileNotFound):
		Error(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	default:
		Error(w, http.StatusInternalServerError, "sync_failed", "Ratings could not be synchronized; sign in again to retry")
	}
}

func toSessionResponse(s *model.Session) SessionResponse {
	resp := SessionResponse{
		ID:    s.ID.String(),
		State: s.State.String(),
	}
	if s.UserID != uuid.Nil {
		resp.UserID = s.UserID.String()
	}
	if !s.SyncedAt.IsZero() {
		resp.SyncedAt = s.SyncedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
