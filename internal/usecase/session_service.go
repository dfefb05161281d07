package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when a session is already signed in as another
	// user or is mid-sync.
	ErrSessionBusy = errors.New("session is already signed in")

	// ErrSyncSuperseded is returned when the session was signed out, or signed
	// in again, while this sign-in was still merging.
	ErrSyncSuperseded = errors.New("session changed during rating sync")
)

// SignInInput contains the input parameters for signing in.
type SignInInput struct {
	// SessionID identifies an existing anonymous session. uuid.Nil starts a new one.
	SessionID    uuid.UUID
	UserID       uuid.UUID
	Email        string
	DisplayName  string
	LocalRatings model.LocalRatings
}

// SignInOutput contains the result of a sign-in.
type SignInOutput struct {
	Session *model.Session
	Stats   model.RatingStats
	Added   int
	Skipped []int
}

// SessionService handles sign-in/sign-out and the rating sync they trigger.
type SessionService interface {
	// SignIn moves the session to SYNCING, merges local ratings into the
	// user's profile and marks it SYNCED. On failure the session returns to
	// ANONYMOUS so the next sign-in retries the merge.
	SignIn(ctx context.Context, input SignInInput) (*SignInOutput, error)

	// SignOut returns the session to ANONYMOUS.
	SignOut(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)

	// GetSession returns the current session state.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
}

type sessionService struct {
	profiles repository.ProfileRepository
	merger   *RatingMerger
	clock    clock.Clock

	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
}

// NewSessionService creates a new SessionService with an in-memory session registry.
func NewSessionService(profiles repository.ProfileRepository, merger *RatingMerger, clk clock.Clock) SessionService {
	if clk == nil {
		clk = clock.New()
	}
	return &sessionService{
		profiles: profiles,
		merger:   merger,
		clock:    clk,
		sessions: make(map[uuid.UUID]*model.Session),
	}
}

func (s *sessionService) SignIn(ctx context.Context, input SignInInput) (*SignInOutput, error) {
	if input.UserID == uuid.Nil {
		return nil, model.ErrInvalidUserID
	}

	session, done, err := s.beginSync(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if done {
		// Already synced for this user: the merge runs once per sign-in.
		return &SignInOutput{Session: session}, nil
	}

	out, err := s.sync(ctx, input)
	if err != nil {
		metrics.RatingSyncsTotal.WithLabelValues(metrics.SyncResultFailed).Inc()
		_, _ = s.finish(session.ID, session.Attempt, func(sess *model.Session) error { return sess.AbortSync() })
		slog.Error("rating sync failed",
			"session_id", session.ID,
			"user_id", input.UserID,
			"error", err,
		)
		return nil, err
	}
	metrics.RatingsMergedTotal.Add(float64(out.Added))

	synced, err := s.finish(session.ID, session.Attempt, func(sess *model.Session) error {
		return sess.CompleteSync(s.clock.Now())
	})
	if err != nil {
		metrics.RatingSyncsTotal.WithLabelValues(metrics.SyncResultFailed).Inc()
		return nil, err
	}
	metrics.RatingSyncsTotal.WithLabelValues(metrics.SyncResultSynced).Inc()

	out.Session = synced
	return out, nil
}

// beginSync registers or loads the session and moves it to SYNCING.
// done is true when the session is already synced for userID.
func (s *sessionService) beginSync(sessionID, userID uuid.UUID) (*model.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session *model.Session
	if sessionID == uuid.Nil {
		session = model.NewSession()
		s.sessions[session.ID] = session
	} else {
		existing, ok := s.sessions[sessionID]
		if !ok {
			return nil, false, ErrSessionNotFound
		}
		session = existing
	}

	if session.IsSynced() && session.UserID == userID {
		snapshot := *session
		return &snapshot, true, nil
	}

	if err := session.BeginSync(userID); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return nil, false, ErrSessionBusy
		}
		return nil, false, err
	}

	snapshot := *session
	return &snapshot, false, nil
}

// sync loads or creates the profile, merges and persists the added ratings.
func (s *sessionService) sync(ctx context.Context, input SignInInput) (*SignInOutput, error) {
	profile, err := s.loadOrCreateProfile(ctx, input)
	if err != nil {
		return nil, err
	}

	result := s.merger.MergeLocalRatings(ctx, input.LocalRatings, profile.Ratings)

	// The profile was read before resolving titles; a rating written since
	// then must survive, so only keys still missing are added.
	stats := result.Stats
	if len(result.Added) > 0 {
		stats, err = s.profiles.AddMissingRatings(ctx, input.UserID, result.Added)
		if err != nil {
			return nil, fmt.Errorf("persist merged ratings: %w", err)
		}
	}

	return &SignInOutput{
		Stats:   stats,
		Added:   len(result.Added),
		Skipped: result.Skipped,
	}, nil
}

func (s *sessionService) loadOrCreateProfile(ctx context.Context, input SignInInput) (*model.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, input.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	profile, err = model.NewProfile(input.UserID, input.Email, input.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateProfile) {
			// Created concurrently; use the stored one.
			return s.profiles.GetByUserID(ctx, input.UserID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

func (s *sessionService) SignOut(_ context.Context, sessionID uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := session.SignOut(); err != nil {
		return nil, err
	}

	snapshot := *session
	return &snapshot, nil
}

func (s *sessionService) GetSession(_ context.Context, sessionID uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	snapshot := *session
	return &snapshot, nil
}

// finish applies fn to the registered session only while it is still
// syncing for the sign-in numbered attempt. A session signed out or signed in
// again in the meantime is left alone and ErrSyncSuperseded is returned.
func (s *sessionService) finish(sessionID uuid.UUID, attempt uint64, fn func(*model.Session) error) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.IsSyncing(attempt) {
		slog.Warn("discarding stale sync result",
			"session_id", sessionID,
			"attempt", attempt,
			"current_attempt", session.Attempt,
			"state", session.State.String(),
		)
		return nil, ErrSyncSuperseded
	}
	if err := fn(session); err != nil {
		return nil, err
	}

	snapshot := *session
	return &snapshot, nil
}
