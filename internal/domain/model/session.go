package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SyncState is the rating synchronization state of a session.
type SyncState string

const (
	SyncStateAnonymous SyncState = "ANONYMOUS"
	SyncStateSyncing   SyncState = "SYNCING"
	SyncStateSynced    SyncState = "SYNCED"
)

// Valid state transitions:
// ANONYMOUS -> SYNCING -> SYNCED
//     ^           |         |
//     +-----------+---------+  (sign-out, or failed persist from SYNCING)
var validSyncTransitions = map[SyncState][]SyncState{
	SyncStateAnonymous: {SyncStateSyncing},
	SyncStateSyncing:   {SyncStateSynced, SyncStateAnonymous},
	SyncStateSynced:    {SyncStateAnonymous},
}

var (
	ErrInvalidTransition   = errors.New("invalid sync state transition")
	ErrSessionUserRequired = errors.New("signed-in session requires a user ID")
)

func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateAnonymous, SyncStateSyncing, SyncStateSynced:
		return true
	default:
		return false
	}
}

func (s SyncState) CanTransitionTo(next SyncState) bool {
	allowed, exists := validSyncTransitions[s]
	if !exists {
		return false
	}
	for _, state := range allowed {
		if state == next {
			return true
		}
	}
	return false
}

func (s SyncState) String() string {
	return string(s)
}

// Session tracks one browser session and whether its anonymous ratings have
// been reconciled with the signed-in user's profile. Attempt counts sign-ins;
// a sync started by one sign-in must not finish a later one.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	State     SyncState
	Attempt   uint64
	SyncedAt  time.Time
	UpdatedAt time.Time
}

// NewSession creates an anonymous session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New(),
		State:     SyncStateAnonymous,
		UpdatedAt: time.Now(),
	}
}

// TransitionTo attempts to change the session state.
func (s *Session) TransitionTo(next SyncState) error {
	if !next.IsValid() || !s.State.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	s.State = next
	s.UpdatedAt = time.Now()
	return nil
}

// BeginSync handles a sign-in event: ANONYMOUS -> SYNCING for userID.
func (s *Session) BeginSync(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrSessionUserRequired
	}
	if err := s.TransitionTo(SyncStateSyncing); err != nil {
		return err
	}
	s.UserID = userID
	s.Attempt++
	return nil
}

// IsSyncing reports whether the sign-in numbered attempt is still merging.
func (s *Session) IsSyncing(attempt uint64) bool {
	return s.State == SyncStateSyncing && s.Attempt == attempt
}

// CompleteSync marks the merge as done: SYNCING -> SYNCED.
func (s *Session) CompleteSync(at time.Time) error {
	if err := s.TransitionTo(SyncStateSynced); err != nil {
		return err
	}
	s.SyncedAt = at
	return nil
}

// AbortSync returns a session whose merge failed to ANONYMOUS so the next
// sign-in retries it.
func (s *Session) AbortSync() error {
	if s.State != SyncStateSyncing {
		return ErrInvalidTransition
	}
	return s.SignOut()
}

// SignOut returns the session to ANONYMOUS. Signing out an anonymous session is a no-op.
func (s *Session) SignOut() error {
	if s.State == SyncStateAnonymous {
		return nil
	}
	if err := s.TransitionTo(SyncStateAnonymous); err != nil {
		return err
	}
	s.UserID = uuid.Nil
	s.SyncedAt = time.Time{}
	return nil
}

// IsSynced reports whether the session's ratings were reconciled.
func (s *Session) IsSynced() bool {
	return s.State == SyncStateSynced
}
