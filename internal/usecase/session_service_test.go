package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/domain/model"
	"github.com/hszk-dev/movierec/internal/domain/repository"
)

// memoryProfiles is an in-memory ProfileRepository. afterGet, when set, runs
// after every GetByUserID read with no lock held.
type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.Profile
	writes   int
	writeErr error
	afterGet func(userID uuid.UUID)
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{profiles: make(map[uuid.UUID]*model.Profile)}
}

func copyProfile(p *model.Profile) *model.Profile {
	cp := *p
	cp.Ratings = p.Ratings.Clone()
	cp.Preferences = model.Preferences{
		FavoriteGenres: append([]string{}, p.Preferences.FavoriteGenres...),
		Watchlist:      append([]model.ListEntry{}, p.Preferences.Watchlist...),
		Favorites:      append([]model.ListEntry{}, p.Preferences.Favorites...),
	}
	return &cp
}

func (m *memoryProfiles) stored(userID uuid.UUID) *model.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID]
}

func (m *memoryProfiles) Create(ctx context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.UserID]; ok {
		return repository.ErrDuplicateProfile
	}
	m.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func (m *memoryProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	m.mu.Lock()
	p, ok := m.profiles[userID]
	var cp *model.Profile
	if ok {
		cp = copyProfile(p)
	}
	m.mu.Unlock()

	if m.afterGet != nil {
		m.afterGet(userID)
	}
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return cp, nil
}

func (m *memoryProfiles) MergeRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	return m.writeRatings(userID, patch, true)
}

func (m *memoryProfiles) AddMissingRatings(ctx context.Context, userID uuid.UUID, patch model.Ratings) (model.RatingStats, error) {
	return m.writeRatings(userID, patch, false)
}

func (m *memoryProfiles) writeRatings(userID uuid.UUID, patch model.Ratings, overwrite bool) (model.RatingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return model.RatingStats{}, m.writeErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return model.RatingStats{}, repository.ErrProfileNotFound
	}
	for id, rec := range patch {
		if _, exists := p.Ratings[id]; exists && !overwrite {
			continue
		}
		p.SetRating(rec)
	}
	return p.Stats, nil
}

func (m *memoryProfiles) AddToList(ctx context.Context, userID uuid.UUID, list model.ListKind, entry model.ListEntry) ([]model.ListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	if !p.Preferences.Contains(list, entry.MovieID) {
		switch list {
		case model.ListWatchlist:
			p.Preferences.Watchlist = append(p.Preferences.Watchlist, entry)
		case model.ListFavorites:
			p.Preferences.Favorites = append(p.Preferences.Favorites, entry)
		default:
			return nil, model.ErrInvalidList
		}
	}
	return append([]model.ListEntry{}, p.Preferences.List(list)...), nil
}

func (m *memoryProfiles) RemoveFromList(ctx context.Context, userID uuid.UUID, list model.ListKind, movieID int) ([]model.ListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	if !list.IsValid() {
		return nil, model.ErrInvalidList
	}
	kept := []model.ListEntry{}
	for _, e := range p.Preferences.List(list) {
		if e.MovieID != movieID {
			kept = append(kept, e)
		}
	}
	if list == model.ListWatchlist {
		p.Preferences.Watchlist = kept
	} else {
		p.Preferences.Favorites = kept
	}
	return append([]model.ListEntry{}, kept...), nil
}

func (m *memoryProfiles) UpdateFavoriteGenres(ctx context.Context, userID uuid.UUID, genres []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.Preferences.FavoriteGenres = append([]string{}, genres...)
	return nil
}

var testCatalog = map[int]repository.CatalogMovie{1: {ID: 1, Title: "Toy Story (1995)"}}

func newTestSessionService(profiles repository.ProfileRepository) SessionService {
	clk := clock.NewManual(testStart)
	return NewSessionService(profiles, NewRatingMerger(NewMovieResolver(catalogWith(testCatalog)), clk), clk)
}

func TestSessionService_SignIn_NewProfile(t *testing.T) {
	profiles := newMemoryProfiles()
	svc := newTestSessionService(profiles)
	userID := uuid.New()

	out, err := svc.SignIn(context.Background(), SignInInput{
		UserID:       userID,
		Email:        "user@example.com",
		DisplayName:  "User",
		LocalRatings: model.LocalRatings{1: 5, 2: 3, 3: 0},
	})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if out.Session == nil || out.Session.State != model.SyncStateSynced || out.Session.UserID != userID {
		t.Errorf("session = %+v, want SYNCED for user", out.Session)
	}
	if !out.Session.SyncedAt.Equal(testStart) {
		t.Errorf("SyncedAt = %v", out.Session.SyncedAt)
	}
	if out.Added != 2 || out.Stats.TotalRatings != 2 {
		t.Errorf("Added = %d, TotalRatings = %d, want 2/2", out.Added, out.Stats.TotalRatings)
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != 3 {
		t.Errorf("Skipped = %v, want [3]", out.Skipped)
	}

	stored := profiles.stored(userID)
	if stored == nil || stored.Email != "user@example.com" {
		t.Fatalf("profile not created: %+v", stored)
	}
	if stored.Ratings[1].MovieTitle != "Toy Story (1995)" || stored.Ratings[2].MovieTitle != "Movie 2" {
		t.Errorf("stored ratings = %+v", stored.Ratings)
	}
}

func TestSessionService_SignIn_RemoteWins(t *testing.T) {
	profiles := newMemoryProfiles()
	userID := uuid.New()
	existing, _ := model.NewProfile(userID, "u@example.com", "U")
	existing.SetRating(model.RatingRecord{MovieID: 1, Rating: 1, Review: "nope", MovieTitle: "Toy Story (1995)"})
	_ = profiles.Create(context.Background(), existing)

	svc := newTestSessionService(profiles)

	out, err := svc.SignIn(context.Background(), SignInInput{
		UserID:       userID,
		LocalRatings: model.LocalRatings{1: 5},
	})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if out.Added != 0 {
		t.Errorf("Added = %d, want 0", out.Added)
	}
	if out.Stats.TotalRatings != 1 {
		t.Errorf("TotalRatings = %d", out.Stats.TotalRatings)
	}
	if profiles.writes != 0 {
		t.Errorf("ratings written %d times with nothing to add", profiles.writes)
	}
	if got := profiles.stored(userID).Ratings[1]; got.Rating != 1 || got.Review != "nope" {
		t.Errorf("remote rating replaced: %+v", got)
	}
}

func TestSessionService_SignIn_Idempotent(t *testing.T) {
	profiles := newMemoryProfiles()
	svc := newTestSessionService(profiles)
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.SignIn(ctx, SignInInput{UserID: userID, LocalRatings: model.LocalRatings{1: 4}})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	second, err := svc.SignIn(ctx, SignInInput{
		SessionID:    first.Session.ID,
		UserID:       userID,
		LocalRatings: model.LocalRatings{2: 4},
	})
	if err != nil {
		t.Fatalf("second SignIn() error = %v", err)
	}
	if second.Session.ID != first.Session.ID || second.Added != 0 {
		t.Errorf("second sign-in re-merged: %+v", second)
	}
	if profiles.writes != 1 {
		t.Errorf("rating writes = %d, want 1", profiles.writes)
	}

	if _, err := svc.SignIn(ctx, SignInInput{SessionID: first.Session.ID, UserID: uuid.New()}); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("sign-in as another user error = %v, want ErrSessionBusy", err)
	}
}

func TestSessionService_SignIn_Errors(t *testing.T) {
	tests := []struct {
		name     string
		profiles repository.ProfileRepository
		input    SignInInput
		wantErr  error
	}{
		{
			name:     "nil user",
			profiles: newMemoryProfiles(),
			input:    SignInInput{},
			wantErr:  model.ErrInvalidUserID,
		},
		{
			name:     "unknown session",
			profiles: newMemoryProfiles(),
			input:    SignInInput{SessionID: uuid.New(), UserID: uuid.New()},
			wantErr:  ErrSessionNotFound,
		},
		{
			name: "profile load failure",
			profiles: &mockProfileRepository{
				getByUserIDFn: func(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
					return nil, errors.New("db down")
				},
			},
			input: SignInInput{UserID: uuid.New()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestSessionService(tt.profiles)

			_, err := svc.SignIn(context.Background(), tt.input)
			if err == nil {
				t.Fatal("SignIn() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionService_SignIn_PersistFailureRetries(t *testing.T) {
	profiles := newMemoryProfiles()
	profiles.writeErr = errors.New("write conflict")
	svc := newTestSessionService(profiles)
	userID := uuid.New()
	ctx := context.Background()

	// Register a session so the retry can reuse it.
	first, err := svc.SignIn(ctx, SignInInput{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if _, err := svc.SignOut(ctx, first.Session.ID); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	_, err = svc.SignIn(ctx, SignInInput{SessionID: first.Session.ID, UserID: userID, LocalRatings: model.LocalRatings{1: 5}})
	if err == nil {
		t.Fatal("expected persist failure")
	}

	session, err := svc.GetSession(ctx, first.Session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.State != model.SyncStateAnonymous {
		t.Errorf("State = %s, want ANONYMOUS after failed sync", session.State)
	}

	profiles.writeErr = nil
	out, err := svc.SignIn(ctx, SignInInput{SessionID: first.Session.ID, UserID: userID, LocalRatings: model.LocalRatings{1: 5}})
	if err != nil {
		t.Fatalf("retry SignIn() error = %v", err)
	}
	if out.Added != 1 || out.Session.State != model.SyncStateSynced {
		t.Errorf("retry = %+v", out)
	}
}

func TestSessionService_SignIn_DuplicateProfileReloads(t *testing.T) {
	userID := uuid.New()
	stored, _ := model.NewProfile(userID, "u@example.com", "U")
	gets := 0
	profiles := &mockProfileRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
			gets++
			if gets == 1 {
				return nil, repository.ErrProfileNotFound
			}
			return stored, nil
		},
		createFn: func(ctx context.Context, profile *model.Profile) error {
			return repository.ErrDuplicateProfile
		},
	}
	svc := newTestSessionService(profiles)

	out, err := svc.SignIn(context.Background(), SignInInput{UserID: userID, LocalRatings: model.LocalRatings{1: 3}})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if gets != 2 {
		t.Errorf("GetByUserID calls = %d, want 2", gets)
	}
	if out.Added != 1 {
		t.Errorf("Added = %d", out.Added)
	}
}

func TestSessionService_SignOut(t *testing.T) {
	svc := newTestSessionService(newMemoryProfiles())
	ctx := context.Background()

	if _, err := svc.SignOut(ctx, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SignOut() unknown error = %v", err)
	}

	out, err := svc.SignIn(ctx, SignInInput{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	session, err := svc.SignOut(ctx, out.Session.ID)
	if err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if session.State != model.SyncStateAnonymous || session.UserID != uuid.Nil {
		t.Errorf("session = %+v, want anonymous", session)
	}

	if _, err := svc.SignOut(ctx, out.Session.ID); err != nil {
		t.Errorf("second SignOut() error = %v", err)
	}

	if _, err := svc.GetSession(ctx, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() unknown error = %v", err)
	}
}

func TestSessionService_SnapshotsAreCopies(t *testing.T) {
	svc := newTestSessionService(newMemoryProfiles())
	ctx := context.Background()

	out, err := svc.SignIn(ctx, SignInInput{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	out.Session.State = model.SyncStateAnonymous

	session, _ := svc.GetSession(ctx, out.Session.ID)
	if session.State != model.SyncStateSynced {
		t.Errorf("registry mutated through snapshot: %s", session.State)
	}
}

func TestSessionService_SignIn_KeepsRatingWrittenDuringSync(t *testing.T) {
	ctx := context.Background()
	profiles := newMemoryProfiles()
	userID := uuid.New()
	existing, _ := model.NewProfile(userID, "u@example.com", "U")
	_ = profiles.Create(ctx, existing)

	clk := clock.NewManual(testStart)
	resolver := NewMovieResolver(catalogWith(testCatalog))
	ratings := NewRatingService(profiles, resolver, clk)
	svc := NewSessionService(profiles, NewRatingMerger(resolver, clk), clk)

	// The user rates movie 1 from another device after sign-in read the
	// profile and before it writes the merged ratings.
	fired := false
	profiles.afterGet = func(id uuid.UUID) {
		if fired {
			return
		}
		fired = true
		if _, err := ratings.RateMovie(ctx, RateMovieInput{UserID: id, MovieID: 1, Rating: 5}); err != nil {
			t.Errorf("RateMovie() error = %v", err)
		}
	}

	out, err := svc.SignIn(ctx, SignInInput{UserID: userID, LocalRatings: model.LocalRatings{1: 2, 2: 4}})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if !fired {
		t.Fatal("concurrent rating was never written")
	}

	stored := profiles.stored(userID)
	if got := stored.Ratings[1].Rating; got != 5 {
		t.Errorf("rating for movie 1 = %d, want the remote 5 to survive the local 2", got)
	}
	if got := stored.Ratings[2].Rating; got != 4 {
		t.Errorf("rating for movie 2 = %d, want 4", got)
	}
	if out.Stats.TotalRatings != 2 {
		t.Errorf("TotalRatings = %d, want 2", out.Stats.TotalRatings)
	}
}

func TestSessionService_StaleSyncDoesNotFinishLaterSignIn(t *testing.T) {
	ctx := context.Background()
	profiles := newMemoryProfiles()
	svc := newTestSessionService(profiles)

	first, err := svc.SignIn(ctx, SignInInput{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	sessionID := first.Session.ID
	if _, err := svc.SignOut(ctx, sessionID); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	userA, userB := uuid.New(), uuid.New()
	gates := map[uuid.UUID]chan struct{}{
		userA: make(chan struct{}),
		userB: make(chan struct{}),
	}
	reached := make(chan uuid.UUID, 2)
	profiles.afterGet = func(id uuid.UUID) {
		if gate, ok := gates[id]; ok {
			reached <- id
			<-gate
		}
	}

	type result struct {
		out *SignInOutput
		err error
	}
	signIn := func(userID uuid.UUID) <-chan result {
		done := make(chan result, 1)
		go func() {
			out, err := svc.SignIn(ctx, SignInInput{SessionID: sessionID, UserID: userID, LocalRatings: model.LocalRatings{1: 3}})
			done <- result{out, err}
		}()
		return done
	}

	doneA := signIn(userA)
	<-reached

	// A is mid-sync when the session signs out and B signs in.
	if _, err := svc.SignOut(ctx, sessionID); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	doneB := signIn(userB)
	<-reached

	close(gates[userA])
	resA := <-doneA
	if !errors.Is(resA.err, ErrSyncSuperseded) {
		t.Fatalf("stale SignIn() error = %v, want %v", resA.err, ErrSyncSuperseded)
	}

	session, _ := svc.GetSession(ctx, sessionID)
	if session.State != model.SyncStateSyncing || session.UserID != userB {
		t.Fatalf("session after stale finish = %+v, want SYNCING for B", session)
	}

	close(gates[userB])
	resB := <-doneB
	if resB.err != nil {
		t.Fatalf("SignIn() for B error = %v", resB.err)
	}
	if resB.out.Session.State != model.SyncStateSynced || resB.out.Session.UserID != userB {
		t.Errorf("session = %+v, want SYNCED for B", resB.out.Session)
	}
}
