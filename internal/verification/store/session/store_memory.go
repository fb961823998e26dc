package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

// InMemoryStore keeps sessions in process for tests and single-node dev.
// Mutations on one session are serialized by a per-session mutex; different
// sessions never contend beyond the short map lookups.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	locks    map[id.SessionID]*sync.Mutex
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[id.SessionID]*models.Session),
		locks:    make(map[id.SessionID]*sync.Mutex),
	}
}

func (s *InMemoryStore) lockFor(sessionID id.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *InMemoryStore) load(sessionID id.SessionID) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrConflict)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// FindByID returns a copy of the session. Expired and registered sessions are
// unreachable.
func (s *InMemoryStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	sess, ok := s.load(sessionID)
	if !ok || sess.Stage == models.StageRegistered {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrExpired)
	}
	return sess.Clone(), nil
}

// Execute runs validate then mutate on a working copy while holding the
// session's lock. The copy replaces the stored session only if validate passes
// and the mutated session still satisfies its invariants.
func (s *InMemoryStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	stored, ok := s.load(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	now := requestcontext.Now(ctx)
	if stored.IsExpired(now) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrExpired)
	}

	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.UpdatedAt = now
	if err := working.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, still := s.sessions[sessionID]; !still {
		s.mu.Unlock()
		return nil, fmt.Errorf("session deleted concurrently: %w", sentinel.ErrNotFound)
	}
	s.sessions[sessionID] = working
	s.mu.Unlock()

	return working.Clone(), nil
}

func (s *InMemoryStore) AdvanceToFaceVerified(ctx context.Context, sessionID id.SessionID, match models.MatchResult, selfieKey string) error {
	return advanceToFaceVerified(ctx, s, sessionID, match, selfieKey)
}

func (s *InMemoryStore) AdvanceToRegistered(ctx context.Context, sessionID id.SessionID, decision models.RiskDecision) error {
	return advanceToRegistered(ctx, s, sessionID, decision)
}

// Delete is idempotent.
func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.locks, sessionID)
	return nil
}

// ListExpired returns sessions past ExpiresAt that have not been registered
// or swept yet, oldest first. Registered sessions past ExpiresAt are dropped.
func (s *InMemoryStore) ListExpired(_ context.Context, now time.Time) ([]id.SessionID, error) {
	s.mu.Lock()
	var stale []*models.Session
	for sessionID, sess := range s.sessions {
		if sess.ExpiresAt.IsZero() || !sess.ExpiresAt.Before(now) {
			continue
		}
		switch sess.Stage {
		case models.StageRegistered:
			delete(s.sessions, sessionID)
			delete(s.locks, sessionID)
		case models.StageExpired:
		default:
			stale = append(stale, sess)
		}
	}
	s.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool { return stale[i].ExpiresAt.Before(stale[j].ExpiresAt) })
	ids := make([]id.SessionID, 0, len(stale))
	for _, sess := range stale {
		ids = append(ids, sess.ID)
	}
	return ids, nil
}

// MarkExpired moves a stale session to the expired stage. Registered and
// already expired sessions are left untouched.
func (s *InMemoryStore) MarkExpired(_ context.Context, sessionID id.SessionID, now time.Time) error {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if sess.Stage == models.StageRegistered {
		return fmt.Errorf("session %s is registered: %w", sessionID, sentinel.ErrInvalidState)
	}
	if sess.Stage == models.StageExpired {
		return nil
	}
	expired := sess.Clone()
	expired.Stage = models.StageExpired
	expired.FinalizingUntil = time.Time{}
	expired.UpdatedAt = now
	s.sessions[sessionID] = expired
	return nil
}
