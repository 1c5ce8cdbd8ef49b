package session

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// cacheTTL bounds how long a role or status change takes to reach a
	// signed in user.
	cacheTTL      = 30 * time.Second
	touchInterval = 5 * time.Minute
)

// Repository is the persistence the store needs
type Repository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type cached struct {
	session  *models.Session
	loadedAt time.Time
}

// Store keeps sessions in the database with a short in-memory cache in front
type Store struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]cached
}

func NewStore(repo Repository, ttl time.Duration) *Store {
	return &Store{
		repo:     repo,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]cached),
	}
}

// Create starts a session for the user
func (s *Store) Create(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		Status:     user.Status,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = cached{session: sess, loadedAt: now}
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session or nil when it is unknown or expired
func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	now := s.now()

	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && now.Sub(entry.loadedAt) < cacheTTL {
		if now.After(entry.session.ExpiresAt) {
			s.forget(sessionID)
			return nil, nil
		}
		return entry.session, nil
	}

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || now.After(sess.ExpiresAt) {
		s.forget(sessionID)
		return nil, nil
	}

	if now.Sub(sess.LastUsedAt) > touchInterval {
		if err := s.repo.TouchSession(ctx, sessionID, now); err == nil {
			sess.LastUsedAt = now
		}
	}

	s.mu.Lock()
	s.sessions[sessionID] = cached{session: sess, loadedAt: now}
	s.mu.Unlock()
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.forget(sessionID)
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *Store) forget(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// DeleteExpired purges expired sessions from the database and the cache
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	for id, entry := range s.sessions {
		if now.After(entry.session.ExpiresAt) || now.Sub(entry.loadedAt) >= cacheTTL {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	return s.repo.DeleteExpiredSessions(ctx, now)
}
