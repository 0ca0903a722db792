// Package session manages bearer admin sessions: creation after a successful
// two-factor authentication, lazy expiry on validation, explicit and bulk
// invalidation. The store is intentionally volatile — no session survives a
// process (or cache) restart.
package session

import (
	"context"
	"errors"
	"sync"

	"admin-auth-service/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Store abstracts session persistence so deployments can pick an in-memory
// map (single instance, tests) or a shared cache (multi-instance).
type Store interface {
	Get(ctx context.Context, sessionID string) (*model.AdminSession, error)
	Put(ctx context.Context, session *model.AdminSession) error
	Delete(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// MemoryStore is a concurrency-safe in-process store. Values are copied on
// the way in and out so callers never share mutable state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.AdminSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.AdminSession)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*model.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Put(_ context.Context, session *model.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = *session
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]model.AdminSession)
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
