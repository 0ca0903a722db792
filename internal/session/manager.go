package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/model"
)

const tokenBytes = 32

// Manager creates and validates admin sessions. The TTL is absolute: it is
// stamped at creation and never refreshed by activity.
type Manager struct {
	store         Store
	recorder      *audit.Recorder
	ttl           time.Duration
	enforceOrigin bool
	now           func() time.Time
}

func NewManager(store Store, recorder *audit.Recorder, ttl time.Duration, enforceOrigin bool) *Manager {
	return &Manager{
		store:         store,
		recorder:      recorder,
		ttl:           ttl,
		enforceOrigin: enforceOrigin,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Test hook only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create mints a new session for an authenticated admin. The session ID is
// an unguessable 256-bit token, the only thing a caller ever needs to
// present afterwards.
func (m *Manager) Create(ctx context.Context, level model.AccessLevel, origin, clientSignature string) (*model.AdminSession, error) {
	token := make([]byte, tokenBytes)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now().UTC()
	session := &model.AdminSession{
		SessionID:       hex.EncodeToString(token),
		AccessLevel:     level,
		OriginAddress:   origin,
		ClientSignature: clientSignature,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
		LastActivityAt:  now,
		IsActive:        true,
	}

	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Validate resolves a session ID and applies lazy expiry: an expired session
// is invalidated the first time it is seen past its deadline, and a
// SESSION_INVALIDATED event is recorded exactly once. On success the
// session's last-activity timestamp is refreshed; its expiry is not.
func (m *Manager) Validate(ctx context.Context, sessionID, origin string) (*model.AdminSession, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionNotFound
	}

	now := m.now().UTC()
	if session.Expired(now) {
		session.IsActive = false
		if err := m.store.Put(ctx, session); err == nil {
			m.recorder.Record(model.EventSessionInvalidated, map[string]string{
				"session_id":   session.SessionID,
				"access_level": string(session.AccessLevel),
				"reason":       "expired",
			})
		}
		return nil, ErrSessionExpired
	}

	if origin != "" && session.OriginAddress != origin {
		m.recorder.Record(model.EventSessionIPMismatch, map[string]string{
			"session_id":      session.SessionID,
			"access_level":    string(session.AccessLevel),
			"expected_origin": session.OriginAddress,
			"actual_origin":   origin,
		})
		if m.enforceOrigin {
			_ = m.Invalidate(ctx, session.SessionID, "origin_mismatch")
			return nil, ErrSessionNotFound
		}
	}

	session.LastActivityAt = now
	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	return session, nil
}

// Invalidate terminates a session. Unknown or already-terminated sessions
// are a no-op so logout is idempotent.
func (m *Manager) Invalidate(ctx context.Context, sessionID, reason string) error {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil
	}

	wasActive := session.IsActive
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if wasActive {
		m.recorder.Record(model.EventSessionInvalidated, map[string]string{
			"session_id":   session.SessionID,
			"access_level": string(session.AccessLevel),
			"reason":       reason,
		})
	}
	return nil
}

// InvalidateAll clears every session. Emergency-response lever.
func (m *Manager) InvalidateAll(ctx context.Context, requestedBy string) error {
	count, err := m.store.Len(ctx)
	if err != nil {
		count = -1
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	m.recorder.Record(model.EventAllSessionsCleared, map[string]string{
		"requested_by":  requestedBy,
		"session_count": fmt.Sprintf("%d", count),
	})
	return nil
}

// ActiveCount reports how many sessions the store currently holds.
func (m *Manager) ActiveCount(ctx context.Context) (int, error) {
	return m.store.Len(ctx)
}
