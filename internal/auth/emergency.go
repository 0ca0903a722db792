package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/util"
)

const (
	emergencyCodeBytes  = 32
	emergencyUsedPrefix = "emergency_used:"
	// redactKeep is how many leading characters of an emergency code are
	// allowed into the event stream.
	redactKeep = 8
)

var (
	ErrEmergencyExpired  = errors.New("emergency code expired")
	ErrEmergencyConsumed = errors.New("emergency code already used")
)

// EmergencyIssuer mints short-lived break-glass codes. Issuance is stateless:
// nothing is persisted, the grant is the only copy of the code, and the
// recorded event carries a redacted prefix only.
type EmergencyIssuer struct {
	recorder *audit.Recorder
	ttl      time.Duration
	now      func() time.Time
}

func NewEmergencyIssuer(recorder *audit.Recorder, ttl time.Duration) *EmergencyIssuer {
	return &EmergencyIssuer{recorder: recorder, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (i *EmergencyIssuer) WithClock(now func() time.Time) *EmergencyIssuer {
	i.now = now
	return i
}

func (i *EmergencyIssuer) Issue(requestedBy string) (*model.EmergencyAccessGrant, error) {
	raw := make([]byte, emergencyCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate emergency code: %w", err)
	}

	grant := &model.EmergencyAccessGrant{
		Code:       hex.EncodeToString(raw),
		ValidUntil: i.now().UTC().Add(i.ttl),
	}

	i.recorder.Record(model.EventEmergencyIssued, map[string]string{
		"requested_by": requestedBy,
		"code_prefix":  util.RedactSecret(grant.Code, redactKeep),
		"valid_until":  grant.ValidUntil.Format(time.RFC3339),
	})
	return grant, nil
}

// RedemptionStore holds write-once consumption markers. Satisfied by the
// Redis client for shared deployments and by MemoryRedemptionStore otherwise.
type RedemptionStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryRedemptionStore keeps consumption markers in process memory.
type MemoryRedemptionStore struct {
	mu      sync.Mutex
	markers map[string]time.Time
	now     func() time.Time
}

func NewMemoryRedemptionStore() *MemoryRedemptionStore {
	return &MemoryRedemptionStore{markers: make(map[string]time.Time), now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (s *MemoryRedemptionStore) WithClock(now func() time.Time) *MemoryRedemptionStore {
	s.now = now
	return s
}

func (s *MemoryRedemptionStore) SetNX(_ context.Context, key string, _ interface{}, expiration time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.markers[key]; ok && s.now().Before(until) {
		return false, nil
	}
	s.markers[key] = s.now().Add(expiration)
	return true, nil
}

func (s *MemoryRedemptionStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.markers[key]
	return ok && s.now().Before(until), nil
}

// EmergencyRedeemer enforces single use of an issued code. The code itself
// never touches the store: a SHA-256 fingerprint marks consumption.
type EmergencyRedeemer struct {
	store    RedemptionStore
	recorder *audit.Recorder
	ttl      time.Duration
	now      func() time.Time
}

func NewEmergencyRedeemer(store RedemptionStore, recorder *audit.Recorder, ttl time.Duration) *EmergencyRedeemer {
	return &EmergencyRedeemer{store: store, recorder: recorder, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (r *EmergencyRedeemer) WithClock(now func() time.Time) *EmergencyRedeemer {
	r.now = now
	return r
}

// Redeem consumes a grant exactly once. The consumption marker outlives the
// grant, so a replay after expiry reads as consumed rather than merely
// expired; an expired code that was never redeemed burns no marker.
func (r *EmergencyRedeemer) Redeem(ctx context.Context, grant *model.EmergencyAccessGrant, requestedBy string) error {
	sum := sha256.Sum256([]byte(grant.Code))
	key := emergencyUsedPrefix + hex.EncodeToString(sum[:])

	if r.now().UTC().After(grant.ValidUntil) {
		consumed, err := r.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check emergency code: %w", err)
		}
		if consumed {
			return ErrEmergencyConsumed
		}
		return ErrEmergencyExpired
	}

	acquired, err := r.store.SetNX(ctx, key, "1", r.ttl*2)
	if err != nil {
		return fmt.Errorf("failed to mark emergency code: %w", err)
	}
	if !acquired {
		return ErrEmergencyConsumed
	}

	r.recorder.Record(model.EventEmergencyRedeemed, map[string]string{
		"requested_by": requestedBy,
		"code_prefix":  util.RedactSecret(grant.Code, redactKeep),
	})
	return nil
}
