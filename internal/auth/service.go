// Package auth orchestrates multi-factor admin authentication: origin
// throttling, master credential verification, time-step code verification,
// then session minting. Failures are reported with deliberately generic
// errors so responses never reveal which factor failed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/credential"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/ratelimit"
	"admin-auth-service/internal/session"
	"admin-auth-service/internal/totp"
	"admin-auth-service/internal/util"
)

// ErrInvalidCredentials and ErrInvalidCode are distinct values carrying the
// same message, so callers can branch internally while responses never reveal
// which factor failed.
var (
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	ErrInvalidCode        = errors.New("invalid admin credentials")
	ErrRateLimited        = errors.New("too many failed attempts")
	ErrSystem             = errors.New("authentication system error")
)

// Service is the authentication entry point. All dependencies are injected
// so tests can swap the limiter, store, and verifier.
type Service struct {
	verifier  credential.MasterVerifier
	limiter   ratelimit.Limiter
	sessions  *session.Manager
	recorder  *audit.Recorder
	masterKey string
	issuer    string
	skew      uint
	now       func() time.Time
}

func NewService(
	verifier credential.MasterVerifier,
	limiter ratelimit.Limiter,
	sessions *session.Manager,
	recorder *audit.Recorder,
	masterKey, issuer string,
	skew uint,
) *Service {
	return &Service{
		verifier:  verifier,
		limiter:   limiter,
		sessions:  sessions,
		recorder:  recorder,
		masterKey: masterKey,
		issuer:    issuer,
		skew:      skew,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Request carries one authentication attempt.
type Request struct {
	AccessLevel     model.AccessLevel
	MasterPassword  string
	TimeCode        string
	OriginAddress   string
	ClientSignature string
}

// Authenticate runs the full factor chain. The throttle is checked first: a
// blocked origin is rejected before any credential is examined, so a lockout
// cannot be probed with known-good credentials.
func (s *Service) Authenticate(ctx context.Context, req Request) (*model.AdminSession, error) {
	if !req.AccessLevel.Valid() {
		return nil, ErrInvalidCredentials
	}

	blocked, err := s.limiter.IsBlocked(ctx, req.OriginAddress)
	if err != nil {
		util.Error("Throttle lookup failed", zap.Error(err))
		return nil, ErrSystem
	}
	if blocked {
		s.recorder.Record(model.EventAuthBlocked, map[string]string{
			"origin_address": req.OriginAddress,
			"access_level":   string(req.AccessLevel),
		})
		return nil, ErrRateLimited
	}

	now := s.now().UTC()

	ok, err := s.verifier.Verify(req.MasterPassword, req.AccessLevel, now)
	if err != nil {
		util.Error("Master verification failed", zap.Error(err))
		return nil, ErrSystem
	}
	if !ok {
		s.recordFailure(ctx, req, "invalid_master_password")
		return nil, ErrInvalidCredentials
	}

	secret := totp.DeriveSecret(s.masterKey, req.AccessLevel)
	ok, err = totp.VerifyCode(secret, req.TimeCode, now, s.skew)
	if err != nil {
		util.Error("Code verification failed", zap.Error(err))
		return nil, ErrSystem
	}
	if !ok {
		s.recordFailure(ctx, req, "invalid_totp")
		return nil, ErrInvalidCode
	}

	adminSession, err := s.sessions.Create(ctx, req.AccessLevel, req.OriginAddress, req.ClientSignature)
	if err != nil {
		util.Error("Session creation failed", zap.Error(err))
		return nil, ErrSystem
	}

	if err := s.limiter.Reset(ctx, req.OriginAddress); err != nil {
		util.Warn("Failed to reset throttle counter", zap.Error(err))
	}

	s.recorder.Record(model.EventAuthSuccess, map[string]string{
		"session_id":     adminSession.SessionID,
		"access_level":   string(req.AccessLevel),
		"origin_address": req.OriginAddress,
	})
	return adminSession, nil
}

func (s *Service) recordFailure(ctx context.Context, req Request, reason string) {
	count, err := s.limiter.RecordFailure(ctx, req.OriginAddress)
	if err != nil {
		util.Warn("Failed to record throttle failure", zap.Error(err))
	}

	s.recorder.Record(model.EventAuthFailed, map[string]string{
		"origin_address": req.OriginAddress,
		"access_level":   string(req.AccessLevel),
		"reason":         reason,
		"failure_count":  fmt.Sprintf("%d", count),
	})
}

// SetupData builds the authenticator enrollment payload for an access level.
// The secret is derived, never stored, so this is safe to regenerate.
func (s *Service) SetupData(level model.AccessLevel) (*model.TOTPSetupData, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("unknown access level: %s", level)
	}
	secret := totp.DeriveSecret(s.masterKey, level)
	return totp.SetupData(s.issuer, level, secret)
}
