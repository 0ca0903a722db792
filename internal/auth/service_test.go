package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/credential"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/ratelimit"
	"admin-auth-service/internal/session"
	"admin-auth-service/internal/totp"
)

const testMasterKey = "test-master-key"

type serviceFixture struct {
	service  *Service
	verifier *credential.DerivedKeyVerifier
	sink     *audit.MemorySink
	recorder *audit.Recorder
	now      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		sink: audit.NewMemorySink(),
		now:  time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	f.recorder = audit.NewRecorder(f.sink)
	f.verifier = credential.NewDerivedKeyVerifier(testMasterKey, "test-salt")

	clock := func() time.Time { return f.now }
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Settings{
		MaxFailures:   3,
		Window:        15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}).WithClock(clock)
	sessions := session.NewManager(session.NewMemoryStore(), f.recorder, 2*time.Hour, false).
		WithClock(clock)

	f.service = NewService(f.verifier, limiter, sessions, f.recorder, testMasterKey, "ExamAdmin", 1).
		WithClock(clock)
	return f
}

func (f *serviceFixture) events(t *testing.T) []model.SecurityEvent {
	t.Helper()
	require.NoError(t, f.recorder.Close())
	return f.sink.Events()
}

func (f *serviceFixture) validRequest(t *testing.T, level model.AccessLevel) Request {
	t.Helper()

	code, err := totp.GenerateCode(totp.DeriveSecret(testMasterKey, level), f.now)
	require.NoError(t, err)

	return Request{
		AccessLevel:     level,
		MasterPassword:  f.verifier.ExpectedCredential(level, f.now),
		TimeCode:        code,
		OriginAddress:   "10.0.0.1",
		ClientSignature: "test-agent",
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	s, err := f.service.Authenticate(ctx, f.validRequest(t, model.ExamAdmin))
	require.NoError(t, err)
	assert.Equal(t, model.ExamAdmin, s.AccessLevel)
	assert.True(t, s.IsActive)

	var success bool
	for _, e := range f.events(t) {
		if e.Kind == model.EventAuthSuccess {
			success = true
			assert.Equal(t, s.SessionID, e.Context["session_id"])
		}
	}
	assert.True(t, success)
}

func TestAuthenticateWrongMasterPassword(t *testing.T) {
	f := newServiceFixture(t)

	req := f.validRequest(t, model.ExamAdmin)
	req.MasterPassword = "wrong"

	_, err := f.service.Authenticate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var failed bool
	for _, e := range f.events(t) {
		if e.Kind == model.EventAuthFailed {
			failed = true
			assert.Equal(t, "invalid_master_password", e.Context["reason"])
		}
	}
	assert.True(t, failed)
}

func TestAuthenticateWrongCode(t *testing.T) {
	f := newServiceFixture(t)

	req := f.validRequest(t, model.ExamAdmin)
	req.TimeCode = "000000"

	_, err := f.service.Authenticate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidCode)

	var failed bool
	for _, e := range f.events(t) {
		if e.Kind == model.EventAuthFailed {
			failed = true
			assert.Equal(t, "invalid_totp", e.Context["reason"])
		}
	}
	assert.True(t, failed)
}

func TestErrorsDoNotRevealFailingFactor(t *testing.T) {
	assert.Equal(t, ErrInvalidCredentials.Error(), ErrInvalidCode.Error())
	assert.NotErrorIs(t, ErrInvalidCode, ErrInvalidCredentials)
}

func TestAuthenticateUnknownLevel(t *testing.T) {
	f := newServiceFixture(t)

	req := f.validRequest(t, model.ExamAdmin)
	req.AccessLevel = model.AccessLevel("ROOT")

	_, err := f.service.Authenticate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRateLimited(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	bad := f.validRequest(t, model.ExamAdmin)
	bad.MasterPassword = "wrong"

	for i := 0; i < 3; i++ {
		_, err := f.service.Authenticate(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Correct credentials no longer help once the block is installed.
	_, err := f.service.Authenticate(ctx, f.validRequest(t, model.ExamAdmin))
	assert.ErrorIs(t, err, ErrRateLimited)

	var blocked bool
	for _, e := range f.events(t) {
		if e.Kind == model.EventAuthBlocked {
			blocked = true
			assert.Equal(t, "10.0.0.1", e.Context["origin_address"])
		}
	}
	assert.True(t, blocked)
}

func TestAuthenticateResetsCounterOnSuccess(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	bad := f.validRequest(t, model.ExamAdmin)
	bad.MasterPassword = "wrong"

	for i := 0; i < 2; i++ {
		_, err := f.service.Authenticate(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.service.Authenticate(ctx, f.validRequest(t, model.ExamAdmin))
	require.NoError(t, err)

	// The slate is clean: two more failures stay under the threshold.
	for i := 0; i < 2; i++ {
		_, err := f.service.Authenticate(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.service.Authenticate(ctx, f.validRequest(t, model.ExamAdmin))
	assert.NoError(t, err)
}

func TestAuthenticateAcceptsPreviousHourCredential(t *testing.T) {
	f := newServiceFixture(t)

	req := f.validRequest(t, model.SystemAdmin)
	req.MasterPassword = f.verifier.ExpectedCredential(model.SystemAdmin, f.now.Add(-time.Hour))

	_, err := f.service.Authenticate(context.Background(), req)
	assert.NoError(t, err)
}

func TestSetupData(t *testing.T) {
	f := newServiceFixture(t)

	data, err := f.service.SetupData(model.SuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, totp.DeriveSecret(testMasterKey, model.SuperAdmin), data.Secret)
	assert.Contains(t, data.SetupURI, "issuer=ExamAdmin")

	_, err = f.service.SetupData(model.AccessLevel("ROOT"))
	assert.Error(t, err)
}
