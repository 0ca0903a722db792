package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/model"
)

func TestEmergencyIssue(t *testing.T) {
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	issuer := NewEmergencyIssuer(recorder, 15*time.Minute).
		WithClock(func() time.Time { return now })

	grant, err := issuer.Issue("10.0.0.1")
	require.NoError(t, err)

	assert.Len(t, grant.Code, 64, "256-bit hex code")
	assert.Equal(t, now.Add(15*time.Minute), grant.ValidUntil)

	other, err := issuer.Issue("10.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, grant.Code, other.Code)

	require.NoError(t, recorder.Close())
	events := sink.Events()
	require.Len(t, events, 2)

	for _, e := range events {
		assert.Equal(t, model.EventEmergencyIssued, e.Kind)
		prefix := e.Context["code_prefix"]
		assert.Len(t, prefix, 64)
		assert.True(t, strings.HasSuffix(prefix, strings.Repeat("*", 56)),
			"only the first characters survive redaction")
		assert.NotContains(t, prefix, grant.Code[8:16], "full code never reaches the event stream")
	}
}

type redeemerFixture struct {
	redeemer *EmergencyRedeemer
	sink     *audit.MemorySink
	recorder *audit.Recorder
	now      time.Time
}

func newRedeemerFixture(t *testing.T, ttl time.Duration) *redeemerFixture {
	t.Helper()

	f := &redeemerFixture{
		sink: audit.NewMemorySink(),
		now:  time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	f.recorder = audit.NewRecorder(f.sink)

	clock := func() time.Time { return f.now }
	store := NewMemoryRedemptionStore().WithClock(clock)
	f.redeemer = NewEmergencyRedeemer(store, f.recorder, ttl).WithClock(clock)
	return f
}

func (f *redeemerFixture) events(t *testing.T) []model.SecurityEvent {
	t.Helper()
	require.NoError(t, f.recorder.Close())
	return f.sink.Events()
}

func TestEmergencyRedeemSingleUse(t *testing.T) {
	f := newRedeemerFixture(t, 15*time.Minute)
	grant := &model.EmergencyAccessGrant{
		Code:       strings.Repeat("ab", 32),
		ValidUntil: f.now.Add(15 * time.Minute),
	}

	require.NoError(t, f.redeemer.Redeem(context.Background(), grant, "10.0.0.1"))

	err := f.redeemer.Redeem(context.Background(), grant, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmergencyConsumed)

	events := f.events(t)
	require.Len(t, events, 1, "only the first redemption records an event")
	assert.Equal(t, model.EventEmergencyRedeemed, events[0].Kind)
	assert.Equal(t, "10.0.0.1", events[0].Context["requested_by"])
}

func TestEmergencyRedeemReplayAfterExpiry(t *testing.T) {
	ttl := 15 * time.Minute
	f := newRedeemerFixture(t, ttl)
	grant := &model.EmergencyAccessGrant{
		Code:       strings.Repeat("cd", 32),
		ValidUntil: f.now.Add(ttl),
	}

	require.NoError(t, f.redeemer.Redeem(context.Background(), grant, "10.0.0.1"))

	// The consumption marker lives twice as long as the grant, so a replay
	// shortly after expiry still reads as consumed rather than expired.
	f.now = f.now.Add(ttl + time.Minute)
	err := f.redeemer.Redeem(context.Background(), grant, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmergencyConsumed)

	// Once the marker itself lapses the distinction is gone.
	f.now = f.now.Add(2 * ttl)
	err = f.redeemer.Redeem(context.Background(), grant, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmergencyExpired)
}

func TestEmergencyRedeemExpiredUnused(t *testing.T) {
	f := newRedeemerFixture(t, 15*time.Minute)
	grant := &model.EmergencyAccessGrant{
		Code:       strings.Repeat("ef", 32),
		ValidUntil: f.now.Add(-time.Second),
	}

	err := f.redeemer.Redeem(context.Background(), grant, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmergencyExpired)

	// An expired, never-redeemed code must not burn a marker.
	err = f.redeemer.Redeem(context.Background(), grant, "10.0.0.1")
	assert.ErrorIs(t, err, ErrEmergencyExpired)

	assert.Empty(t, f.events(t), "expired redemption attempts record nothing")
}
