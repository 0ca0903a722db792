package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-auth-service/internal/model"
)

func TestRecorderDeliversEvents(t *testing.T) {
	sink := NewMemorySink()
	recorder := NewRecorder(sink)

	recorder.Record(model.EventAuthSuccess, map[string]string{"origin_address": "10.0.0.1"})
	recorder.Record(model.EventAuthFailed, map[string]string{"reason": "invalid_totp"})

	require.NoError(t, recorder.Close())

	events := sink.Events()
	require.Len(t, events, 2)

	assert.Equal(t, model.EventAuthSuccess, events[0].Kind)
	assert.NotEmpty(t, events[0].EventID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "10.0.0.1", events[0].Context["origin_address"])

	assert.Equal(t, model.EventAuthFailed, events[1].Kind)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
}

func TestRecorderCloseIdempotent(t *testing.T) {
	recorder := NewRecorder(NewMemorySink())
	require.NoError(t, recorder.Close())
	require.NoError(t, recorder.Close())
}

type failingSink struct{ closed bool }

func (s *failingSink) Write(context.Context, model.SecurityEvent) error {
	return errors.New("sink unavailable")
}

func (s *failingSink) Close() error {
	s.closed = true
	return nil
}

func TestRecorderSurvivesSinkFailure(t *testing.T) {
	sink := &failingSink{}
	recorder := NewRecorder(sink)

	// Record must not propagate sink errors to the caller.
	recorder.Record(model.EventAuthSuccess, nil)

	require.NoError(t, recorder.Close())
	assert.True(t, sink.closed)
}

func TestFanoutWritesAllSinks(t *testing.T) {
	first := NewMemorySink()
	second := NewMemorySink()
	fanout := NewFanout(first, second)

	event := model.SecurityEvent{EventID: "e1", Kind: model.EventAuthBlocked}
	require.NoError(t, fanout.Write(context.Background(), event))

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
}

func TestFanoutReportsSinkError(t *testing.T) {
	healthy := NewMemorySink()
	fanout := NewFanout(healthy, &failingSink{})

	err := fanout.Write(context.Background(), model.SecurityEvent{EventID: "e1"})
	assert.Error(t, err)
	assert.Len(t, healthy.Events(), 1, "healthy sinks still receive the event")
}
