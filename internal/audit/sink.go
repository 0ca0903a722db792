// Package audit is the security event recorder: an append-only stream of
// authentication and session lifecycle events, fanned out to pluggable sinks.
// The recorder is fire-and-forget so audit durability never sits on the
// authentication latency path.
package audit

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"admin-auth-service/internal/model"
)

// Sink receives security events. Implementations own durability, retention
// and tamper-evidence; the core only emits.
type Sink interface {
	Write(ctx context.Context, event model.SecurityEvent) error
	Close() error
}

// LogSink writes events to the structured log. Always present: even with a
// durable archive configured, operators want events in the log stream.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, event model.SecurityEvent) error {
	s.logger.Info("security event",
		zap.String("event_id", event.EventID),
		zap.String("kind", string(event.Kind)),
		zap.Time("event_time", event.Timestamp),
		zap.Any("context", event.Context),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

// Fanout delivers each event to every configured sink.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Write(ctx context.Context, event model.SecurityEvent) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range f.sinks {
		g.Go(func() error {
			return sink.Write(gctx, event)
		})
	}
	return g.Wait()
}

func (f *Fanout) Close() error {
	var g errgroup.Group
	for _, sink := range f.sinks {
		g.Go(sink.Close)
	}
	return g.Wait()
}

// MemorySink retains events in memory. Used by tests and local development.
type MemorySink struct {
	mu     sync.Mutex
	events []model.SecurityEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, event model.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Events returns a snapshot of everything recorded so far.
func (s *MemorySink) Events() []model.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}
