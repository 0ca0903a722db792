package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"admin-auth-service/internal/model"
	"admin-auth-service/internal/util"
)

const defaultQueueSize = 1024

// Recorder queues events and dispatches them to the sink on a background
// goroutine. Record never blocks the caller: when the queue is full the
// event is dropped with a warning rather than stalling authentication.
type Recorder struct {
	sink  Sink
	queue chan model.SecurityEvent

	closeOnce sync.Once
	done      chan struct{}
	drained   chan struct{}
}

func NewRecorder(sink Sink) *Recorder {
	r := &Recorder{
		sink:    sink,
		queue:   make(chan model.SecurityEvent, defaultQueueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go r.dispatch()
	return r
}

// Record appends an immutable event to the stream. Context data should
// already be sanitized and secrets redacted by the caller.
func (r *Recorder) Record(kind model.EventKind, contextData map[string]string) {
	event := model.SecurityEvent{
		EventID:   uuid.New().String(),
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Context:   contextData,
	}

	select {
	case r.queue <- event:
	default:
		util.Warn("Audit queue full, dropping security event",
			zap.String("kind", string(kind)),
			zap.String("event_id", event.EventID),
		)
	}
}

func (r *Recorder) dispatch() {
	defer close(r.drained)
	for {
		select {
		case event := <-r.queue:
			r.write(event)
		case <-r.done:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case event := <-r.queue:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(event model.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.sink.Write(ctx, event); err != nil {
		util.Error("Failed to write security event",
			zap.String("kind", string(event.Kind)),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

// Close drains the queue and closes the sink.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		select {
		case <-r.drained:
		case <-time.After(10 * time.Second):
			util.Warn("Timed out draining audit queue")
		}
		err = r.sink.Close()
	})
	return err
}
