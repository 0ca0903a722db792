package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"admin-auth-service/internal/bucketing"
	"admin-auth-service/internal/client"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/util"
)

const (
	chBatchSize     = 100
	chFlushInterval = 5 * time.Second
)

// ClickHouseSink is the durable audit archive. Events are buffered and
// batch-inserted, partitioned by date and a murmur3 event bucket.
type ClickHouseSink struct {
	client *client.ClickHouseClient
	bucket *bucketing.Manager
	table  string

	mu      sync.Mutex
	pending [][]interface{}

	closeOnce sync.Once
	done      chan struct{}
}

func NewClickHouseSink(chClient *client.ClickHouseClient, bucket *bucketing.Manager, table string) *ClickHouseSink {
	s := &ClickHouseSink{
		client: chClient,
		bucket: bucket,
		table:  table,
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

func (s *ClickHouseSink) Write(_ context.Context, event model.SecurityEvent) error {
	contextJSON, err := json.Marshal(event.Context)
	if err != nil {
		return fmt.Errorf("failed to encode event context: %w", err)
	}

	row := []interface{}{
		int32(s.bucket.EventBucket(event.EventID)),
		s.bucket.DateBucket(event.Timestamp),
		event.EventID,
		event.Timestamp,
		string(event.Kind),
		string(contextJSON),
	}

	s.mu.Lock()
	s.pending = append(s.pending, row)
	full := len(s.pending) >= chBatchSize
	s.mu.Unlock()

	if full {
		return s.flush()
	}
	return nil
}

func (s *ClickHouseSink) flushLoop() {
	ticker := time.NewTicker(chFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.flush(); err != nil {
				util.Error("Failed to flush audit batch", zap.Error(err))
			}
		case <-s.done:
			return
		}
	}
}

func (s *ClickHouseSink) flush() error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	query := fmt.Sprintf(
		"INSERT INTO %s (event_bucket, event_date, event_id, event_time, event_kind, context)",
		s.table,
	)
	if err := s.client.BatchInsert(ctx, query, batch); err != nil {
		return fmt.Errorf("failed to archive %d events: %w", len(batch), err)
	}

	util.Debug("Audit batch archived", zap.Int("events", len(batch)))
	return nil
}

func (s *ClickHouseSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.flush()
	})
	return err
}
