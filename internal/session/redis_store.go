package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-auth-service/internal/client"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/util"
)

const sessionPrefix = "admin_session:"

// RedisStore shares sessions across instances. Keys expire with the session
// so Redis does the sweeping; the cache stays as volatile as the in-memory
// store — flushing it logs every admin out, which is the intended posture.
type RedisStore struct {
	client *client.RedisClient
}

func NewRedisStore(redisClient *client.RedisClient) *RedisStore {
	return &RedisStore{client: redisClient}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.AdminSession, error) {
	data, err := s.client.Get(ctx, sessionPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session model.AdminSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *model.AdminSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Keep the key a little past expiry so a validate call can still observe
	// the expired session and record the invalidation once.
	ttl := time.Until(session.ExpiresAt) + 5*time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Set(ctx, sessionPrefix+session.SessionID, string(data), ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionPrefix+sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.client.ScanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	util.Info("All admin sessions cleared from cache", zap.Int("count", len(keys)))
	return nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.client.ScanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return len(keys), nil
}
