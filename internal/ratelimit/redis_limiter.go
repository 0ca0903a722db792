package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"admin-auth-service/internal/client"
	"admin-auth-service/internal/util"
)

const (
	failurePrefix = "admin_auth_failures:"
	blockPrefix   = "admin_auth_block:"
)

// RedisLimiter shares throttling state across instances. Counter windows and
// blocks ride on key TTLs, so no sweeper is needed.
type RedisLimiter struct {
	client   *client.RedisClient
	settings Settings
}

func NewRedisLimiter(redisClient *client.RedisClient, settings Settings) *RedisLimiter {
	return &RedisLimiter{client: redisClient, settings: settings}
}

func (l *RedisLimiter) IsBlocked(ctx context.Context, origin string) (bool, error) {
	blocked, err := l.client.Exists(ctx, blockPrefix+origin)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, origin string) (int, error) {
	count, err := l.client.IncrWithExpire(ctx, failurePrefix+origin, l.settings.Window)
	if err != nil {
		return 0, fmt.Errorf("failed to increment failure counter: %w", err)
	}

	if int(count) >= l.settings.MaxFailures {
		if _, err := l.client.SetNX(ctx, blockPrefix+origin, "blocked", l.settings.BlockDuration); err != nil {
			return int(count), fmt.Errorf("failed to install block: %w", err)
		}
		util.Warn("Origin blocked after repeated authentication failures",
			zap.String("origin", origin),
			zap.Int64("failures", count),
			zap.Duration("block_duration", l.settings.BlockDuration),
		)
	}
	return int(count), nil
}

func (l *RedisLimiter) Reset(ctx context.Context, origin string) error {
	if err := l.client.Del(ctx, failurePrefix+origin, blockPrefix+origin); err != nil {
		return fmt.Errorf("failed to reset throttling state: %w", err)
	}
	return nil
}
