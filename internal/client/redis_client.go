package client

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"admin-auth-service/internal/config"
	"admin-auth-service/internal/util"
)

// ErrKeyNotFound wraps redis.Nil so callers don't import the driver.
var ErrKeyNotFound = fmt.Errorf("key not found")

type RedisClient struct {
	Client *redis.Client
	config *config.RedisConfig
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	redisConfig := cfg.Redis

	opts, err := redis.ParseURL(redisConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Only set password if not already in URL
	if opts.Password == "" && redisConfig.Password != "" {
		opts.Password = redisConfig.Password
	}

	opts.DB = redisConfig.DB
	opts.PoolSize = redisConfig.PoolSize
	opts.MinIdleConns = redisConfig.PoolSize / 2
	if opts.MinIdleConns < 10 {
		opts.MinIdleConns = 10
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	util.Info("Redis client initialized",
		zap.String("url", redisConfig.URL),
		zap.Int("db", redisConfig.DB),
		zap.Int("pool_size", redisConfig.PoolSize))

	return &RedisClient{
		Client: client,
		config: &redisConfig,
	}, nil
}

func (r *RedisClient) Close() error {
	if r.Client != nil {
		if err := r.Client.Close(); err != nil {
			util.Error("failed to close Redis client", zap.Error(err))
			return err
		}
		util.Info("Redis client closed")
	}
	return nil
}

// HealthCheck verifies Redis connectivity.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.Client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", err
	}
	return val, nil
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.Client.TTL(ctx, key).Result()
}

func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, expiration).Result()
}

// IncrWithExpire bumps a counter and refreshes its window atomically.
func (r *RedisClient) IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	pipe := r.Client.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incrCmd.Val(), nil
}

// ScanKeys collects every key matching pattern. Iterates with SCAN so large
// keyspaces never block the server.
func (r *RedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
