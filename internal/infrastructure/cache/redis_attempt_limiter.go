package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAttemptLimiter bounds verification attempts per identity using a
// Redis counter with a sliding expiry. Suitable for distributed
// deployments where multiple instances share attempt state.
type RedisAttemptLimiter struct {
	client      *redis.Client
	keyPrefix   string
	maxAttempts int
	window      time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAttemptLimiter creates a new Redis-backed attempt limiter
func NewRedisAttemptLimiter(cfg RedisConfig, maxAttempts int, window time.Duration) (*RedisAttemptLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAttemptLimiterWithClient(client, "", maxAttempts, window), nil
}

// NewRedisAttemptLimiterWithClient creates a limiter with an existing
// Redis client, useful for testing or a shared client
func NewRedisAttemptLimiterWithClient(client *redis.Client, keyPrefix string, maxAttempts int, window time.Duration) *RedisAttemptLimiter {
	if keyPrefix == "" {
		keyPrefix = "movement:verify:attempts:"
	}
	return &RedisAttemptLimiter{
		client:      client,
		keyPrefix:   keyPrefix,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow records an attempt and reports whether it is within bounds. The
// counter increment and expiry refresh run in one pipeline so a crash
// between them cannot leave an immortal counter.
func (l *RedisAttemptLimiter) Allow(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	key := l.keyPrefix + ownerID.String()

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record verification attempt: %w", err)
	}

	return incr.Val() <= int64(l.maxAttempts), nil
}

// Reset clears the attempt counter after a successful verification
func (l *RedisAttemptLimiter) Reset(ctx context.Context, ownerID uuid.UUID) error {
	key := l.keyPrefix + ownerID.String()
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to reset verification attempts: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisAttemptLimiter) Close() error {
	return l.client.Close()
}
