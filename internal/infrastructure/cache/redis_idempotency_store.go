package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore implements IdempotencyStore using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share idempotency state.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisIdempotencyStore creates a new Redis-based idempotency store
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: "settlement:idempotency:",
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "settlement:idempotency:"
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the transaction ID stored under the key, or uuid.Nil if the
// key is unknown
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (uuid.UUID, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	transactionID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt idempotency entry for key: %w", err)
	}
	return transactionID, nil
}

// Set stores the transaction ID under the key with a TTL. SetNX keeps the
// first transaction bound to the key if two submissions race.
func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, s.keyPrefix+key, transactionID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Ensure RedisIdempotencyStore implements IdempotencyStore
var _ appsettlement.IdempotencyStore = (*RedisIdempotencyStore)(nil)
