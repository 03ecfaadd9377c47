package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements a Redis-backed object store, letting several
// service instances share one pool of fetched objects.
type RedisStore struct {
	client *redis.Client
	config Config
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Config holds common store configuration.
	Config Config
}

// DefaultRedisConfig returns a default Redis configuration. The TTL
// bounds Redis memory; entries are immutable so expiry only costs a
// re-fetch.
func DefaultRedisConfig() RedisConfig {
	cfg := DefaultConfig()
	cfg.TTL = 24 * time.Hour
	return RedisConfig{
		Addr:   "localhost:6379",
		Config: cfg,
	}
}

// NewRedisStore creates a Redis store and verifies the connection.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, config: config.Config}, nil
}

// NewRedisStoreWithClient creates a Redis store around an existing client.
func NewRedisStoreWithClient(client *redis.Client, config Config) *RedisStore {
	return &RedisStore{client: client, config: config}
}

// Get retrieves a payload from the store.
func (r *RedisStore) Get(ctx context.Context, objectID string) ([]byte, error) {
	payload, err := r.client.Get(ctx, r.config.Prefix+objectID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, MissError{ObjectID: objectID}
		}
		return nil, err
	}
	return payload, nil
}

// Put stores a payload.
func (r *RedisStore) Put(ctx context.Context, objectID string, payload []byte) error {
	return r.client.Set(ctx, r.config.Prefix+objectID, payload, r.config.TTL).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
