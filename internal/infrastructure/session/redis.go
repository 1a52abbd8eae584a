package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
)

const defaultKeyPrefix = "labels:print-session:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisStore implements labeling.SessionStore on Redis, so any instance behind
// a load balancer can serve the print window
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects and pings Redis
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ""), nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Open stores the session as JSON with a TTL
func (s *RedisStore) Open(ctx context.Context, session *labeling.PrintSession, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Print session needs an id")
	}
	stored := *session
	stored.ExpiresAt = time.Now().Add(ttl)

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode print session: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store print session: %w", err)
	}
	return nil
}

// Get loads a session; Redis expiry handles the TTL
func (s *RedisStore) Get(ctx context.Context, id string) (*labeling.PrintSession, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Print session not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load print session: %w", err)
	}

	var out labeling.PrintSession
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode print session: %w", err)
	}
	return &out, nil
}

// Close deletes the session key
func (s *RedisStore) Close(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete print session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Shutdown closes the Redis client
func (s *RedisStore) Shutdown() error {
	return s.client.Close()
}

// Ensure RedisStore implements SessionStore
var _ labeling.SessionStore = (*RedisStore)(nil)
