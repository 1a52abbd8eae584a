package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/erp/labels/internal/infrastructure/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSession(id string) *labeling.PrintSession {
	return &labeling.PrintSession{
		ID:     id,
		JobID:  "job-1",
		Title:  "Etiquetas",
		HTML:   []byte("<html></html>"),
		Pages:  2,
		Labels: 40,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewInMemoryStore(WithClock(clock.Now))
	defer store.Shutdown()

	t.Run("open then get", func(t *testing.T) {
		require.NoError(t, store.Open(ctx, newSession("s-1"), time.Minute))

		got, err := store.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "job-1", got.JobID)
		assert.Equal(t, 2, got.Pages)
		assert.Equal(t, clock.Now().Add(time.Minute), got.ExpiresAt)
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		got, err := store.Get(ctx, "s-1")
		require.NoError(t, err)
		got.Pages = 99

		again, err := store.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, 2, again.Pages)
	})

	t.Run("missing session is not found", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
	})

	t.Run("expired session is not found", func(t *testing.T) {
		require.NoError(t, store.Open(ctx, newSession("s-2"), 10*time.Second))
		clock.Advance(10 * time.Second)

		_, err := store.Get(ctx, "s-2")
		assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))

		store.cleanup()
		_, err = store.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, 1, store.Size())
	})

	t.Run("close removes and is idempotent", func(t *testing.T) {
		require.NoError(t, store.Close(ctx, "s-1"))
		require.NoError(t, store.Close(ctx, "s-1"))
		_, err := store.Get(ctx, "s-1")
		assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
	})

	t.Run("rejects session without id", func(t *testing.T) {
		err := store.Open(ctx, &labeling.PrintSession{}, time.Minute)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
		assert.Error(t, store.Open(ctx, nil, time.Minute))
	})
}

func TestInMemoryStore_ShutdownTwice(t *testing.T) {
	store := NewInMemoryStore()
	assert.NoError(t, store.Shutdown())
	assert.NoError(t, store.Shutdown())
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRedisStore_PingUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	store := NewRedisStoreWithClient(client, "")
	defer store.Shutdown()

	assert.Error(t, store.Ping(context.Background()))
	_, err := store.Get(context.Background(), "s-1")
	assert.Error(t, err)
	assert.NotEqual(t, shared.CodeNotFound, shared.CodeOf(err), "connection errors are not reported as missing sessions")
}

func TestFactory_CreateStore(t *testing.T) {
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis disabled uses memory", func(t *testing.T) {
		store, err := NewFactory(config.RedisConfig{}).CreateStore()
		require.NoError(t, err)
		defer store.Shutdown()
		assert.IsType(t, &InMemoryStore{}, store)
	})

	t.Run("falls back to memory when redis is down", func(t *testing.T) {
		store, err := NewFactory(unreachable, WithLogger(zaptest.NewLogger(t))).CreateStore()
		require.NoError(t, err)
		defer store.Shutdown()
		assert.IsType(t, &InMemoryStore{}, store)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewFactory(unreachable, WithInMemoryFallback(false)).CreateStore()
		assert.ErrorContains(t, err, "redis required")
	})
}
