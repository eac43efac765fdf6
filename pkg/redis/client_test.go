package redis

import (
	"context"
	"testing"
	"time"

	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	setKey     string
	setTTL     time.Duration
	setNXOK    bool
	getValue   string
	getErr     error
	published  map[string]interface{}
	deleted    []string
	pingCalled bool
}

func (s *stubStore) Ping(ctx context.Context) *redis.StatusCmd {
	s.pingCalled = true
	return redis.NewStatusResult("PONG", nil)
}

func (s *stubStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	s.setKey = key
	s.setTTL = ttl
	return redis.NewStatusResult("OK", nil)
}

func (s *stubStore) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult(s.getValue, s.getErr)
}

func (s *stubStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	s.setKey = key
	s.setTTL = ttl
	return redis.NewBoolResult(s.setNXOK, nil)
}

func (s *stubStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	s.deleted = append(s.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (s *stubStore) Publish(ctx context.Context, channel string, payload interface{}) *redis.IntCmd {
	if s.published == nil {
		s.published = map[string]interface{}{}
	}
	s.published[channel] = payload
	return redis.NewIntResult(1, nil)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Run("requires url or address", func(t *testing.T) {
		_, err := optionsFromConfig(config.RedisConfig{})
		require.Error(t, err)
	})

	t.Run("parses url", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{
			URL:      "redis://:secret@localhost:6379/2",
			PoolSize: 15,
		})
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 15, opts.PoolSize)
	})

	t.Run("falls back to address fields", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{
			Address:      "cache:6380",
			Password:     "pw",
			DB:           1,
			PoolSize:     5,
			MinIdleConns: 2,
			DialTimeout:  time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, 1, opts.DB)
		assert.Equal(t, 5, opts.PoolSize)
		assert.Equal(t, 2, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.DialTimeout)
	})
}

func TestClientKeys(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "fd:idempotency:payment_webhook:evt-1", c.IdempotencyKey("payment_webhook", "evt-1"))
	assert.Equal(t, "fd:room:order:ord-1", c.RoomChannel("order", "ord-1"))
	assert.Equal(t, "fd:courier_pos:c-9", c.CourierPositionKey("c-9"))
}

func TestClientOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("uninitialized client errors", func(t *testing.T) {
		c := &Client{}
		assert.Error(t, c.Set(ctx, "k", "v", 0))
		_, err := c.Get(ctx, "k")
		assert.Error(t, err)
		_, err = c.SetNX(ctx, "k", "v", 0)
		assert.Error(t, err)
		assert.Error(t, c.Ping(ctx))
	})

	t.Run("set proxies key and ttl", func(t *testing.T) {
		stub := &stubStore{}
		c := &Client{store: stub}
		require.NoError(t, c.Set(ctx, "fd:k", "v", time.Minute))
		assert.Equal(t, "fd:k", stub.setKey)
		assert.Equal(t, time.Minute, stub.setTTL)
	})

	t.Run("setnx reports acquisition", func(t *testing.T) {
		stub := &stubStore{setNXOK: true}
		c := &Client{store: stub}
		ok, err := c.SetNX(ctx, "fd:idempotency:payment_webhook:evt-1", "1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("get returns stored value", func(t *testing.T) {
		stub := &stubStore{getValue: "hello"}
		c := &Client{store: stub}
		val, err := c.Get(ctx, "fd:k")
		require.NoError(t, err)
		assert.Equal(t, "hello", val)
	})

	t.Run("publish targets channel", func(t *testing.T) {
		stub := &stubStore{}
		c := &Client{store: stub}
		require.NoError(t, c.Publish(ctx, "fd:room:order:o1", `{"seq":1}`))
		assert.Contains(t, stub.published, "fd:room:order:o1")
	})

	t.Run("del forwards keys", func(t *testing.T) {
		stub := &stubStore{}
		c := &Client{store: stub}
		require.NoError(t, c.Del(ctx, "a", "b"))
		assert.Equal(t, []string{"a", "b"}, stub.deleted)
	})
}
