package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory Client that records the TTL of every Set.
type fakeClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	client := newFakeClient()
	c := NewRedisCache(client, "")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "gateway_secret:t1:hotmart", "s3cr3t", 5*time.Minute))
	assert.Equal(t, "s3cr3t", client.values["trackai:gateway_secret:t1:hotmart"])
	assert.Equal(t, 5*time.Minute, client.ttls["trackai:gateway_secret:t1:hotmart"])

	got, err := c.Get(ctx, "gateway_secret:t1:hotmart")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)

	require.NoError(t, c.Delete(ctx, "gateway_secret:t1:hotmart"))

	_, err = c.Get(ctx, "gateway_secret:t1:hotmart")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_CustomPrefix(t *testing.T) {
	client := newFakeClient()
	c := NewRedisCache(client, "test:")

	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.Contains(t, client.values, "test:k")
}

func TestRedisCache_Errors(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("connection refused")
	c := NewRedisCache(client, "")
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, err.Error(), "cache get")

	assert.ErrorContains(t, c.Set(ctx, "k", "v", time.Minute), "cache set")
	assert.ErrorContains(t, c.Delete(ctx, "k"), "cache delete")
	assert.Error(t, c.Ping(ctx))
}
