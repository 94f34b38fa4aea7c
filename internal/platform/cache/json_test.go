package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int `json:"count"`
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	c := NewJSONCache(client, time.Minute)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: 3}, nil
	}
	key := Key("markers", "v1", "a=ΟΛΕΣ")
	assert.Equal(t, "companymap:cache:markers:v1:a=ΟΛΕΣ", key)

	var got payload
	require.NoError(t, c.FetchJSON(context.Background(), key, &got, loader))
	assert.Equal(t, 3, got.Count)
	require.NoError(t, c.FetchJSON(context.Background(), key, &got, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, c.FetchJSON(context.Background(), key, &got, loader))
	assert.Equal(t, 2, calls)
}

func TestFetchJSONWithoutRedis(t *testing.T) {
	var c *JSONCache
	var got payload
	require.NoError(t, c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return payload{Count: 1}, nil
	}))
	assert.Equal(t, 1, got.Count)

	boom := errors.New("boom")
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestFetchJSONSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	c := NewJSONCache(client, time.Minute)
	var got payload
	require.NoError(t, c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return payload{Count: 5}, nil
	}))
	assert.Equal(t, 5, got.Count)
}

func TestSetOverwritesAndArmsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	c := NewJSONCache(client, time.Minute)

	key := Key("markers", "warm")
	require.NoError(t, c.Set(context.Background(), key, payload{Count: 1}))
	require.NoError(t, c.Set(context.Background(), key, payload{Count: 2}))
	assert.Equal(t, time.Minute, mr.TTL(key))

	var got payload
	err := c.FetchJSON(context.Background(), key, &got, func(context.Context) (any, error) {
		return nil, errors.New("loader must not run")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	var nilCache *JSONCache
	assert.Error(t, nilCache.Set(context.Background(), key, payload{}))
}
