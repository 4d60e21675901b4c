package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===========================================
// Redis-backed cache layer
// ===========================================

func newRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func listFetcher() *fakeFetcher {
	return &fakeFetcher{respond: func(int32, string, map[string]interface{}) (json.RawMessage, error) {
		return json.RawMessage(listPayload), nil
	}}
}

func TestCatalogRepository_RedisHitSkipsCMS(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newRedisClient(t, mr)
	fetcher := listFetcher()
	ctx := context.Background()

	repo := NewCatalogRepository(fetcher, client, time.Minute, quietLogger())
	first, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	second, err := repo.ListProducts(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	// a second replica shares the entry through Redis
	replica := NewCatalogRepository(fetcher, client, time.Minute, quietLogger())
	products, err := replica.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestCatalogRepository_RedisDoesNotCacheFetchErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newRedisClient(t, mr)
	fetcher := &fakeFetcher{respond: func(call int32, _ string, _ map[string]interface{}) (json.RawMessage, error) {
		if call == 1 {
			return nil, errors.New("cms returned status 503")
		}
		return json.RawMessage(listPayload), nil
	}}
	repo := NewCatalogRepository(fetcher, client, time.Minute, quietLogger())
	ctx := context.Background()

	_, err := repo.ListProducts(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestCatalogRepository_RedisDownServesFreshResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newRedisClient(t, mr)
	fetcher := listFetcher()
	repo := NewCatalogRepository(fetcher, client, time.Minute, quietLogger())

	mr.Close()

	products, err := repo.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetcher.calls), int32(1))
}
