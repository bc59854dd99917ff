package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messmate/messmate_backend/internal/platform/cache"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedis(client, nil)
}

func TestRedisCache_SetGetRoundtrip(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	key := cache.Key{RoomID: "room-1", PeriodID: "period-1", Kind: cache.KindMealRate}
	c.Set(ctx, key, []byte(`{"mealRate":"66.6667"}`), time.Minute)

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"mealRate":"66.6667"}`, string(got))
}

func TestRedisCache_MissOnUnknownKey(t *testing.T) {
	_, c := newTestCache(t)

	_, ok := c.Get(context.Background(), cache.Key{RoomID: "room-1", Kind: cache.KindBalance})
	assert.False(t, ok)
}

func TestRedisCache_EntryExpires(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	key := cache.Key{RoomID: "room-1", Kind: cache.KindGroupSummary}
	c.Set(ctx, key, []byte(`{}`), time.Minute)

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok, "entry should be gone after its TTL")
}

func TestRedisCache_InvalidateByPeriodTag(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	current := cache.Key{RoomID: "room-1", PeriodID: "period-1", Kind: cache.KindMealRate}
	previous := cache.Key{RoomID: "room-1", PeriodID: "period-0", Kind: cache.KindMealRate}
	c.Set(ctx, current, []byte(`1`), time.Minute)
	c.Set(ctx, previous, []byte(`2`), time.Minute)

	c.Invalidate(ctx, cache.PeriodTag("period-1"))

	_, ok := c.Get(ctx, current)
	assert.False(t, ok, "entries under the invalidated period must be dropped")
	_, ok = c.Get(ctx, previous)
	assert.True(t, ok, "other periods' entries survive")
}

func TestRedisCache_InvalidateByRoomTag(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	rate := cache.Key{RoomID: "room-1", PeriodID: "period-1", Kind: cache.KindMealRate}
	balance := cache.Key{RoomID: "room-1", PeriodID: "period-1", UserID: "user-1", Kind: cache.KindBalance}
	otherRoom := cache.Key{RoomID: "room-2", Kind: cache.KindGroupSummary}
	c.Set(ctx, rate, []byte(`1`), time.Minute)
	c.Set(ctx, balance, []byte(`2`), time.Minute)
	c.Set(ctx, otherRoom, []byte(`3`), time.Minute)

	c.Invalidate(ctx, cache.RoomTag("room-1"))

	_, ok := c.Get(ctx, rate)
	assert.False(t, ok)
	_, ok = c.Get(ctx, balance)
	assert.False(t, ok)
	_, ok = c.Get(ctx, otherRoom)
	assert.True(t, ok, "the room tag only covers its own room")
}

func TestRedisCache_InvalidateByUserTag(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	mine := cache.Key{RoomID: "room-1", UserID: "user-1", Kind: cache.KindAvailable}
	theirs := cache.Key{RoomID: "room-1", UserID: "user-2", Kind: cache.KindAvailable}
	c.Set(ctx, mine, []byte(`1`), time.Minute)
	c.Set(ctx, theirs, []byte(`2`), time.Minute)

	c.Invalidate(ctx, cache.UserTag("room-1", "user-1"))

	_, ok := c.Get(ctx, mine)
	assert.False(t, ok)
	_, ok = c.Get(ctx, theirs)
	assert.True(t, ok)
}

func TestGetOrCompute_ComputesOnceThenServesCached(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()
	key := cache.Key{RoomID: "room-1", Kind: cache.KindMealCount}

	calls := 0
	compute := func(ctx context.Context) (int64, error) {
		calls++
		return 42, nil
	}

	first, err := cache.GetOrCompute(ctx, c, key, time.Minute, compute)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(ctx, c, key, time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, int64(42), first)
	assert.Equal(t, int64(42), second)
	assert.Equal(t, 1, calls, "second read must come from the cache")
}

func TestGetOrCompute_UndecodableEntryRecomputed(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()
	key := cache.Key{RoomID: "room-1", Kind: cache.KindMealCount}

	c.Set(ctx, key, []byte(`not json`), time.Minute)

	got, err := cache.GetOrCompute(ctx, c, key, time.Minute, func(ctx context.Context) (int64, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	// The bad entry is overwritten with the computed value.
	raw, ok := c.Get(ctx, key)
	require.True(t, ok)
	var stored int64
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, int64(7), stored)
}

func TestRedisCache_BackendDownDegradesToMiss(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	key := cache.Key{RoomID: "room-1", Kind: cache.KindMealRate}

	mr.Close()

	c.Set(ctx, key, []byte(`1`), time.Minute) // must not panic
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	calls := 0
	got, err := cache.GetOrCompute(ctx, c, key, time.Minute, func(ctx context.Context) (int64, error) {
		calls++
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)
	assert.Equal(t, 1, calls, "a dead backend degrades reads to direct computation")
}
