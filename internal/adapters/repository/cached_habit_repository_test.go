package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/adapters/cache"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

func TestCachedHabitRepository_Integration(t *testing.T) {
	rdb, err := cache.NewRedisClient(cache.Options{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       2,
	})
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()
	require.NoError(t, rdb.FlushDB(ctx).Err())

	inner := NewInMemoryHabitRepository()
	repo := NewCachedHabitRepository(inner, rdb, time.Minute, zap.NewNop())

	t.Run("Contract", func(t *testing.T) {
		runHabitRepositoryContract(t, repos{habits: repo})
	})

	t.Run("List is served from cache until a write for the owner", func(t *testing.T) {
		h, err := domain.NewHabit("cache-user", "Cached", "", "", "", 1)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, h))

		list, err := repo.ListByUserID(ctx, "cache-user")
		require.NoError(t, err)
		require.Len(t, list, 1)

		exists, err := rdb.Exists(ctx, "habitlite:habits:cache-user").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		// A write behind the cache's back is not visible until invalidation.
		other, err := domain.NewHabit("cache-user", "Sneaky", "", "", "", 1)
		require.NoError(t, err)
		require.NoError(t, inner.Create(ctx, other))

		list, err = repo.ListByUserID(ctx, "cache-user")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, repo.UpdateStreaks(ctx, h.ID, 3, 5))

		list, err = repo.ListByUserID(ctx, "cache-user")
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("List stamped before a streak write is never served", func(t *testing.T) {
		h, err := domain.NewHabit("race-user", "Meditate", "", "", "", 1)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, h))

		stale, err := inner.ListByUserID(ctx, "race-user")
		require.NoError(t, err)

		gen, err := rdb.Get(ctx, "habitlite:habits:race-user:gen").Int64()
		require.NoError(t, err)

		require.NoError(t, repo.UpdateStreaks(ctx, h.ID, 4, 4))

		// A reader that loaded before the streak write stores its list late.
		data, err := json.Marshal(habitListEntry{Generation: gen, Habits: stale})
		require.NoError(t, err)
		require.NoError(t, rdb.Set(ctx, "habitlite:habits:race-user", data, time.Minute).Err())

		list, err := repo.ListByUserID(ctx, "race-user")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 4, list[0].CurrentStreak)

		list, err = repo.ListByUserID(ctx, "race-user")
		require.NoError(t, err)
		assert.Equal(t, 4, list[0].CurrentStreak, "fresh entry is cached and served")
	})

	t.Run("Generation counter expires after the entries", func(t *testing.T) {
		h, err := domain.NewHabit("ttl-user", "Stretch", "", "", "", 1)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, h))
		_, err = repo.ListByUserID(ctx, "ttl-user")
		require.NoError(t, err)

		listTTL, err := rdb.TTL(ctx, "habitlite:habits:ttl-user").Result()
		require.NoError(t, err)
		genTTL, err := rdb.TTL(ctx, "habitlite:habits:ttl-user:gen").Result()
		require.NoError(t, err)

		assert.Greater(t, genTTL, listTTL)
	})

	t.Run("Corrupted entry falls through", func(t *testing.T) {
		require.NoError(t, rdb.Set(ctx, "habitlite:habits:corrupt-user", "{not json", time.Minute).Err())

		list, err := repo.ListByUserID(ctx, "corrupt-user")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestCachedHabitRepository_RedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	ctx := context.Background()
	inner := NewInMemoryHabitRepository()
	repo := NewCachedHabitRepository(inner, rdb, 0, zap.NewNop())

	h, err := domain.NewHabit("offline-user", "Walk", "", "", "", 1)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, h), "writes succeed without the cache")

	list, err := repo.ListByUserID(ctx, "offline-user")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.UpdateStreaks(ctx, h.ID, 2, 2))

	got, err := repo.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStreak)

	require.NoError(t, repo.Delete(ctx, h.ID))
	list, err = repo.ListByUserID(ctx, "offline-user")
	require.NoError(t, err)
	assert.Empty(t, list)
}
