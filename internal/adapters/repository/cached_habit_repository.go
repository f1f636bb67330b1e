package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/metrics"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const defaultHabitCacheTTL = 30 * time.Minute

// habitListEntry is a cached habit list stamped with the owner's generation at
// the moment the list was read from the store.
type habitListEntry struct {
	Generation int64           `json:"generation"`
	Habits     []*domain.Habit `json:"habits"`
}

// CachedHabitRepository caches each user's habit list in Redis.
//
// Every write for a user, streak updates from the worker included, bumps that
// user's generation counter. A list is served only while its stamp matches the
// counter, so a read that raced a write never outlives it.
type CachedHabitRepository struct {
	next   domain.HabitRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedHabitRepository(next domain.HabitRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedHabitRepository {
	if ttl <= 0 {
		ttl = defaultHabitCacheTTL
	}
	return &CachedHabitRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("habit_cache"),
	}
}

func (r *CachedHabitRepository) listKey(userID string) string {
	return fmt.Sprintf("habitlite:habits:%s", userID)
}

func (r *CachedHabitRepository) generationKey(userID string) string {
	return fmt.Sprintf("habitlite:habits:%s:gen", userID)
}

func parseGeneration(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	listKey := r.listKey(userID)

	vals, err := r.cache.MGet(ctx, listKey, r.generationKey(userID)).Result()
	if err != nil {
		metrics.IncrementHabitCacheLookup("error")
		r.logger.Warn("redis read error, reading through", zap.String("user_id", userID), zap.Error(err))
		return r.next.ListByUserID(ctx, userID)
	}

	generation := parseGeneration(vals[1])

	if raw, ok := vals[0].(string); ok {
		var entry habitListEntry
		switch err := json.Unmarshal([]byte(raw), &entry); {
		case err != nil:
			metrics.IncrementHabitCacheLookup("stale")
			r.logger.Warn("corrupted cache entry, dropping it", zap.String("user_id", userID), zap.Error(err))
			r.cache.Del(ctx, listKey)
		case entry.Generation != generation:
			metrics.IncrementHabitCacheLookup("stale")
			r.logger.Debug("stale habit list",
				zap.String("user_id", userID),
				zap.Int64("cached", entry.Generation),
				zap.Int64("current", generation),
			)
		default:
			metrics.IncrementHabitCacheLookup("hit")
			return entry.Habits, nil
		}
	} else {
		metrics.IncrementHabitCacheLookup("miss")
	}

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.store(ctx, userID, habitListEntry{Generation: generation, Habits: habits})
	return habits, nil
}

func (r *CachedHabitRepository) store(ctx context.Context, userID string, entry habitListEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("failed to encode habit list", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, r.listKey(userID), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set error", zap.String("user_id", userID), zap.Error(err))
	}
}

// bump advances the user's generation and drops the cached list. The counter
// lives twice as long as a list entry so it always outlives the entries
// stamped against it.
func (r *CachedHabitRepository) bump(ctx context.Context, userID string) {
	genKey := r.generationKey(userID)

	pipe := r.cache.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, 2*r.ttl)
	pipe.Del(ctx, r.listKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

// bumpOwner resolves the habit's owner before a write that only carries the id.
func (r *CachedHabitRepository) bumpOwner(ctx context.Context, id string, write func() error) error {
	habit, lookupErr := r.next.GetByID(ctx, id)

	if err := write(); err != nil {
		return err
	}

	if lookupErr != nil {
		if !errors.Is(lookupErr, domain.ErrHabitNotFound) {
			r.logger.Warn("owner lookup failed, cache left as is", zap.String("habit_id", id), zap.Error(lookupErr))
		}
		return nil
	}
	r.bump(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	return r.next.GetChanges(ctx, userID, since)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.bump(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.bump(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	return r.bumpOwner(ctx, id, func() error {
		return r.next.Delete(ctx, id)
	})
}

// UpdateStreaks is called by the streak worker, usually right after a log
// write has already been answered, so it must invalidate too.
func (r *CachedHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	return r.bumpOwner(ctx, id, func() error {
		return r.next.UpdateStreaks(ctx, id, current, longest)
	})
}
