package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

var (
	_ domain.HabitRepository    = (*InMemoryHabitRepository)(nil)
	_ domain.HabitLogRepository = (*InMemoryHabitLogRepository)(nil)
	_ domain.UserRepository     = (*InMemoryUserRepository)(nil)
)

// InMemoryHabitRepository keeps habits in a map. Values are copied in and out
// so callers never share state with the store.
type InMemoryHabitRepository struct {
	store map[string]*domain.Habit

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store: make(map[string]*domain.Habit),
	}
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[habit.ID]; ok {
		return domain.ErrHabitConflict
	}

	habit.Version = 1
	clone := *habit
	r.store[habit.ID] = &clone
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	clone := *habit
	return &clone, nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID && h.DeletedAt == nil {
			clone := *h
			habits = append(habits, &clone)
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID < habits[j].ID
		}
		return habits[i].CreatedAt.After(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[habit.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	habit.UpdatedAt = time.Now().UTC()
	clone := *habit
	r.store[habit.ID] = &clone
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[id]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	stored.MarkDeleted()
	stored.Version++
	return nil
}

func (r *InMemoryHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	changes := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			clone := *h
			changes = append(changes, &clone)
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})

	return changes, nil
}

func (r *InMemoryHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[id]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	stored.UpdateStreak(current, longest)
	return nil
}

type logKey struct {
	habitID string
	period  int64
}

type InMemoryHabitLogRepository struct {
	store    map[string]*domain.HabitLog
	byPeriod map[logKey]string

	mu sync.RWMutex
}

func NewInMemoryHabitLogRepository() *InMemoryHabitLogRepository {
	return &InMemoryHabitLogRepository{
		store:    make(map[string]*domain.HabitLog),
		byPeriod: make(map[logKey]string),
	}
}

func (r *InMemoryHabitLogRepository) Increment(ctx context.Context, log *domain.HabitLog, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := logKey{habitID: log.HabitID, period: log.PeriodKey.Unix()}

	stored, ok := r.store[r.byPeriod[k]]
	if !ok {
		clone := *log
		clone.Count = 0
		clone.Version = 1
		stored = &clone
		r.store[stored.ID] = stored
		r.byPeriod[k] = stored.ID
	} else {
		if stored.DeletedAt != nil {
			stored.DeletedAt = nil
		}
		stored.Version++
	}
	stored.Apply(delta)

	*log = *stored
	return nil
}

func (r *InMemoryHabitLogRepository) Update(ctx context.Context, log *domain.HabitLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[log.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrLogNotFound
	}
	if stored.Version != log.Version {
		return domain.ErrLogConflict
	}

	stored.Count = log.Count
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	*log = *stored
	return nil
}

func (r *InMemoryHabitLogRepository) GetByID(ctx context.Context, id string) (*domain.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.store[id]
	if !ok || stored.DeletedAt != nil {
		return nil, domain.ErrLogNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *InMemoryHabitLogRepository) GetByPeriod(ctx context.Context, habitID string, key time.Time) (*domain.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.store[r.byPeriod[logKey{habitID: habitID, period: key.Unix()}]]
	if !ok || stored.DeletedAt != nil {
		return nil, domain.ErrLogNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *InMemoryHabitLogRepository) filter(match func(*domain.HabitLog) bool) []*domain.HabitLog {
	logs := []*domain.HabitLog{}
	for _, l := range r.store {
		if match(l) {
			clone := *l
			logs = append(logs, &clone)
		}
	}
	return logs
}

func inRange(l *domain.HabitLog, from, to time.Time) bool {
	return l.DeletedAt == nil && !l.PeriodKey.Before(from) && !l.PeriodKey.After(to)
}

func sortByPeriod(logs []*domain.HabitLog) {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].PeriodKey.Before(logs[j].PeriodKey)
	})
}

func (r *InMemoryHabitLogRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.filter(func(l *domain.HabitLog) bool {
		return l.HabitID == habitID && inRange(l, from, to)
	})
	sortByPeriod(logs)
	return logs, nil
}

func (r *InMemoryHabitLogRepository) ListByUserID(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.filter(func(l *domain.HabitLog) bool {
		return l.UserID == userID && inRange(l, from, to)
	})
	sortByPeriod(logs)
	return logs, nil
}

func (r *InMemoryHabitLogRepository) DeleteByHabitID(ctx context.Context, habitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, l := range r.store {
		if l.HabitID == habitID && l.DeletedAt == nil {
			l.DeletedAt = &now
			l.UpdatedAt = now
			l.Version++
		}
	}
	return nil
}

func (r *InMemoryHabitLogRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.filter(func(l *domain.HabitLog) bool {
		return l.UserID == userID && l.UpdatedAt.After(since)
	})
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].UpdatedAt.Before(logs[j].UpdatedAt)
	})
	return logs, nil
}

type InMemoryUserRepository struct {
	byID    map[string]*domain.User
	byEmail map[string]string

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}

	clone := *user
	r.byID[user.ID] = &clone
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *r.byID[id]
	return &clone, nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}
