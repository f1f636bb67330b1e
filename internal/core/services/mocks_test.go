package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

func ptr[T any](v T) *T {
	return &v
}

type MockRepo struct {
	mu            sync.Mutex
	store         map[string]*domain.Habit
	simulateError error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		store: make(map[string]*domain.Habit),
	}
}

func (m *MockRepo) Create(ctx context.Context, habit *domain.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return m.simulateError
	}

	if _, exists := m.store[habit.ID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}

	if habit.Version == 0 {
		habit.Version = 1
	}
	clone := *habit
	m.store[habit.ID] = &clone
	return nil
}

func (m *MockRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	h, ok := m.store[id]
	if !ok || h.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	clone := *h
	return &clone, nil
}

func (m *MockRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	list := []*domain.Habit{}
	for _, h := range m.store {
		if h.UserID == userID && h.DeletedAt == nil {
			clone := *h
			list = append(list, &clone)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MockRepo) Update(ctx context.Context, habit *domain.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return m.simulateError
	}

	stored, ok := m.store[habit.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	clone := *habit
	m.store[habit.ID] = &clone
	return nil
}

func (m *MockRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return m.simulateError
	}
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	now := time.Now().UTC()
	h.DeletedAt = &now
	h.Version++
	h.UpdatedAt = now
	return nil
}

func (m *MockRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changes []*domain.Habit
	for _, h := range m.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			clone := *h
			changes = append(changes, &clone)
		}
	}
	return changes, nil
}

func (m *MockRepo) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.CurrentStreak = current
	h.LongestStreak = longest
	return nil
}

type MockLogRepo struct {
	mu            sync.Mutex
	store         map[string]*domain.HabitLog
	simulateError error
}

func NewMockLogRepo() *MockLogRepo {
	return &MockLogRepo{
		store: make(map[string]*domain.HabitLog),
	}
}

func (m *MockLogRepo) find(habitID string, key time.Time) *domain.HabitLog {
	for _, l := range m.store {
		if l.HabitID == habitID && l.PeriodKey.Equal(key) && l.DeletedAt == nil {
			return l
		}
	}
	return nil
}

func (m *MockLogRepo) Increment(ctx context.Context, log *domain.HabitLog, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return m.simulateError
	}

	stored := m.find(log.HabitID, log.PeriodKey)
	if stored == nil {
		clone := *log
		clone.Count = 0
		stored = &clone
		m.store[stored.ID] = stored
	} else {
		stored.Version++
	}
	stored.Apply(delta)

	*log = *stored
	return nil
}

func (m *MockLogRepo) Update(ctx context.Context, log *domain.HabitLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.store[log.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrLogNotFound
	}
	if stored.Version != log.Version {
		return domain.ErrLogConflict
	}
	log.Version++
	clone := *log
	m.store[log.ID] = &clone
	return nil
}

func (m *MockLogRepo) GetByID(ctx context.Context, id string) (*domain.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[id]
	if !ok || l.DeletedAt != nil {
		return nil, domain.ErrLogNotFound
	}
	clone := *l
	return &clone, nil
}

func (m *MockLogRepo) GetByPeriod(ctx context.Context, habitID string, key time.Time) (*domain.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.find(habitID, key)
	if l == nil {
		return nil, domain.ErrLogNotFound
	}
	clone := *l
	return &clone, nil
}

func (m *MockLogRepo) list(match func(l *domain.HabitLog) bool, from, to time.Time) []*domain.HabitLog {
	list := []*domain.HabitLog{}
	for _, l := range m.store {
		if l.DeletedAt != nil || !match(l) {
			continue
		}
		if l.PeriodKey.Before(from) || l.PeriodKey.After(to) {
			continue
		}
		clone := *l
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].PeriodKey.Before(list[j].PeriodKey)
	})
	return list
}

func (m *MockLogRepo) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	return m.list(func(l *domain.HabitLog) bool { return l.HabitID == habitID }, from, to), nil
}

func (m *MockLogRepo) ListByUserID(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	return m.list(func(l *domain.HabitLog) bool { return l.UserID == userID }, from, to), nil
}

func (m *MockLogRepo) DeleteByHabitID(ctx context.Context, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, l := range m.store {
		if l.HabitID == habitID && l.DeletedAt == nil {
			l.DeletedAt = &now
			l.UpdatedAt = now
			l.Version++
		}
	}
	return nil
}

func (m *MockLogRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changes []*domain.HabitLog
	for _, l := range m.store {
		if l.UserID == userID && l.UpdatedAt.After(since) {
			clone := *l
			changes = append(changes, &clone)
		}
	}
	return changes, nil
}

type recordingStreaks struct {
	mu     sync.Mutex
	queued []string
}

func (r *recordingStreaks) Enqueue(habitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, habitID)
}

func (r *recordingStreaks) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queued)
}
