package services

import (
	"context"
	"errors"
	"time"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/metrics"
)

// StreakScheduler queues a streak recomputation for a habit.
type StreakScheduler interface {
	Enqueue(habitID string)
}

type LogService struct {
	repo      domain.HabitLogRepository
	habitRepo domain.HabitRepository
	cal       *domain.Calendar
	streaks   StreakScheduler
	now       func() time.Time
}

func NewLogService(repo domain.HabitLogRepository, habitRepo domain.HabitRepository, cal *domain.Calendar, streaks StreakScheduler) *LogService {
	return &LogService{
		repo:      repo,
		habitRepo: habitRepo,
		cal:       cal,
		streaks:   streaks,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests and replays.
func (s *LogService) WithClock(now func() time.Time) *LogService {
	s.now = now
	return s
}

type IncrementInput struct {
	HabitID string
	UserID  string
	// Delta defaults to 1 when zero.
	Delta int
	// At selects the period; zero means now.
	At time.Time
}

type SetCountInput struct {
	ID      string
	UserID  string
	Count   int
	Version int
}

type LogResult struct {
	Log      *domain.HabitLog `json:"log"`
	Progress domain.Progress  `json:"progress"`
}

// ownedHabit reports habits of other users as not found, like HabitService.Get.
func (s *LogService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *LogService) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// writableKey resolves the period key for t and rejects periods that cannot be
// logged: before the habit's start or after the current period.
func (s *LogService) writableKey(h *domain.Habit, t time.Time) (time.Time, error) {
	key := s.cal.PeriodKey(h.Period, t)

	if key.After(s.cal.PeriodKey(h.Period, s.now())) {
		return time.Time{}, domain.ErrPeriodInFuture
	}
	if key.Before(s.cal.PeriodKey(h.Period, h.StartKey(s.cal))) {
		return time.Time{}, domain.ErrPeriodInactive
	}
	return key, nil
}

// CurrentLog returns the log of the period containing at. When the period has
// no log yet, an unsaved zero log is returned.
func (s *LogService) CurrentLog(ctx context.Context, habitID, userID string, at time.Time) (*domain.HabitLog, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	return s.logFor(ctx, habit, s.at(at))
}

func (s *LogService) logFor(ctx context.Context, habit *domain.Habit, at time.Time) (*domain.HabitLog, error) {
	key := s.cal.PeriodKey(habit.Period, at)

	log, err := s.repo.GetByPeriod(ctx, habit.ID, key)
	if errors.Is(err, domain.ErrLogNotFound) {
		empty := domain.NewHabitLog(habit.ID, habit.UserID, key, 0)
		empty.ID = ""
		empty.Version = 0
		return empty, nil
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *LogService) Increment(ctx context.Context, input IncrementInput) (*LogResult, error) {
	if input.Delta == 0 {
		input.Delta = 1
	}

	habit, err := s.ownedHabit(ctx, input.HabitID, input.UserID)
	if err != nil {
		return nil, err
	}

	key, err := s.writableKey(habit, s.at(input.At))
	if err != nil {
		return nil, err
	}

	log := domain.NewHabitLog(habit.ID, habit.UserID, key, 0)
	if err := log.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Increment(ctx, log, input.Delta); err != nil {
		return nil, err
	}

	metrics.IncrementLogChange(input.Delta)
	s.streaks.Enqueue(habit.ID)

	return &LogResult{Log: log, Progress: domain.Evaluate(habit, log.Count)}, nil
}

// Decrement lowers the counter by |delta| (1 when zero), clamping at zero.
func (s *LogService) Decrement(ctx context.Context, input IncrementInput) (*LogResult, error) {
	switch {
	case input.Delta == 0:
		input.Delta = -1
	case input.Delta > 0:
		input.Delta = -input.Delta
	}
	return s.Increment(ctx, input)
}

// SetCount overwrites a log's counter. A stale Version fails with
// ErrLogConflict. Version 0 forces the write; the HTTP API never sends it.
func (s *LogService) SetCount(ctx context.Context, input SetCountInput) (*LogResult, error) {
	if input.Count < 0 {
		return nil, domain.ErrNegativeCount
	}

	log, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && log.Version != input.Version {
		return nil, domain.ErrLogConflict
	}

	habit, err := s.ownedHabit(ctx, log.HabitID, input.UserID)
	if err != nil {
		return nil, err
	}

	log.Count = input.Count
	log.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, log); err != nil {
		return nil, err
	}

	s.streaks.Enqueue(habit.ID)

	return &LogResult{Log: log, Progress: domain.Evaluate(habit, log.Count)}, nil
}

// Progress reports (count, target, done) for the period containing at.
func (s *LogService) Progress(ctx context.Context, habitID, userID string, at time.Time) (*domain.HabitProgress, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	log, err := s.logFor(ctx, habit, s.at(at))
	if err != nil {
		return nil, err
	}

	return &domain.HabitProgress{
		Habit:     habit,
		PeriodKey: s.cal.Format(log.PeriodKey),
		Progress:  domain.Evaluate(habit, log.Count),
	}, nil
}

func (s *LogService) GetByID(ctx context.Context, id string, userID string) (*domain.HabitLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return log, nil
}

func (s *LogService) ListByHabitID(ctx context.Context, habitID string, userID string, from, to time.Time) ([]*domain.HabitLog, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	return s.repo.ListByHabitID(ctx, habit.ID, s.cal.PeriodKey(habit.Period, from), s.cal.StartOfDay(to))
}

func (s *LogService) GetDelta(ctx context.Context, userID string, since time.Time) ([]*domain.HabitLog, error) {
	return s.repo.GetChanges(ctx, userID, since)
}
