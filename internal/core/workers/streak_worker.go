package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/metrics"
)

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type LogRepository interface {
	ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitLog, error)
}

type StreakJob struct {
	HabitID string
}

// StreakWorker recomputes the derived streak counters of a habit after its
// logs change. Jobs are processed sequentially in the background.
type StreakWorker struct {
	habitRepo HabitRepository
	logRepo   LogRepository
	cal       *domain.Calendar
	logger    *zap.Logger
	jobs      chan StreakJob
	now       func() time.Time
}

func NewStreakWorker(hRepo HabitRepository, lRepo LogRepository, cal *domain.Calendar, logger *zap.Logger, queueSize int) *StreakWorker {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &StreakWorker{
		habitRepo: hRepo,
		logRepo:   lRepo,
		cal:       cal,
		logger:    logger.Named("streak_worker"),
		jobs:      make(chan StreakJob, queueSize),
		now:       time.Now,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *StreakWorker) Run(ctx context.Context) error {
	w.logger.Info("streak worker started")
	for {
		select {
		case job := <-w.jobs:
			w.processJob(ctx, job)
		case <-ctx.Done():
			w.logger.Info("streak worker shutting down")
			return nil
		}
	}
}

// Enqueue never blocks: when the queue is full the job is dropped, the next
// change to the habit schedules it again.
func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		metrics.IncrementStreakJob("dropped")
		w.logger.Warn("streak queue full, dropping job", zap.String("habit_id", habitID))
	}
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	start := time.Now()
	defer func() { metrics.RecordStreakJobDuration(time.Since(start)) }()

	if err := w.Recompute(ctx, job.HabitID); err != nil {
		metrics.IncrementStreakJob("failed")
		w.logger.Error("streak job failed", zap.String("habit_id", job.HabitID), zap.Error(err))
		return
	}

	metrics.IncrementStreakJob("success")
}

// Recompute updates the streak counters of one habit in the caller's
// goroutine. A habit deleted in the meantime is not an error.
func (w *StreakWorker) Recompute(ctx context.Context, habitID string) error {
	habit, err := w.habitRepo.GetByID(ctx, habitID)
	if errors.Is(err, domain.ErrHabitNotFound) {
		w.logger.Debug("habit gone, skipping streak job", zap.String("habit_id", habitID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch habit: %w", err)
	}

	now := w.now()
	from := w.cal.PeriodKey(habit.Period, habit.StartKey(w.cal))
	to := w.cal.PeriodKey(habit.Period, now)

	logs, err := w.logRepo.ListByHabitID(ctx, habit.ID, from, to)
	if err != nil {
		return fmt.Errorf("fetch logs: %w", err)
	}

	current, longest := calculateStreaks(habit, logs, w.cal, now)

	if habit.CurrentStreak == current && habit.LongestStreak == longest {
		return nil
	}

	if err := w.habitRepo.UpdateStreaks(ctx, habit.ID, current, longest); err != nil {
		return fmt.Errorf("update streaks: %w", err)
	}

	w.logger.Debug("streak updated",
		zap.String("habit_id", habit.ID),
		zap.Int("current", current),
		zap.Int("longest", longest),
	)
	return nil
}

// calculateStreaks walks every period from the habit's start to the one
// containing now. The current streak counts the run of done periods ending at
// the current period, or at the previous one while the current period is still
// not done.
func calculateStreaks(h *domain.Habit, logs []*domain.HabitLog, cal *domain.Calendar, now time.Time) (int, int) {
	first := cal.PeriodKey(h.Period, h.StartKey(cal))
	last := cal.PeriodKey(h.Period, now)
	if first.After(last) {
		return 0, 0
	}

	counts := make(map[int64]int, len(logs))
	for _, l := range logs {
		counts[cal.PeriodKey(h.Period, l.PeriodKey).Unix()] += l.Count
	}

	var done []bool
	for key := first; !key.After(last); key = cal.AddPeriods(h.Period, key, 1) {
		done = append(done, domain.IsDone(h.Type, counts[key.Unix()], h.Target))
	}

	longest, run := 0, 0
	for _, d := range done {
		if d {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}

	end := len(done) - 1
	if !done[end] {
		end--
	}
	current := 0
	for i := end; i >= 0 && done[i]; i-- {
		current++
	}

	return current, longest
}
