package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

type repos struct {
	habits domain.HabitRepository
	logs   domain.HabitLogRepository
	users  domain.UserRepository
}

var rome = func() *domain.Calendar {
	cal, err := domain.LoadCalendar("Europe/Rome")
	if err != nil {
		panic(err)
	}
	return cal
}()

func newTestHabit(t *testing.T, userID, name string, period domain.Period) *domain.Habit {
	t.Helper()
	h, err := domain.NewHabit(userID, name, "#4f7cac", domain.HabitTypeAtLeast, period, 2)
	require.NoError(t, err)
	return h
}

// runHabitRepositoryContract exercises the behaviour every HabitRepository
// implementation shares.
func runHabitRepositoryContract(t *testing.T, r repos) {
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	habit := newTestHabit(t, userID, "Test Integration Habit", domain.PeriodDaily)

	t.Run("Create Habit", func(t *testing.T) {
		require.NoError(t, r.habits.Create(ctx, habit))
		assert.Equal(t, 1, habit.Version)

		err := r.habits.Create(ctx, habit)
		assert.ErrorIs(t, err, domain.ErrHabitConflict, "duplicate ids are rejected")
	})

	t.Run("Get By ID", func(t *testing.T) {
		fetched, err := r.habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, habit.Name, fetched.Name)
		assert.Equal(t, "#4F7CAC", fetched.Color)
		assert.Equal(t, domain.HabitTypeAtLeast, fetched.Type)
		assert.Equal(t, domain.PeriodDaily, fetched.Period)
		assert.Equal(t, 2, fetched.Target)
		assert.Equal(t, 1, fetched.Version)
		assert.WithinDuration(t, habit.StartDate, fetched.StartDate, time.Millisecond)
		assert.Nil(t, fetched.DeletedAt)

		_, err = r.habits.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Update Habit", func(t *testing.T) {
		fetched, err := r.habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)

		require.NoError(t, fetched.Update("Updated Name", "#000000", domain.HabitTypeAtMost, domain.PeriodWeekly, 1))
		require.NoError(t, r.habits.Update(ctx, fetched))
		assert.Equal(t, 2, fetched.Version)

		stored, err := r.habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated Name", stored.Name)
		assert.Equal(t, domain.PeriodWeekly, stored.Period)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("Optimistic Locking", func(t *testing.T) {
		stale, err := r.habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		stale.Version = 1

		err = r.habits.Update(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrHabitConflict)

		ghost := newTestHabit(t, userID, "Ghost", domain.PeriodDaily)
		err = r.habits.Update(ctx, ghost)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Update Streaks keeps the version", func(t *testing.T) {
		require.NoError(t, r.habits.UpdateStreaks(ctx, habit.ID, 3, 7))

		stored, err := r.habits.GetByID(ctx, habit.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.CurrentStreak)
		assert.Equal(t, 7, stored.LongestStreak)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("List newest first", func(t *testing.T) {
		newer := newTestHabit(t, userID, "Newer", domain.PeriodDaily)
		newer.CreatedAt = habit.CreatedAt.Add(time.Minute)
		require.NoError(t, r.habits.Create(ctx, newer))

		other := newTestHabit(t, "someone-else-"+uuid.NewString(), "Other", domain.PeriodDaily)
		require.NoError(t, r.habits.Create(ctx, other))

		list, err := r.habits.ListByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, habit.ID, list[1].ID)
	})

	t.Run("Soft Delete and Sync", func(t *testing.T) {
		since := time.Now().UTC().Add(-time.Second)

		require.NoError(t, r.habits.Delete(ctx, habit.ID))
		assert.ErrorIs(t, r.habits.Delete(ctx, habit.ID), domain.ErrHabitNotFound)

		_, err := r.habits.GetByID(ctx, habit.ID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		changes, err := r.habits.GetChanges(ctx, userID, since)
		require.NoError(t, err)

		var found *domain.Habit
		for _, c := range changes {
			if c.ID == habit.ID {
				found = c
			}
		}
		require.NotNil(t, found, "deleted habits are part of the delta")
		assert.NotNil(t, found.DeletedAt)
		assert.Equal(t, 3, found.Version)

		list, err := r.habits.ListByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func runHabitLogRepositoryContract(t *testing.T, r repos) {
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	daily := newTestHabit(t, userID, "Daily", domain.PeriodDaily)
	weekly := newTestHabit(t, userID, "Weekly", domain.PeriodWeekly)
	require.NoError(t, r.habits.Create(ctx, daily))
	require.NoError(t, r.habits.Create(ctx, weekly))

	// 23:30 UTC on the 10th is already the 11th in Rome.
	day1 := rome.PeriodKey(domain.PeriodDaily, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
	day2 := rome.AddPeriods(domain.PeriodDaily, day1, 1)
	day3 := rome.AddPeriods(domain.PeriodDaily, day1, 2)

	var first *domain.HabitLog

	t.Run("Increment creates then accumulates", func(t *testing.T) {
		log := domain.NewHabitLog(daily.ID, userID, day1, 0)
		require.NoError(t, r.logs.Increment(ctx, log, 1))
		assert.Equal(t, 1, log.Count)
		assert.Equal(t, 1, log.Version)
		assert.True(t, log.PeriodKey.Equal(day1))
		first = log

		again := domain.NewHabitLog(daily.ID, userID, day1, 0)
		require.NoError(t, r.logs.Increment(ctx, again, 2))
		assert.Equal(t, first.ID, again.ID, "one row per habit and period")
		assert.Equal(t, 3, again.Count)
		assert.Equal(t, 2, again.Version)
	})

	t.Run("Increment clamps at zero", func(t *testing.T) {
		log := domain.NewHabitLog(daily.ID, userID, day1, 0)
		require.NoError(t, r.logs.Increment(ctx, log, -10))
		assert.Equal(t, 0, log.Count)

		fresh := domain.NewHabitLog(daily.ID, userID, day2, 0)
		require.NoError(t, r.logs.Increment(ctx, fresh, -1))
		assert.Equal(t, 0, fresh.Count)
	})

	t.Run("Concurrent increments are not lost", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				log := domain.NewHabitLog(daily.ID, userID, day3, 0)
				assert.NoError(t, r.logs.Increment(ctx, log, 1))
			}()
		}
		wg.Wait()

		stored, err := r.logs.GetByPeriod(ctx, daily.ID, day3)
		require.NoError(t, err)
		assert.Equal(t, 10, stored.Count)
	})

	t.Run("Get By Period and ID", func(t *testing.T) {
		stored, err := r.logs.GetByPeriod(ctx, daily.ID, day1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, stored.ID)
		assert.Equal(t, "2025-03-11", rome.Format(stored.PeriodKey))

		_, err = r.logs.GetByPeriod(ctx, weekly.ID, day1)
		assert.ErrorIs(t, err, domain.ErrLogNotFound)

		byID, err := r.logs.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, daily.ID, byID.HabitID)

		_, err = r.logs.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrLogNotFound)
	})

	t.Run("Update with optimistic locking", func(t *testing.T) {
		stored, err := r.logs.GetByID(ctx, first.ID)
		require.NoError(t, err)

		version := stored.Version
		stored.Count = 5
		require.NoError(t, r.logs.Update(ctx, stored))
		assert.Equal(t, version+1, stored.Version)

		stale := *stored
		stale.Version = version
		assert.ErrorIs(t, r.logs.Update(ctx, &stale), domain.ErrLogConflict)

		ghost := domain.NewHabitLog(daily.ID, userID, day1, 1)
		assert.ErrorIs(t, r.logs.Update(ctx, ghost), domain.ErrLogNotFound)
	})

	t.Run("List by habit and user within range", func(t *testing.T) {
		weekKey := rome.PeriodKey(domain.PeriodWeekly, day1)
		wlog := domain.NewHabitLog(weekly.ID, userID, weekKey, 0)
		require.NoError(t, r.logs.Increment(ctx, wlog, 4))

		logs, err := r.logs.ListByHabitID(ctx, daily.ID, day2, day3)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.True(t, logs[0].PeriodKey.Equal(day2))
		assert.True(t, logs[1].PeriodKey.Equal(day3))

		all, err := r.logs.ListByUserID(ctx, userID, rome.StartOfWeek(day1), day3)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := r.logs.ListByUserID(ctx, "nobody", day1, day3)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Delete by habit and sync", func(t *testing.T) {
		since := time.Now().UTC().Add(-time.Second)

		require.NoError(t, r.logs.DeleteByHabitID(ctx, daily.ID))

		_, err := r.logs.GetByID(ctx, first.ID)
		assert.ErrorIs(t, err, domain.ErrLogNotFound)

		logs, err := r.logs.ListByHabitID(ctx, daily.ID, day1, day3)
		require.NoError(t, err)
		assert.Empty(t, logs)

		changes, err := r.logs.GetChanges(ctx, userID, since)
		require.NoError(t, err)
		deleted := 0
		for _, c := range changes {
			if c.DeletedAt != nil {
				deleted++
			}
		}
		assert.Equal(t, 3, deleted)
	})
}

func runUserRepositoryContract(t *testing.T, r repos) {
	ctx := context.Background()

	user, err := domain.NewUser(uuid.NewString(), "Repo-"+uuid.NewString()[:8]+"@habitlite.app")
	require.NoError(t, err)
	require.NoError(t, user.SetPassword("password123"))

	t.Run("Create and fetch", func(t *testing.T) {
		require.NoError(t, r.users.Create(ctx, user))

		byEmail, err := r.users.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
		assert.Equal(t, user.PasswordHash, byEmail.PasswordHash)

		byID, err := r.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		dup, err := domain.NewUser(uuid.NewString(), user.Email)
		require.NoError(t, err)
		dup.PasswordHash = "x"

		assert.ErrorIs(t, r.users.Create(ctx, dup), domain.ErrEmailAlreadyExists)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := r.users.GetByEmail(ctx, "nobody@habitlite.app")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = r.users.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func runAllContracts(t *testing.T, r repos) {
	t.Run("Habits", func(t *testing.T) { runHabitRepositoryContract(t, r) })
	t.Run("Logs", func(t *testing.T) { runHabitLogRepositoryContract(t, r) })
	t.Run("Users", func(t *testing.T) { runUserRepositoryContract(t, r) })
}
