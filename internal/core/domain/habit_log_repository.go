package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLogNotFound = errors.New("habit log not found")
	ErrLogConflict = errors.New("habit log version conflict")
)

type HabitLogRepository interface {
	// Increment atomically adds delta to the log of (log.HabitID, log.PeriodKey),
	// creating it when missing. The stored count never drops below zero.
	// On return log holds the stored row.
	Increment(ctx context.Context, log *HabitLog, delta int) error

	// Update overwrites the count of an existing log.
	// Implementations must handle Optimistic Locking (version check) to prevent data races.
	Update(ctx context.Context, log *HabitLog) error

	// GetByID retrieves a single live log by its ID.
	GetByID(ctx context.Context, id string) (*HabitLog, error)

	// GetByPeriod retrieves the live log of a habit for one period key.
	GetByPeriod(ctx context.Context, habitID string, key time.Time) (*HabitLog, error)

	// ListByHabitID retrieves the logs of a habit with from <= period_key <= to.
	ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*HabitLog, error)

	// ListByUserID retrieves the logs of all habits of a user with from <= period_key <= to.
	ListByUserID(ctx context.Context, userID string, from, to time.Time) ([]*HabitLog, error)

	// DeleteByHabitID soft-deletes every log of a habit.
	DeleteByHabitID(ctx context.Context, habitID string) error

	// GetChanges [SYNC ENGINE] Returns all changes (creations, updates, soft-deletes)
	// that occurred after the 'since' timestamp.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*HabitLog, error)
}
