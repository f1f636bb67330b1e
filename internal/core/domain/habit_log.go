package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidLog     = errors.New("invalid habit log data")
	ErrNegativeCount  = errors.New("count cannot be negative")
	ErrPeriodInactive = errors.New("period is before the habit start date")
	ErrPeriodInFuture = errors.New("period has not started yet")
)

// HabitLog is the counter of one habit in one period bucket.
type HabitLog struct {
	ID        string    `json:"id" db:"id"`
	HabitID   string    `json:"habit_id" db:"habit_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	PeriodKey time.Time `json:"period_key" db:"period_key"`
	Count     int       `json:"count" db:"count"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewHabitLog(habitID, userID string, key time.Time, count int) *HabitLog {
	now := time.Now().UTC()

	return &HabitLog{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    userID,
		PeriodKey: key,
		Count:     max(0, count),

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply adds delta to the counter, never going below zero.
func (l *HabitLog) Apply(delta int) {
	l.Count = max(0, l.Count+delta)
	l.UpdatedAt = time.Now().UTC()
}

func (l *HabitLog) Validate() error {
	if strings.TrimSpace(l.HabitID) == "" {
		return errors.New("habit_id is required")
	}
	if strings.TrimSpace(l.UserID) == "" {
		return errors.New("user_id is required")
	}
	if l.Count < 0 {
		return ErrNegativeCount
	}
	if l.PeriodKey.IsZero() {
		return errors.New("period_key is required")
	}
	return nil
}
