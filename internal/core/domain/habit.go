package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitNameEmpty     = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong   = errors.New("habit name is too long (max 100 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidTarget      = errors.New("target cannot be negative")
	ErrInvalidHabitType   = errors.New("invalid habit type (must be at_least or at_most)")
	ErrInvalidPeriod      = errors.New("invalid period (must be daily or weekly)")
	ErrHabitDeleted       = errors.New("cannot update a deleted habit")
	ErrStartDateInFuture  = errors.New("start date cannot be in the future")
)

var colorRegex = regexp.MustCompile(`^#[A-Fa-f0-9]{6}$`)

// HabitType decides how a period's count is judged against the target.
type HabitType string

const (
	// HabitTypeAtLeast is a habit to build: done when count >= target.
	HabitTypeAtLeast HabitType = "at_least"
	// HabitTypeAtMost is a habit to quit: done when count <= target.
	HabitTypeAtMost HabitType = "at_most"
)

func (t HabitType) Valid() bool {
	return t == HabitTypeAtLeast || t == HabitTypeAtMost
}

// Period is the length of the bucket a habit is counted in.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

const (
	MaxNameLen = 100
	MaxTarget  = 999
)

type Habit struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	Name          string     `json:"name" db:"name"`
	Color         string     `json:"color" db:"color"`
	Type          HabitType  `json:"type" db:"type"`
	Period        Period     `json:"period" db:"period"`
	Target        int        `json:"target" db:"target"`
	CurrentStreak int        `json:"current_streak" db:"current_streak"`
	LongestStreak int        `json:"longest_streak" db:"longest_streak"`
	Version       int        `json:"version" db:"version"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func validateAndNormalize(name, color string, hType HabitType, period Period, target int) (string, string, HabitType, Period, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return "", "", "", "", ErrHabitNameEmpty
	}
	if len([]rune(trimmedName)) > MaxNameLen {
		return "", "", "", "", ErrHabitNameTooLong
	}

	if hType == "" {
		hType = HabitTypeAtLeast
	}
	if !hType.Valid() {
		return "", "", "", "", ErrInvalidHabitType
	}

	if period == "" {
		period = PeriodDaily
	}
	if !period.Valid() {
		return "", "", "", "", ErrInvalidPeriod
	}

	if target < 0 || target > MaxTarget {
		return "", "", "", "", ErrInvalidTarget
	}

	cleanColor := strings.TrimSpace(color)
	if cleanColor == "" {
		cleanColor = DefaultColor
	}
	if !colorRegex.MatchString(cleanColor) {
		return "", "", "", "", ErrInvalidColor
	}

	return trimmedName, strings.ToUpper(cleanColor), hType, period, nil
}

func NewHabit(userID, name, color string, hType HabitType, period Period, target int) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	cleanName, cleanColor, hType, period, err := validateAndNormalize(name, color, hType, period, target)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      cleanName,
		Color:     cleanColor,
		Type:      hType,
		Period:    period,
		Target:    target,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		StartDate: now,
	}, nil
}

func (h *Habit) Update(name, color string, hType HabitType, period Period, target int) error {
	if h.DeletedAt != nil {
		return ErrHabitDeleted
	}

	cleanName, cleanColor, hType, period, err := validateAndNormalize(name, color, hType, period, target)
	if err != nil {
		return err
	}

	h.Name = cleanName
	h.Color = cleanColor
	h.Type = hType
	h.Period = period
	h.Target = target
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// SetStartDate moves the day tracking begins. Days before it are never judged.
func (h *Habit) SetStartDate(start time.Time, cal *Calendar) error {
	if h.DeletedAt != nil {
		return ErrHabitDeleted
	}
	if cal.StartOfDay(start).After(cal.Today(time.Now())) {
		return ErrStartDateInFuture
	}

	h.StartDate = start.UTC()
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) UpdateStreak(current, longest int) {
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) MarkDeleted() {
	if h.DeletedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.DeletedAt = &now
	h.UpdatedAt = now
}

// IsActiveOn reports whether the habit is tracked on the given day: on or
// after the day of its start date.
func (h *Habit) IsActiveOn(day time.Time, cal *Calendar) bool {
	return !cal.StartOfDay(day).Before(h.StartKey(cal))
}

// StartKey is the day key of the habit's start date.
func (h *Habit) StartKey(cal *Calendar) time.Time {
	start := h.StartDate
	if start.IsZero() {
		start = h.CreatedAt
	}
	return cal.StartOfDay(start)
}
