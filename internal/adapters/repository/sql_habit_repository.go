package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

var _ domain.HabitRepository = (*SQLHabitRepository)(nil)

const habitColumns = `id, user_id, name, color, type, period, target,
	current_streak, longest_streak, version, start_date, created_at, updated_at, deleted_at`

// SQLHabitRepository stores habits in Postgres or SQLite. Queries are written
// with ? placeholders and rebound for the driver.
type SQLHabitRepository struct {
	db *sqlx.DB
}

func NewSQLHabitRepository(db *sqlx.DB) *SQLHabitRepository {
	return &SQLHabitRepository{db: db}
}

func (r *SQLHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	query := r.db.Rebind(`
		INSERT INTO habits (
			id, user_id, name, color, type, period, target,
			current_streak, longest_streak, version, start_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Name, h.Color, h.Type, h.Period, h.Target,
		h.CurrentStreak, h.LongestStreak,
		h.StartDate.UTC(), h.CreatedAt.UTC(), h.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = 1
	return nil
}

func (r *SQLHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	var h domain.Habit
	query := r.db.Rebind(`SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &h, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &h, nil
}

func (r *SQLHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	habits := []*domain.Habit{}
	query := r.db.Rebind(`
		SELECT ` + habitColumns + ` FROM habits
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id ASC`)

	if err := r.db.SelectContext(ctx, &habits, query, userID); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return habits, nil
}

func (r *SQLHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	now := time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE habits SET
			name = ?, color = ?, type = ?, period = ?, target = ?,
			start_date = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND deleted_at IS NULL`)

	res, err := r.db.ExecContext(ctx, query,
		h.Name, h.Color, h.Type, h.Period, h.Target,
		h.StartDate.UTC(), now,
		h.ID, h.Version,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, err := r.exists(ctx, h.ID)
		if err != nil {
			return fmt.Errorf("existence check failed: %w", err)
		}
		if !exists {
			return domain.ErrHabitNotFound
		}
		return domain.ErrHabitConflict
	}

	h.Version++
	h.UpdatedAt = now
	return nil
}

func (r *SQLHabitRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM habits WHERE id = ? AND deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLHabitRepository) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE habits
		SET deleted_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND deleted_at IS NULL`)

	res, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}

func (r *SQLHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	habits := []*domain.Habit{}
	query := r.db.Rebind(`
		SELECT ` + habitColumns + ` FROM habits
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`)

	if err := r.db.SelectContext(ctx, &habits, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}

	return habits, nil
}

// UpdateStreaks bumps updated_at so sync clients see the new counters. The
// version is left untouched.
func (r *SQLHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	query := r.db.Rebind(`
		UPDATE habits
		SET current_streak = ?, longest_streak = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`)

	res, err := r.db.ExecContext(ctx, query, current, longest, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("streak update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
