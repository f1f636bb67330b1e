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

var _ domain.HabitLogRepository = (*SQLHabitLogRepository)(nil)

const logColumns = `id, habit_id, user_id, period_key, count, version, created_at, updated_at, deleted_at`

type SQLHabitLogRepository struct {
	db *sqlx.DB
}

func NewSQLHabitLogRepository(db *sqlx.DB) *SQLHabitLogRepository {
	return &SQLHabitLogRepository{db: db}
}

// Increment upserts on (habit_id, period_key) and reads the row back inside
// one transaction, so the returned count is the one this call produced.
func (r *SQLHabitLogRepository) Increment(ctx context.Context, log *domain.HabitLog, delta int) error {
	now := time.Now().UTC()
	key := log.PeriodKey.UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin increment: %w", err)
	}
	defer tx.Rollback()

	upsert := tx.Rebind(`
		INSERT INTO habit_logs (id, habit_id, user_id, period_key, count, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, CASE WHEN ? < 0 THEN 0 ELSE ? END, 1, ?, ?)
		ON CONFLICT (habit_id, period_key) DO UPDATE SET
			count = CASE WHEN habit_logs.count + ? < 0 THEN 0 ELSE habit_logs.count + ? END,
			version = habit_logs.version + 1,
			updated_at = ?,
			deleted_at = NULL`)

	_, err = tx.ExecContext(ctx, upsert,
		log.ID, log.HabitID, log.UserID, key, delta, delta, now, now,
		delta, delta, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrHabitNotFound
		}
		return fmt.Errorf("increment query failed: %w", err)
	}

	var stored domain.HabitLog
	get := tx.Rebind(`SELECT ` + logColumns + ` FROM habit_logs WHERE habit_id = ? AND period_key = ?`)
	if err := tx.GetContext(ctx, &stored, get, log.HabitID, key); err != nil {
		return fmt.Errorf("read back incremented log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit increment: %w", err)
	}

	*log = stored
	return nil
}

func (r *SQLHabitLogRepository) Update(ctx context.Context, log *domain.HabitLog) error {
	now := time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE habit_logs
		SET count = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND deleted_at IS NULL`)

	res, err := r.db.ExecContext(ctx, query, log.Count, now, log.ID, log.Version)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, log.ID); err != nil {
			return err
		}
		return domain.ErrLogConflict
	}

	log.Version++
	log.UpdatedAt = now
	return nil
}

func (r *SQLHabitLogRepository) GetByID(ctx context.Context, id string) (*domain.HabitLog, error) {
	var log domain.HabitLog
	query := r.db.Rebind(`SELECT ` + logColumns + ` FROM habit_logs WHERE id = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLogNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *SQLHabitLogRepository) GetByPeriod(ctx context.Context, habitID string, key time.Time) (*domain.HabitLog, error) {
	var log domain.HabitLog
	query := r.db.Rebind(`
		SELECT ` + logColumns + ` FROM habit_logs
		WHERE habit_id = ? AND period_key = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &log, query, habitID, key.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLogNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *SQLHabitLogRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitLog, error) {
	logs := []*domain.HabitLog{}
	query := r.db.Rebind(`
		SELECT ` + logColumns + ` FROM habit_logs
		WHERE habit_id = ?
		  AND period_key >= ?
		  AND period_key <= ?
		  AND deleted_at IS NULL
		ORDER BY period_key ASC`)

	if err := r.db.SelectContext(ctx, &logs, query, habitID, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *SQLHabitLogRepository) ListByUserID(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitLog, error) {
	logs := []*domain.HabitLog{}
	query := r.db.Rebind(`
		SELECT ` + logColumns + ` FROM habit_logs
		WHERE user_id = ?
		  AND period_key >= ?
		  AND period_key <= ?
		  AND deleted_at IS NULL
		ORDER BY period_key ASC`)

	if err := r.db.SelectContext(ctx, &logs, query, userID, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *SQLHabitLogRepository) DeleteByHabitID(ctx context.Context, habitID string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE habit_logs
		SET deleted_at = ?, updated_at = ?, version = version + 1
		WHERE habit_id = ? AND deleted_at IS NULL`)

	if _, err := r.db.ExecContext(ctx, query, now, now, habitID); err != nil {
		return fmt.Errorf("delete logs failed: %w", err)
	}
	return nil
}

func (r *SQLHabitLogRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitLog, error) {
	logs := []*domain.HabitLog{}
	query := r.db.Rebind(`
		SELECT ` + logColumns + ` FROM habit_logs
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`)

	if err := r.db.SelectContext(ctx, &logs, query, userID, since.UTC()); err != nil {
		return nil, err
	}
	return logs, nil
}
