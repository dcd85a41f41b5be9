package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository
// using SQLite.
type AvailabilityRepository struct {
	pool *ConnectionPool
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// CreateWindow inserts a recurring weekly window.
func (r *AvailabilityRepository) CreateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	if window.ID == "" || window.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO availability_windows (id, firm_id, user_id, weekday, start_minute, end_minute, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		window.ID,
		window.FirmID,
		window.UserID,
		window.Weekday,
		window.StartMinute,
		window.EndMinute,
		window.CreatedAt.UTC().Format(time.RFC3339),
		window.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateWindow replaces a window's weekday and range.
func (r *AvailabilityRepository) UpdateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE availability_windows
		SET weekday = ?, start_minute = ?, end_minute = ?, updated_at = ?
		WHERE id = ? AND firm_id = ?`,
		window.Weekday,
		window.StartMinute,
		window.EndMinute,
		window.UpdatedAt.UTC().Format(time.RFC3339),
		window.ID,
		window.FirmID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// DeleteWindow removes a window.
func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, firmID, id string) error {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM availability_windows WHERE id = ? AND firm_id = ?", id, firmID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// ListWindows returns all recurring windows for a user ordered by weekday
// then start minute.
func (r *AvailabilityRepository) ListWindows(ctx context.Context, firmID, userID string) ([]persistence.AvailabilityWindow, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, firm_id, user_id, weekday, start_minute, end_minute, created_at, updated_at
		FROM availability_windows
		WHERE firm_id = ? AND user_id = ?
		ORDER BY weekday ASC, start_minute ASC`, firmID, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var windows []persistence.AvailabilityWindow
	for rows.Next() {
		var w persistence.AvailabilityWindow
		var createdStr, updatedStr string
		if err := rows.Scan(&w.ID, &w.FirmID, &w.UserID, &w.Weekday, &w.StartMinute, &w.EndMinute, &createdStr, &updatedStr); err != nil {
			return nil, mapError(err)
		}
		if w.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if w.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, mapError(rows.Err())
}

// CreateException inserts a date-specific availability exception.
func (r *AvailabilityRepository) CreateException(ctx context.Context, exception persistence.AvailabilityException) error {
	if exception.ID == "" || exception.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO availability_exceptions (id, firm_id, user_id, date, kind, start_minute, end_minute, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exception.ID,
		exception.FirmID,
		exception.UserID,
		exception.Date,
		exception.Kind,
		exception.StartMinute,
		exception.EndMinute,
		exception.CreatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// DeleteException removes an exception.
func (r *AvailabilityRepository) DeleteException(ctx context.Context, firmID, id string) error {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM availability_exceptions WHERE id = ? AND firm_id = ?", id, firmID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// ListExceptions returns a user's exceptions, optionally narrowed to one
// date (YYYY-MM-DD).
func (r *AvailabilityRepository) ListExceptions(ctx context.Context, firmID, userID, date string) ([]persistence.AvailabilityException, error) {
	query := `
		SELECT id, firm_id, user_id, date, kind, start_minute, end_minute, created_at
		FROM availability_exceptions
		WHERE firm_id = ? AND user_id = ?`
	args := []any{firmID, userID}
	if date != "" {
		query += " AND date = ?"
		args = append(args, date)
	}
	query += " ORDER BY date ASC, start_minute ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var exceptions []persistence.AvailabilityException
	for rows.Next() {
		var e persistence.AvailabilityException
		var createdStr string
		if err := rows.Scan(&e.ID, &e.FirmID, &e.UserID, &e.Date, &e.Kind, &e.StartMinute, &e.EndMinute, &createdStr); err != nil {
			return nil, mapError(err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, mapError(rows.Err())
}

func requireAffected(affected int64, err error) error {
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
