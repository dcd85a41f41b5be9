package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// ShareRepository implements persistence.ShareRepository using SQLite.
type ShareRepository struct {
	pool *ConnectionPool
}

// NewShareRepository creates a new SQLite share repository.
func NewShareRepository(pool *ConnectionPool) *ShareRepository {
	return &ShareRepository{pool: pool}
}

// CreateShare inserts a sharing edge. The unique index on
// (firm_id, owner_id, shared_with_id) enforces one edge per pair.
func (r *ShareRepository) CreateShare(ctx context.Context, share persistence.CalendarShare) error {
	if share.ID == "" || share.OwnerID == "" || share.SharedWithID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO calendar_shares (id, firm_id, owner_id, shared_with_id, can_view, can_edit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		share.ID,
		share.FirmID,
		share.OwnerID,
		share.SharedWithID,
		boolInt(share.CanView),
		boolInt(share.CanEdit),
		share.CreatedAt.UTC().Format(time.RFC3339),
		share.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateShare replaces the permission flags of an edge.
func (r *ShareRepository) UpdateShare(ctx context.Context, share persistence.CalendarShare) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE calendar_shares SET can_view = ?, can_edit = ?, updated_at = ?
		WHERE id = ? AND firm_id = ?`,
		boolInt(share.CanView),
		boolInt(share.CanEdit),
		share.UpdatedAt.UTC().Format(time.RFC3339),
		share.ID,
		share.FirmID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// GetShare retrieves a firm-scoped edge by id.
func (r *ShareRepository) GetShare(ctx context.Context, firmID, id string) (persistence.CalendarShare, error) {
	if id == "" {
		return persistence.CalendarShare{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, firm_id, owner_id, shared_with_id, can_view, can_edit, created_at, updated_at
		FROM calendar_shares WHERE id = ? AND firm_id = ?`, id, firmID)
	return scanShare(row)
}

// DeleteShare removes an edge. Revoking a share is a hard delete.
func (r *ShareRepository) DeleteShare(ctx context.Context, firmID, id string) error {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM calendar_shares WHERE id = ? AND firm_id = ?", id, firmID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// ListShares returns a firm's edges, optionally narrowed to one owner.
func (r *ShareRepository) ListShares(ctx context.Context, firmID, ownerID string) ([]persistence.CalendarShare, error) {
	query := `
		SELECT id, firm_id, owner_id, shared_with_id, can_view, can_edit, created_at, updated_at
		FROM calendar_shares WHERE firm_id = ?`
	args := []any{firmID}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var shares []persistence.CalendarShare
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, mapError(rows.Err())
}

func scanShare(row rowScanner) (persistence.CalendarShare, error) {
	var share persistence.CalendarShare
	var canView, canEdit int
	var createdStr, updatedStr string

	err := row.Scan(
		&share.ID,
		&share.FirmID,
		&share.OwnerID,
		&share.SharedWithID,
		&canView,
		&canEdit,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.CalendarShare{}, mapError(err)
	}

	share.CanView = canView != 0
	share.CanEdit = canEdit != 0

	if share.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.CalendarShare{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if share.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.CalendarShare{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return share, nil
}
