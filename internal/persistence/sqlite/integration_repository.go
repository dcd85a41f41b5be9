package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// IntegrationRepository implements persistence.IntegrationRepository using
// SQLite.
type IntegrationRepository struct {
	pool *ConnectionPool
}

// NewIntegrationRepository creates a new SQLite integration repository.
func NewIntegrationRepository(pool *ConnectionPool) *IntegrationRepository {
	return &IntegrationRepository{pool: pool}
}

// CreateIntegration inserts a new provider connection.
func (r *IntegrationRepository) CreateIntegration(ctx context.Context, integration persistence.CalendarIntegration) error {
	if integration.ID == "" || integration.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO calendar_integrations (id, firm_id, user_id, provider, credential,
			sync_direction, auto_sync, last_sync_at, last_sync_status, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		integration.ID,
		integration.FirmID,
		integration.UserID,
		integration.Provider,
		integration.Credential,
		integration.SyncDirection,
		boolInt(integration.AutoSync),
		nullTime(integration.LastSyncAt),
		integration.LastSyncStatus,
		boolInt(integration.Active),
		integration.CreatedAt.UTC().Format(time.RFC3339),
		integration.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateIntegration replaces the mutable fields of an integration.
func (r *IntegrationRepository) UpdateIntegration(ctx context.Context, integration persistence.CalendarIntegration) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE calendar_integrations
		SET credential = ?, sync_direction = ?, auto_sync = ?, last_sync_at = ?,
			last_sync_status = ?, active = ?, updated_at = ?
		WHERE id = ? AND firm_id = ?`,
		integration.Credential,
		integration.SyncDirection,
		boolInt(integration.AutoSync),
		nullTime(integration.LastSyncAt),
		integration.LastSyncStatus,
		boolInt(integration.Active),
		integration.UpdatedAt.UTC().Format(time.RFC3339),
		integration.ID,
		integration.FirmID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// GetIntegration retrieves a firm-scoped integration by id.
func (r *IntegrationRepository) GetIntegration(ctx context.Context, firmID, id string) (persistence.CalendarIntegration, error) {
	if id == "" {
		return persistence.CalendarIntegration{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, selectIntegrationColumns+
		" FROM calendar_integrations WHERE id = ? AND firm_id = ?", id, firmID)
	return scanIntegration(row)
}

// DeleteIntegration removes an integration. Disconnect is a hard delete.
func (r *IntegrationRepository) DeleteIntegration(ctx context.Context, firmID, id string) error {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM calendar_integrations WHERE id = ? AND firm_id = ?", id, firmID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// ListIntegrations returns a firm's integrations.
func (r *IntegrationRepository) ListIntegrations(ctx context.Context, firmID string) ([]persistence.CalendarIntegration, error) {
	return r.list(ctx, selectIntegrationColumns+
		" FROM calendar_integrations WHERE firm_id = ? ORDER BY created_at ASC, id ASC", firmID)
}

// ListAutoSync returns every active integration with auto-sync enabled,
// across firms. Used by the externally triggered sync timer.
func (r *IntegrationRepository) ListAutoSync(ctx context.Context) ([]persistence.CalendarIntegration, error) {
	return r.list(ctx, selectIntegrationColumns+
		" FROM calendar_integrations WHERE active = 1 AND auto_sync = 1 ORDER BY id ASC")
}

func (r *IntegrationRepository) list(ctx context.Context, query string, args ...any) ([]persistence.CalendarIntegration, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var integrations []persistence.CalendarIntegration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integration)
	}
	return integrations, mapError(rows.Err())
}

const selectIntegrationColumns = `
	SELECT id, firm_id, user_id, provider, credential, sync_direction, auto_sync,
		last_sync_at, last_sync_status, active, created_at, updated_at`

func scanIntegration(row rowScanner) (persistence.CalendarIntegration, error) {
	var integration persistence.CalendarIntegration
	var autoSync, active int
	var lastSyncAt sql.NullString
	var createdStr, updatedStr string

	err := row.Scan(
		&integration.ID,
		&integration.FirmID,
		&integration.UserID,
		&integration.Provider,
		&integration.Credential,
		&integration.SyncDirection,
		&autoSync,
		&lastSyncAt,
		&integration.LastSyncStatus,
		&active,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.CalendarIntegration{}, mapError(err)
	}

	integration.AutoSync = autoSync != 0
	integration.Active = active != 0

	if lastSyncAt.Valid {
		ts, err := time.Parse(time.RFC3339, lastSyncAt.String)
		if err != nil {
			return persistence.CalendarIntegration{}, fmt.Errorf("failed to parse last_sync_at: %w", err)
		}
		integration.LastSyncAt = &ts
	}
	if integration.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.CalendarIntegration{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if integration.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.CalendarIntegration{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return integration, nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}
