package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using
// SQLite.
type AppointmentRepository struct {
	pool *ConnectionPool
}

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// CreateRequest inserts a new appointment request.
func (r *AppointmentRepository) CreateRequest(ctx context.Context, request persistence.AppointmentRequest) error {
	if request.ID == "" || request.FirmID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO appointment_requests (id, firm_id, requested_by, client_id, staff_id,
			start_time, end_time, status, event_id, rescheduled_to, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.FirmID,
		request.RequestedBy,
		request.ClientID,
		nullString(request.StaffID),
		request.Start.UTC().Format(time.RFC3339),
		request.End.UTC().Format(time.RFC3339),
		request.Status,
		nullString(request.EventID),
		nullString(request.RescheduledTo),
		request.Reason,
		request.CreatedAt.UTC().Format(time.RFC3339),
		request.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateRequest replaces the mutable fields of a request.
func (r *AppointmentRepository) UpdateRequest(ctx context.Context, request persistence.AppointmentRequest) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE appointment_requests
		SET staff_id = ?, start_time = ?, end_time = ?, status = ?, event_id = ?,
			rescheduled_to = ?, reason = ?, updated_at = ?
		WHERE id = ? AND firm_id = ?`,
		nullString(request.StaffID),
		request.Start.UTC().Format(time.RFC3339),
		request.End.UTC().Format(time.RFC3339),
		request.Status,
		nullString(request.EventID),
		nullString(request.RescheduledTo),
		request.Reason,
		request.UpdatedAt.UTC().Format(time.RFC3339),
		request.ID,
		request.FirmID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result.RowsAffected())
}

// GetRequest retrieves a firm-scoped request by id.
func (r *AppointmentRepository) GetRequest(ctx context.Context, firmID, id string) (persistence.AppointmentRequest, error) {
	if id == "" {
		return persistence.AppointmentRequest{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, selectRequestColumns+
		" FROM appointment_requests WHERE id = ? AND firm_id = ?", id, firmID)
	return scanRequest(row)
}

// ListRequests returns a firm's requests, optionally filtered by status,
// newest first.
func (r *AppointmentRepository) ListRequests(ctx context.Context, firmID, status string) ([]persistence.AppointmentRequest, error) {
	query := selectRequestColumns + " FROM appointment_requests WHERE firm_id = ?"
	args := []any{firmID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var requests []persistence.AppointmentRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, mapError(rows.Err())
}

const selectRequestColumns = `
	SELECT id, firm_id, requested_by, client_id, staff_id, start_time, end_time,
		status, event_id, rescheduled_to, reason, created_at, updated_at`

func scanRequest(row rowScanner) (persistence.AppointmentRequest, error) {
	var request persistence.AppointmentRequest
	var staffID, eventID, rescheduledTo sql.NullString
	var startStr, endStr, createdStr, updatedStr string

	err := row.Scan(
		&request.ID,
		&request.FirmID,
		&request.RequestedBy,
		&request.ClientID,
		&staffID,
		&startStr,
		&endStr,
		&request.Status,
		&eventID,
		&rescheduledTo,
		&request.Reason,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.AppointmentRequest{}, mapError(err)
	}

	if staffID.Valid {
		request.StaffID = &staffID.String
	}
	if eventID.Valid {
		request.EventID = &eventID.String
	}
	if rescheduledTo.Valid {
		request.RescheduledTo = &rescheduledTo.String
	}

	if request.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.AppointmentRequest{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if request.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.AppointmentRequest{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if request.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.AppointmentRequest{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if request.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.AppointmentRequest{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return request, nil
}
