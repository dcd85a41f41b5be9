package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

// CreateEvent inserts a new event with its participants.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.FirmID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, firm_id, organizer_id, title, location, video_link, room_id,
				start_time, end_time, status, external_provider, external_event_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		provider, externalID := externalColumns(event.External)
		_, err := tx.Exec(query,
			event.ID,
			event.FirmID,
			event.OrganizerID,
			event.Title,
			event.Location,
			event.VideoLink,
			nullString(event.RoomID),
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			event.Status,
			provider,
			externalID,
			event.CreatedAt.UTC().Format(time.RFC3339),
			event.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}

		return insertParticipants(tx, event.ID, event.StaffIDs, event.ClientIDs)
	})
}

// UpdateEvent replaces an event row and its participant set.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE events
			SET title = ?, location = ?, video_link = ?, room_id = ?, start_time = ?, end_time = ?,
				status = ?, external_provider = ?, external_event_id = ?, updated_at = ?
			WHERE id = ? AND firm_id = ?
		`

		provider, externalID := externalColumns(event.External)
		result, err := tx.Exec(query,
			event.Title,
			event.Location,
			event.VideoLink,
			nullString(event.RoomID),
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			event.Status,
			provider,
			externalID,
			event.UpdatedAt.UTC().Format(time.RFC3339),
			event.ID,
			event.FirmID,
		)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.Exec("DELETE FROM event_participants WHERE event_id = ?", event.ID); err != nil {
			return mapError(err)
		}
		return insertParticipants(tx, event.ID, event.StaffIDs, event.ClientIDs)
	})
}

// GetEvent retrieves a single firm-scoped event.
func (r *EventRepository) GetEvent(ctx context.Context, firmID, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := selectEventColumns + " FROM events WHERE id = ? AND firm_id = ?"
	row := r.pool.db.QueryRowContext(ctx, query, id, firmID)

	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, err
	}

	if err := r.loadParticipants(ctx, &event); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// ListEvents returns events matching the filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := buildEventListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range events {
		if err := r.loadParticipants(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

const selectEventColumns = `
	SELECT id, firm_id, organizer_id, title, location, video_link, room_id,
		start_time, end_time, status, external_provider, external_event_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var roomID, provider, externalID sql.NullString
	var startStr, endStr, createdStr, updatedStr string

	err := row.Scan(
		&event.ID,
		&event.FirmID,
		&event.OrganizerID,
		&event.Title,
		&event.Location,
		&event.VideoLink,
		&roomID,
		&startStr,
		&endStr,
		&event.Status,
		&provider,
		&externalID,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}

	if roomID.Valid {
		event.RoomID = &roomID.String
	}
	if provider.Valid && externalID.Valid {
		event.External = &persistence.ExternalRef{Provider: provider.String, EventID: externalID.String}
	}

	if event.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}

func (r *EventRepository) loadParticipants(ctx context.Context, event *persistence.Event) error {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT user_id, kind FROM event_participants WHERE event_id = ? ORDER BY user_id ASC", event.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, kind string
		if err := rows.Scan(&userID, &kind); err != nil {
			return mapError(err)
		}
		switch kind {
		case "staff":
			event.StaffIDs = append(event.StaffIDs, userID)
		case "client":
			event.ClientIDs = append(event.ClientIDs, userID)
		}
	}
	return mapError(rows.Err())
}

func insertParticipants(tx *sql.Tx, eventID string, staffIDs, clientIDs []string) error {
	seen := make(map[string]struct{}, len(staffIDs)+len(clientIDs))
	insert := func(ids []string, kind string) error {
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if _, err := tx.Exec(
				"INSERT INTO event_participants (event_id, user_id, kind) VALUES (?, ?, ?)",
				eventID, id, kind); err != nil {
				return mapError(err)
			}
		}
		return nil
	}

	if err := insert(staffIDs, "staff"); err != nil {
		return err
	}
	return insert(clientIDs, "client")
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	query := `
		SELECT DISTINCT e.id, e.firm_id, e.organizer_id, e.title, e.location, e.video_link, e.room_id,
			e.start_time, e.end_time, e.status, e.external_provider, e.external_event_id, e.created_at, e.updated_at
		FROM events e
	`

	var conditions []string
	var args []any

	conditions = append(conditions, "e.firm_id = ?")
	args = append(args, filter.FirmID)

	if len(filter.ParticipantIDs) > 0 {
		query += " LEFT JOIN event_participants ep ON e.id = ep.event_id"

		placeholders := make([]string, len(filter.ParticipantIDs))
		for i, id := range filter.ParticipantIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		in := strings.Join(placeholders, ",")
		conditions = append(conditions, fmt.Sprintf("(ep.user_id IN (%s) OR e.organizer_id IN (%s))", in, in))
		for _, id := range filter.ParticipantIDs {
			args = append(args, id)
		}
	}

	if filter.OrganizerID != "" {
		conditions = append(conditions, "e.organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}

	if !filter.IncludeCancelled {
		conditions = append(conditions, "e.status <> ?")
		args = append(args, persistence.EventStatusCancelled)
	}

	if filter.WithExternalRef {
		conditions = append(conditions, "e.external_event_id IS NOT NULL")
	}

	if filter.StartsAfter != nil {
		conditions = append(conditions, "e.end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "e.start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY e.start_time ASC, e.id ASC"
	return query, args
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func externalColumns(ref *persistence.ExternalRef) (sql.NullString, sql.NullString) {
	if ref == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: ref.Provider, Valid: true}, sql.NullString{String: ref.EventID, Valid: true}
}
