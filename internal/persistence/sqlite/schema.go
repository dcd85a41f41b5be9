package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version tracks progress so
// restarts only run the tail.
var migrations = []string{
	`CREATE TABLE events (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		organizer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		video_link TEXT NOT NULL DEFAULT '',
		room_id TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		external_provider TEXT,
		external_event_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE event_participants (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('staff', 'client')),
		PRIMARY KEY (event_id, user_id)
	)`,
	`CREATE INDEX idx_events_firm_time ON events(firm_id, start_time, end_time)`,
	`CREATE INDEX idx_event_participants_user ON event_participants(user_id)`,
	`CREATE TABLE availability_windows (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_minute < end_minute)
	)`,
	`CREATE TABLE availability_exceptions (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('block_day', 'block_range', 'open_range')),
		start_minute INTEGER NOT NULL DEFAULT 0,
		end_minute INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_availability_user ON availability_windows(firm_id, user_id)`,
	`CREATE INDEX idx_exceptions_user_date ON availability_exceptions(firm_id, user_id, date)`,
	`CREATE TABLE appointment_requests (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		requested_by TEXT NOT NULL,
		client_id TEXT NOT NULL,
		staff_id TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		event_id TEXT,
		rescheduled_to TEXT,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE calendar_integrations (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		credential BLOB NOT NULL,
		sync_direction TEXT NOT NULL CHECK (sync_direction IN ('push', 'pull', 'bidirectional')),
		auto_sync INTEGER NOT NULL DEFAULT 0,
		last_sync_at TEXT,
		last_sync_status TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE calendar_shares (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		shared_with_id TEXT NOT NULL,
		can_view INTEGER NOT NULL DEFAULT 1,
		can_edit INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (owner_id <> shared_with_id),
		UNIQUE (firm_id, owner_id, shared_with_id)
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		firm_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		is_staff INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL DEFAULT 0
	)`,
}

// Migrate applies any pending schema migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	var version int
	if err := cp.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i := version; i < len(migrations); i++ {
			if _, err := tx.Exec(migrations[i]); err != nil {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}
