package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// DirectoryRepository implements the read-only persistence.UserDirectory
// and persistence.RoomCatalog interfaces. User and room management belongs
// to other subsystems; the engine only reads.
type DirectoryRepository struct {
	pool *ConnectionPool
}

// NewDirectoryRepository creates a new SQLite directory repository.
func NewDirectoryRepository(pool *ConnectionPool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

// GetUser retrieves a firm-scoped user by id.
func (r *DirectoryRepository) GetUser(ctx context.Context, firmID, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	var user persistence.User
	var isStaff int
	var createdStr string
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, firm_id, display_name, is_staff, created_at FROM users WHERE id = ? AND firm_id = ?",
		id, firmID).Scan(&user.ID, &user.FirmID, &user.DisplayName, &isStaff, &createdStr)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	user.IsStaff = isStaff != 0
	if user.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return user, nil
}

// ListUsers returns a firm's users.
func (r *DirectoryRepository) ListUsers(ctx context.Context, firmID string) ([]persistence.User, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT id, firm_id, display_name, is_staff, created_at FROM users WHERE firm_id = ? ORDER BY id ASC", firmID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		var user persistence.User
		var isStaff int
		var createdStr string
		if err := rows.Scan(&user.ID, &user.FirmID, &user.DisplayName, &isStaff, &createdStr); err != nil {
			return nil, mapError(err)
		}
		user.IsStaff = isStaff != 0
		if user.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

// GetRoom retrieves a room catalog entry by id.
func (r *DirectoryRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var room persistence.Room
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, name, location, capacity FROM rooms WHERE id = ?",
		id).Scan(&room.ID, &room.Name, &room.Location, &room.Capacity)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms returns the room catalog.
func (r *DirectoryRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id, name, location, capacity FROM rooms ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		var room persistence.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Location, &room.Capacity); err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	return rooms, mapError(rows.Err())
}
