package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Events       persistence.EventRepository
	Availability persistence.AvailabilityRepository
	Appointments persistence.AppointmentRepository
	Integrations persistence.IntegrationRepository
	Shares       persistence.ShareRepository
	Directory    *sqlite.DirectoryRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "scheduler.db") + "?_foreign_keys=on"

	pool, err := sqlite.NewConnectionPool(dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Events:       sqlite.NewEventRepository(pool),
		Availability: sqlite.NewAvailabilityRepository(pool),
		Appointments: sqlite.NewAppointmentRepository(pool),
		Integrations: sqlite.NewIntegrationRepository(pool),
		Shares:       sqlite.NewShareRepository(pool),
		Directory:    sqlite.NewDirectoryRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
