// Package sqlite implements the persistence repositories on top of SQLite
// via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Storage bundles the SQLite-backed repository implementations behind a
// single connection pool. It satisfies every interface in the persistence
// package.
type Storage struct {
	pool *ConnectionPool

	*UserRepository
	*RoomRepository
	*ReservationRepository
	*AuditRepository
	*StatisticsRepository
}

// Open creates a Storage for the given DSN. Call Migrate before first use.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:                  pool,
		UserRepository:        NewUserRepository(pool),
		RoomRepository:        NewRoomRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		AuditRepository:       NewAuditRepository(pool),
		StatisticsRepository:  NewStatisticsRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// migration is a single versioned schema step. Steps run in order inside a
// transaction and are recorded in schema_migrations, so reruns are no-ops.
type migration struct {
	version     string
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     "001",
		description: "create users, rooms, reservations",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL COLLATE NOCASE UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
				department TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				location TEXT NOT NULL DEFAULT '',
				capacity INTEGER NOT NULL CHECK (capacity > 0),
				available_from TEXT NOT NULL DEFAULT '09:00:00',
				available_to TEXT NOT NULL DEFAULT '18:00:00',
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			// room_id carries no foreign key: deleting a room keeps its
			// historical reservation rows, and the service-level guard is
			// what blocks deletion while future confirmed bookings exist.
			`CREATE TABLE IF NOT EXISTS reservations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				room_id TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				purpose TEXT NOT NULL,
				department TEXT,
				status TEXT NOT NULL DEFAULT 'confirmed' CHECK (status IN ('confirmed', 'cancelled')),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (start_time < end_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reservations_room_status_start
				ON reservations (room_id, status, start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_reservations_user_start
				ON reservations (user_id, start_time)`,
		},
	},
	{
		version:     "002",
		description: "create audit log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS audit_logs (
				id TEXT PRIMARY KEY,
				action TEXT NOT NULL,
				actor_id TEXT NOT NULL,
				entity_type TEXT NOT NULL DEFAULT '',
				entity_id TEXT NOT NULL DEFAULT '',
				details TEXT NOT NULL DEFAULT '{}',
				recorded_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_recorded_at
				ON audit_logs (recorded_at)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_action
				ON audit_logs (action)`,
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to initialise schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migration versions: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range m.statements {
				if _, err := tx.Exec(statement); err != nil {
					return fmt.Errorf("migration %s: %w", m.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				m.version, m.description, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// storedTimeLayout is a fixed-width RFC 3339 form: always UTC, always nine
// fractional digits. Fixed width keeps nanosecond precision while string
// comparisons in SQL (the overlap guard, the start_time < end_time check,
// ORDER BY) stay correct; RFC3339Nano would trim trailing zeros and break
// lexicographic ordering.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime renders a timestamp the way every repository stores it.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTime reads a stored timestamp. It also accepts plain RFC3339 values
// written before the fixed-width layout was adopted.
func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", value, err)
	}
	return t, nil
}

// nullString converts an optional field for storage.
func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// optionalString converts a scanned nullable column back to a pointer.
func optionalString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
