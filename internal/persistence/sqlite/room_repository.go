package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewRoomRepository creates a SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool, retry: DefaultRetryConfig()}
}

const roomColumns = `id, name, location, capacity, available_from, available_to, is_active, created_at, updated_at`

// CreateRoom inserts a new room record.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.DB().ExecContext(ctx,
			`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			room.ID,
			room.Name,
			room.Location,
			room.Capacity,
			room.AvailableFrom,
			room.AvailableTo,
			boolToInt(room.IsActive),
			formatTime(room.CreatedAt),
			formatTime(room.UpdatedAt),
		)
		return mapSQLiteError(err)
	})
}

// UpdateRoom updates an existing room record.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx,
			`UPDATE rooms
				SET name = ?, location = ?, capacity = ?, available_from = ?, available_to = ?, is_active = ?, updated_at = ?
				WHERE id = ?`,
			room.Name,
			room.Location,
			room.Capacity,
			room.AvailableFrom,
			room.AvailableTo,
			boolToInt(room.IsActive),
			formatTime(room.UpdatedAt),
			room.ID,
		)
		if err != nil {
			return mapSQLiteError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoomRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, err
	}
	return room, nil
}

// ListRooms returns rooms ordered by name, optionally filtered by active flag.
func (r *RoomRepository) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms`
	args := make([]any, 0, 1)
	if filter.Active != nil {
		query += ` WHERE is_active = ?`
		args = append(args, boolToInt(*filter.Active))
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoomRow(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room record. Callers run the future reservation
// guard first; historical reservation rows for the room are kept.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return mapSQLiteError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// CountFutureConfirmedReservations reports confirmed reservations for the
// room starting after the reference instant.
func (r *RoomRepository) CountFutureConfirmedReservations(ctx context.Context, roomID string, reference time.Time) (int, error) {
	var count int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
			WHERE room_id = ? AND status = ? AND start_time > ?`,
		roomID, persistence.ReservationStatusConfirmed, formatTime(reference),
	).Scan(&count)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return count, nil
}

func scanRoomRow(scanner rowScanner) (persistence.Room, error) {
	var (
		room      persistence.Room
		isActive  int
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(
		&room.ID,
		&room.Name,
		&room.Location,
		&room.Capacity,
		&room.AvailableFrom,
		&room.AvailableTo,
		&isActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Room{}, err
	}

	room.IsActive = isActive != 0

	var err error
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
