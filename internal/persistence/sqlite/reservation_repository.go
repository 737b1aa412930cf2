package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Writes run the confirmed-overlap predicate inside the same
// transaction as the insert or update, so a slot can never be double-booked
// even when two requests race between their advisory checks and their
// commits.
type ReservationRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewReservationRepository creates a SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool, retry: DefaultRetryConfig()}
}

const reservationColumns = `id, user_id, room_id, start_time, end_time, purpose, department, status, created_at, updated_at`

// CreateReservation inserts a reservation after re-checking the slot inside
// the write transaction. Returns persistence.ErrConflict when a confirmed
// reservation already overlaps the requested interval.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := guardOverlap(tx, reservation.RoomID, reservation.ID, reservation.Start, reservation.End); err != nil {
				return err
			}

			_, err := tx.Exec(
				`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				reservation.ID,
				reservation.UserID,
				reservation.RoomID,
				formatTime(reservation.Start),
				formatTime(reservation.End),
				reservation.Purpose,
				nullString(reservation.Department),
				reservation.Status,
				formatTime(reservation.CreatedAt),
				formatTime(reservation.UpdatedAt),
			)
			return mapSQLiteError(err)
		})
	})
}

// UpdateReservation rewrites the mutable reservation fields after re-checking
// the new interval against every other confirmed reservation for the room.
// A conflict leaves the stored row untouched.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var status string
			err := tx.QueryRow(`SELECT status FROM reservations WHERE id = ?`, reservation.ID).Scan(&status)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return persistence.ErrNotFound
				}
				return mapSQLiteError(err)
			}

			if status == persistence.ReservationStatusConfirmed {
				if err := guardOverlap(tx, reservation.RoomID, reservation.ID, reservation.Start, reservation.End); err != nil {
					return err
				}
			}

			_, err = tx.Exec(
				`UPDATE reservations
					SET start_time = ?, end_time = ?, purpose = ?, department = ?, updated_at = ?
					WHERE id = ?`,
				formatTime(reservation.Start),
				formatTime(reservation.End),
				reservation.Purpose,
				nullString(reservation.Department),
				formatTime(reservation.UpdatedAt),
				reservation.ID,
			)
			return mapSQLiteError(err)
		})
	})
}

// guardOverlap fails with ErrConflict when any confirmed reservation other
// than excludeID overlaps [start, end) on the room. Half-open semantics: the
// single predicate start_time < end AND end_time > start replaces the three
// OR'd range conditions older availability queries tend to carry.
func guardOverlap(tx *sql.Tx, roomID, excludeID string, start, end time.Time) error {
	var conflicting int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM reservations
			WHERE room_id = ?
			AND status = ?
			AND id <> ?
			AND start_time < ?
			AND end_time > ?`,
		roomID,
		persistence.ReservationStatusConfirmed,
		excludeID,
		formatTime(end),
		formatTime(start),
	).Scan(&conflicting)
	if err != nil {
		return mapSQLiteError(err)
	}
	if conflicting > 0 {
		return fmt.Errorf("%w: room %s has %d confirmed overlap(s)", persistence.ErrConflict, roomID, conflicting)
	}
	return nil
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter, newest start
// first unless the filter flips the order.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := make([]any, 0, 6)

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		query += ` AND room_id = ?`
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.StartsAfter != nil {
		query += ` AND start_time >= ?`
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		query += ` AND end_time <= ?`
		args = append(args, formatTime(*filter.EndsBefore))
	}
	if filter.OldestFirst {
		query += ` ORDER BY start_time, id`
	} else {
		query += ` ORDER BY start_time DESC, id`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return r.queryReservations(ctx, query, args...)
}

// ListForRoom returns reservations for a room intersecting [from, to),
// ordered by start ascending, optionally restricted to a status.
func (r *ReservationRepository) ListForRoom(ctx context.Context, roomID string, from, to time.Time, status string) ([]persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = ?
		AND start_time < ?
		AND end_time > ?`
	args := []any{roomID, formatTime(to), formatTime(from)}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY start_time, id`

	return r.queryReservations(ctx, query, args...)
}

// SetStatus transitions a reservation's status.
func (r *ReservationRepository) SetStatus(ctx context.Context, id string, status string, updatedAt time.Time) error {
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx,
			`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(updatedAt), id)
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

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservationRow(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

func scanReservationRow(scanner rowScanner) (persistence.Reservation, error) {
	var (
		reservation persistence.Reservation
		startAt     string
		endAt       string
		department  sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := scanner.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.RoomID,
		&startAt,
		&endAt,
		&reservation.Purpose,
		&department,
		&reservation.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Reservation{}, err
	}

	reservation.Department = optionalString(department)

	var err error
	if reservation.Start, err = parseTime(startAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTime(endAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
