package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// StatisticsRepository computes the admin dashboard aggregates with SQL.
type StatisticsRepository struct {
	pool *ConnectionPool
}

// NewStatisticsRepository creates a SQLite statistics repository.
func NewStatisticsRepository(pool *ConnectionPool) *StatisticsRepository {
	return &StatisticsRepository{pool: pool}
}

// Statistics aggregates reservation, user, and room counts, per-room booked
// hours, and the busiest booking start hours, optionally bounded to
// reservations starting within [from, to].
func (r *StatisticsRepository) Statistics(ctx context.Context, from, to *time.Time) (persistence.Statistics, error) {
	stats := persistence.Statistics{}

	rangeClause := ""
	rangeArgs := make([]any, 0, 2)
	if from != nil && to != nil {
		rangeClause = ` AND start_time >= ? AND start_time <= ?`
		rangeArgs = append(rangeArgs, formatTime(*from), formatTime(*to))
	}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE 1=1`+rangeClause,
		rangeArgs...).Scan(&stats.TotalReservations); err != nil {
		return persistence.Statistics{}, mapSQLiteError(err)
	}

	confirmedArgs := append([]any{persistence.ReservationStatusConfirmed}, rangeArgs...)
	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE status = ?`+rangeClause,
		confirmedArgs...).Scan(&stats.ConfirmedReservations); err != nil {
		return persistence.Statistics{}, mapSQLiteError(err)
	}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return persistence.Statistics{}, mapSQLiteError(err)
	}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE is_active = 1`).Scan(&stats.ActiveRooms); err != nil {
		return persistence.Statistics{}, mapSQLiteError(err)
	}

	utilization, err := r.roomUtilization(ctx, rangeClause, rangeArgs)
	if err != nil {
		return persistence.Statistics{}, err
	}
	stats.RoomUtilization = utilization

	peaks, err := r.peakHours(ctx, rangeClause, rangeArgs)
	if err != nil {
		return persistence.Statistics{}, err
	}
	stats.PeakHours = peaks

	return stats, nil
}

// UserStatistics summarises one account's booking history: counts by status,
// total confirmed hours, and the room booked most often.
func (r *StatisticsRepository) UserStatistics(ctx context.Context, userID string) (persistence.UserStatistics, error) {
	stats := persistence.UserStatistics{}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(CASE WHEN status = ? THEN 1 END),
			COUNT(CASE WHEN status = ? THEN 1 END)
		FROM reservations WHERE user_id = ?`,
		persistence.ReservationStatusConfirmed,
		persistence.ReservationStatusCancelled,
		userID,
	).Scan(&stats.TotalReservations, &stats.ConfirmedReservations, &stats.CancelledReservations); err != nil {
		return persistence.UserStatistics{}, mapSQLiteError(err)
	}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COALESCE(SUM((julianday(end_time) - julianday(start_time)) * 24), 0)
		FROM reservations WHERE user_id = ? AND status = ?`,
		userID, persistence.ReservationStatusConfirmed,
	).Scan(&stats.TotalHours); err != nil {
		return persistence.UserStatistics{}, mapSQLiteError(err)
	}

	var favourite persistence.MostUsedRoom
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT rm.id, rm.name, COUNT(*)
		FROM reservations r
		JOIN rooms rm ON rm.id = r.room_id
		WHERE r.user_id = ? AND r.status = ?
		GROUP BY rm.id, rm.name
		ORDER BY 3 DESC, rm.name
		LIMIT 1`,
		userID, persistence.ReservationStatusConfirmed,
	).Scan(&favourite.RoomID, &favourite.RoomName, &favourite.Bookings)
	switch {
	case err == nil:
		stats.MostUsedRoom = &favourite
	case errors.Is(err, sql.ErrNoRows):
		// No confirmed bookings yet.
	default:
		return persistence.UserStatistics{}, mapSQLiteError(err)
	}

	return stats, nil
}

func (r *StatisticsRepository) roomUtilization(ctx context.Context, rangeClause string, rangeArgs []any) ([]persistence.UtilizationRow, error) {
	args := append([]any{persistence.ReservationStatusConfirmed}, rangeArgs...)
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT rm.id, rm.name, COUNT(r.id),
			COALESCE(SUM((julianday(r.end_time) - julianday(r.start_time)) * 24), 0)
		FROM rooms rm
		LEFT JOIN reservations r ON r.room_id = rm.id AND r.status = ?`+rangeClause+`
		WHERE rm.is_active = 1
		GROUP BY rm.id, rm.name
		ORDER BY 4 DESC, rm.name`,
		args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var utilization []persistence.UtilizationRow
	for rows.Next() {
		var row persistence.UtilizationRow
		if err := rows.Scan(&row.RoomID, &row.RoomName, &row.Bookings, &row.TotalHours); err != nil {
			return nil, err
		}
		utilization = append(utilization, row)
	}
	return utilization, rows.Err()
}

func (r *StatisticsRepository) peakHours(ctx context.Context, rangeClause string, rangeArgs []any) ([]persistence.PeakHourRow, error) {
	args := append([]any{persistence.ReservationStatusConfirmed}, rangeArgs...)
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT CAST(strftime('%H', start_time) AS INTEGER) AS hour, COUNT(*)
		FROM reservations
		WHERE status = ?`+rangeClause+`
		GROUP BY hour
		ORDER BY 2 DESC, hour
		LIMIT 5`,
		args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var peaks []persistence.PeakHourRow
	for rows.Next() {
		var row persistence.PeakHourRow
		if err := rows.Scan(&row.Hour, &row.Bookings); err != nil {
			return nil, err
		}
		peaks = append(peaks, row)
	}
	return peaks, rows.Err()
}
