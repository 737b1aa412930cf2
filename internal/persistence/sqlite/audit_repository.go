package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// AuditRepository implements persistence.AuditRepository using SQLite.
// Details maps are stored as JSON text.
type AuditRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewAuditRepository creates a SQLite audit repository.
func NewAuditRepository(pool *ConnectionPool) *AuditRepository {
	return &AuditRepository{pool: pool, retry: DefaultRetryConfig()}
}

// InsertAuditLog stores a single audit entry.
func (r *AuditRepository) InsertAuditLog(ctx context.Context, entry persistence.AuditLog) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.DB().ExecContext(ctx,
			`INSERT INTO audit_logs (id, action, actor_id, entity_type, entity_id, details, recorded_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.Action,
			entry.ActorID,
			entry.EntityType,
			entry.EntityID,
			string(payload),
			formatTime(entry.RecordedAt),
		)
		return mapSQLiteError(err)
	})
}

// ListAuditLogs returns entries matching the filter, newest first.
func (r *AuditRepository) ListAuditLogs(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditLog, error) {
	query := `SELECT id, action, actor_id, entity_type, entity_id, details, recorded_at
		FROM audit_logs WHERE 1=1`
	args := make([]any, 0, 6)

	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, filter.EntityType)
	}
	if filter.ActorID != "" {
		query += ` AND actor_id = ?`
		args = append(args, filter.ActorID)
	}
	if filter.From != nil {
		query += ` AND recorded_at >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND recorded_at <= ?`
		args = append(args, formatTime(*filter.To))
	}
	query += ` ORDER BY recorded_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var entries []persistence.AuditLog
	for rows.Next() {
		var (
			entry      persistence.AuditLog
			details    string
			recordedAt string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ActorID,
			&entry.EntityType,
			&entry.EntityID,
			&details,
			&recordedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details for %s: %w", entry.ID, err)
		}
		if entry.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClearAuditLogs removes every audit entry and reports the deleted count.
func (r *AuditRepository) ClearAuditLogs(ctx context.Context) (int, error) {
	var cleared int
	err := withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM audit_logs`)
		if err != nil {
			return mapSQLiteError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		cleared = int(affected)
		return nil
	})
	return cleared, err
}

// AuditLogStats summarises the audit trail: totals, entries recorded since
// the start of the provided day, and per-action counts.
func (r *AuditRepository) AuditLogStats(ctx context.Context, today time.Time) (persistence.AuditStats, error) {
	stats := persistence.AuditStats{ActionCounts: make(map[string]int)}

	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs`).Scan(&stats.TotalEntries); err != nil {
		return persistence.AuditStats{}, mapSQLiteError(err)
	}

	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE recorded_at >= ?`,
		formatTime(startOfDay)).Scan(&stats.TodayEntries); err != nil {
		return persistence.AuditStats{}, mapSQLiteError(err)
	}

	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT action, COUNT(*) FROM audit_logs GROUP BY action`)
	if err != nil {
		return persistence.AuditStats{}, mapSQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return persistence.AuditStats{}, err
		}
		stats.ActionCounts[action] = count
	}
	return stats, rows.Err()
}
