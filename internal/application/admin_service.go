package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// AuditQuery exposes the durable audit trail: reads plus the destructive
// clear operation.
type AuditQuery interface {
	ListAuditLogs(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditLog, error)
	AuditLogStats(ctx context.Context, today time.Time) (persistence.AuditStats, error)
	ClearAuditLogs(ctx context.Context) (int, error)
}

// UsageQuery computes aggregate usage numbers for the dashboard.
type UsageQuery interface {
	Statistics(ctx context.Context, from, to *time.Time) (persistence.Statistics, error)
}

// AdminService exposes the administrator reporting views: audit logs and
// usage statistics. It returns the persistence aggregates directly; they are
// plain values with no storage concerns attached.
type AdminService struct {
	audits AuditQuery
	usage  UsageQuery
	now    func() time.Time
	logger *slog.Logger
}

// NewAdminService constructs an admin service with the provided dependencies.
func NewAdminService(audits AuditQuery, usage UsageQuery, now func() time.Time) *AdminService {
	return NewAdminServiceWithLogger(audits, usage, now, nil)
}

// NewAdminServiceWithLogger constructs an admin service with a specified logger.
func NewAdminServiceWithLogger(audits AuditQuery, usage UsageQuery, now func() time.Time, logger *slog.Logger) *AdminService {
	if now == nil {
		now = time.Now
	}
	return &AdminService{audits: audits, usage: usage, now: now, logger: defaultLogger(logger)}
}

func (s *AdminService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdminService", operation, attrs...)
}

// ListAuditLogs returns recorded actions matching the filter, newest first.
func (s *AdminService) ListAuditLogs(ctx context.Context, principal Principal, filter persistence.AuditFilter) (entries []persistence.AuditLog, err error) {
	if s == nil {
		err = fmt.Errorf("AdminService is nil")
		return
	}
	if s.audits == nil {
		err = fmt.Errorf("audit query not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListAuditLogs", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list audit logs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(entries)).InfoContext(ctx, "audit logs listed")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	entries, err = s.audits.ListAuditLogs(ctx, filter)
	return
}

// AuditStats summarises the audit trail: total entries, entries recorded
// today, and per-action counts.
func (s *AdminService) AuditStats(ctx context.Context, principal Principal) (stats persistence.AuditStats, err error) {
	if s == nil {
		err = fmt.Errorf("AdminService is nil")
		return
	}
	if s.audits == nil {
		err = fmt.Errorf("audit query not configured")
		return
	}

	logger := s.loggerWith(ctx, "AuditStats", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load audit stats", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	stats, err = s.audits.AuditLogStats(ctx, s.now())
	return
}

// ClearAuditLogs deletes the entire audit trail for administrators and
// reports how many entries were removed.
func (s *AdminService) ClearAuditLogs(ctx context.Context, principal Principal) (cleared int, err error) {
	if s == nil {
		err = fmt.Errorf("AdminService is nil")
		return
	}
	if s.audits == nil {
		err = fmt.Errorf("audit query not configured")
		return
	}

	logger := s.loggerWith(ctx, "ClearAuditLogs", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clear audit logs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cleared", cleared).InfoContext(ctx, "audit logs cleared")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	cleared, err = s.audits.ClearAuditLogs(ctx)
	return
}

// Statistics returns the usage dashboard numbers, optionally bounded to a
// reservation date range.
func (s *AdminService) Statistics(ctx context.Context, principal Principal, from, to *time.Time) (stats persistence.Statistics, err error) {
	if s == nil {
		err = fmt.Errorf("AdminService is nil")
		return
	}
	if s.usage == nil {
		err = fmt.Errorf("usage query not configured")
		return
	}

	logger := s.loggerWith(ctx, "Statistics", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load statistics", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	stats, err = s.usage.Statistics(ctx, from, to)
	return
}
