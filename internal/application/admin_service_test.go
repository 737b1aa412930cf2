package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

type auditQueryFake struct {
	entries []persistence.AuditLog
	stats   persistence.AuditStats
	today   time.Time
}

func (f *auditQueryFake) ListAuditLogs(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditLog, error) {
	return f.entries, nil
}

func (f *auditQueryFake) AuditLogStats(ctx context.Context, today time.Time) (persistence.AuditStats, error) {
	f.today = today
	return f.stats, nil
}

func (f *auditQueryFake) ClearAuditLogs(ctx context.Context) (int, error) {
	cleared := len(f.entries)
	f.entries = nil
	return cleared, nil
}

type usageQueryFake struct {
	stats persistence.Statistics
}

func (f *usageQueryFake) Statistics(ctx context.Context, from, to *time.Time) (persistence.Statistics, error) {
	return f.stats, nil
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	svc := NewAdminService(&auditQueryFake{}, &usageQueryFake{}, fixedNow)
	member := Principal{UserID: "user-1"}

	if _, err := svc.ListAuditLogs(context.Background(), member, persistence.AuditFilter{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ListAuditLogs: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.AuditStats(context.Background(), member); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("AuditStats: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ClearAuditLogs(context.Background(), member); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ClearAuditLogs: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Statistics(context.Background(), member, nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Statistics: expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminService_Reports(t *testing.T) {
	audits := &auditQueryFake{
		entries: []persistence.AuditLog{{ID: "log-1", Action: "reservation_created"}},
		stats:   persistence.AuditStats{TotalEntries: 7, TodayEntries: 2},
	}
	usage := &usageQueryFake{stats: persistence.Statistics{TotalReservations: 5, ActiveRooms: 3}}
	svc := NewAdminService(audits, usage, fixedNow)
	admin := Principal{UserID: "admin-1", IsAdmin: true}

	entries, err := svc.ListAuditLogs(context.Background(), admin, persistence.AuditFilter{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListAuditLogs = %v entries, err %v", entries, err)
	}

	stats, err := svc.AuditStats(context.Background(), admin)
	if err != nil || stats.TotalEntries != 7 {
		t.Fatalf("AuditStats = %+v, err %v", stats, err)
	}
	if !audits.today.Equal(testNow) {
		t.Fatalf("expected stats reference time %v, got %v", testNow, audits.today)
	}

	usageStats, err := svc.Statistics(context.Background(), admin, nil, nil)
	if err != nil || usageStats.TotalReservations != 5 {
		t.Fatalf("Statistics = %+v, err %v", usageStats, err)
	}

	cleared, err := svc.ClearAuditLogs(context.Background(), admin)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearAuditLogs = %d, err %v", cleared, err)
	}
	if entries, _ := svc.ListAuditLogs(context.Background(), admin, persistence.AuditFilter{}); len(entries) != 0 {
		t.Fatalf("expected an empty trail after clearing, got %+v", entries)
	}
}
