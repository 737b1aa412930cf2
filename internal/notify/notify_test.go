package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLogNotifierEmitsStructuredRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	notifier.ReservationConfirmed(context.Background(),
		Reservation{ID: "res-1", RoomID: "room-1", Start: start, End: start.Add(time.Hour), Purpose: "Sprint planning"},
		Recipient{UserID: "user-1", Name: "Aiko Tanaka", Email: "aiko@example.com"},
		Room{ID: "room-1", Name: "Meeting Room A", Location: "3F"},
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if record["msg"] != "email notification" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["subject"] != "Meeting Room Reservation Confirmed" {
		t.Fatalf("subject = %v", record["subject"])
	}
	if record["to"] != "aiko@example.com" {
		t.Fatalf("to = %v", record["to"])
	}
	if record["start"] != "2025-06-02T10:00:00Z" {
		t.Fatalf("start = %v", record["start"])
	}
}

func TestLogNotifierSubjectsPerLifecycleEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	tests := []struct {
		name    string
		send    func()
		subject string
	}{
		{name: "updated", send: func() {
			notifier.ReservationUpdated(context.Background(), Reservation{}, Recipient{}, Room{})
		}, subject: "Meeting Room Reservation Updated"},
		{name: "cancelled", send: func() {
			notifier.ReservationCancelled(context.Background(), Reservation{}, Recipient{}, Room{})
		}, subject: "Meeting Room Reservation Cancelled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.send()

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("log output is not JSON: %v", err)
			}
			if record["subject"] != tc.subject {
				t.Fatalf("subject = %v, want %q", record["subject"], tc.subject)
			}
		})
	}
}
