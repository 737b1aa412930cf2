package auth

import (
	"errors"
	"testing"
	"time"
)

var issueTime = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

func TestIssueAndVerify(t *testing.T) {
	clock := issueTime
	manager := NewTokenManager("test-secret", time.Hour, func() time.Time { return clock })

	token, expiresAt, err := manager.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !expiresAt.Equal(issueTime.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: subject=%s role=%s", claims.Subject, claims.Role)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clock := issueTime
	manager := NewTokenManager("test-secret", time.Hour, func() time.Time { return clock })

	token, _, err := manager.Issue("user-1", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock = issueTime.Add(2 * time.Hour)
	if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour, func() time.Time { return issueTime })
	verifier := NewTokenManager("secret-b", time.Hour, func() time.Time { return issueTime })

	token, _, err := issuer.Issue("user-1", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "well-formed", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing scheme", header: "abc", wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
		{name: "empty header", header: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
