package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/persistence"
)

type userStoreFake struct {
	users map[string]persistence.User
}

func newUserStoreFake() *userStoreFake {
	return &userStoreFake{users: make(map[string]persistence.User)}
}

func (f *userStoreFake) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := f.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (f *userStoreFake) UpdateUser(ctx context.Context, user persistence.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *userStoreFake) ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error) {
	var out []persistence.User
	for _, user := range f.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func TestUserService_ListUsers(t *testing.T) {
	store := newUserStoreFake()
	store.users["user-1"] = persistence.User{ID: "user-1", Role: RoleUser}
	store.users["admin-1"] = persistence.User{ID: "admin-1", Role: RoleAdmin}
	svc := NewUserService(store, nil, nil, fixedNow)

	t.Run("requires administrator privileges", func(t *testing.T) {
		_, err := svc.ListUsers(context.Background(), ListUsersParams{
			Principal: Principal{UserID: "user-1"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("filters by role", func(t *testing.T) {
		users, err := svc.ListUsers(context.Background(), ListUsersParams{
			Principal: Principal{UserID: "admin-1", IsAdmin: true},
			Role:      RoleAdmin,
		})
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 1 || users[0].ID != "admin-1" {
			t.Fatalf("unexpected users: %+v", users)
		}
	})
}

func TestUserService_UpdateUserRole(t *testing.T) {
	seed := func() (*UserService, *userStoreFake, *auditSinkRecorder) {
		store := newUserStoreFake()
		store.users["user-1"] = persistence.User{ID: "user-1", Role: RoleUser}
		auditor := &auditSinkRecorder{}
		return NewUserService(store, nil, auditor, fixedNow), store, auditor
	}
	admin := Principal{UserID: "admin-1", IsAdmin: true}

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc, _, _ := seed()
		_, err := svc.UpdateUserRole(context.Background(), UpdateUserRoleParams{
			Principal: Principal{UserID: "user-2"},
			UserID:    "user-1",
			Role:      RoleAdmin,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc, _, _ := seed()
		_, err := svc.UpdateUserRole(context.Background(), UpdateUserRoleParams{
			Principal: admin,
			UserID:    "user-1",
			Role:      "owner",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := seed()
		_, err := svc.UpdateUserRole(context.Background(), UpdateUserRoleParams{
			Principal: admin,
			UserID:    "user-missing",
			Role:      RoleAdmin,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("promotes and audits", func(t *testing.T) {
		svc, store, auditor := seed()
		user, err := svc.UpdateUserRole(context.Background(), UpdateUserRoleParams{
			Principal: admin,
			UserID:    "user-1",
			Role:      RoleAdmin,
		})
		if err != nil {
			t.Fatalf("UpdateUserRole failed: %v", err)
		}
		if user.Role != RoleAdmin || store.users["user-1"].Role != RoleAdmin {
			t.Fatalf("role not persisted: %+v", store.users["user-1"])
		}
		if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionUserRoleUpdated {
			t.Fatalf("expected user_role_updated audit entry, got %+v", auditor.entries)
		}
		if auditor.entries[0].Details["from"] != RoleUser || auditor.entries[0].Details["to"] != RoleAdmin {
			t.Fatalf("unexpected audit details: %+v", auditor.entries[0].Details)
		}
	})
}

type userUsageFake struct {
	stats  persistence.UserStatistics
	userID string
}

func (f *userUsageFake) UserStatistics(ctx context.Context, userID string) (persistence.UserStatistics, error) {
	f.userID = userID
	return f.stats, nil
}

func TestUserService_Profile(t *testing.T) {
	seed := func() (*UserService, *userStoreFake, *auditSinkRecorder) {
		store := newUserStoreFake()
		dept := "Engineering"
		store.users["user-1"] = persistence.User{ID: "user-1", Name: "Aoi", Email: "aoi@example.com", Role: RoleUser, Department: &dept}
		auditor := &auditSinkRecorder{}
		return NewUserService(store, nil, auditor, fixedNow), store, auditor
	}
	me := Principal{UserID: "user-1"}

	t.Run("returns own account", func(t *testing.T) {
		svc, _, _ := seed()
		user, err := svc.GetProfile(context.Background(), me)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if user.ID != "user-1" || user.Email != "aoi@example.com" {
			t.Fatalf("unexpected profile: %+v", user)
		}
	})

	t.Run("rejects an empty patch", func(t *testing.T) {
		svc, _, _ := seed()
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{Principal: me})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects a one-character name", func(t *testing.T) {
		svc, _, _ := seed()
		name := "A"
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{Principal: me, Name: &name})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("updates name and department and audits", func(t *testing.T) {
		svc, store, auditor := seed()
		name := "  Aoi Tanaka  "
		dept := "Research"
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{
			Principal:  me,
			Name:       &name,
			Department: &dept,
		})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.Name != "Aoi Tanaka" {
			t.Fatalf("name not trimmed: %q", user.Name)
		}
		if stored := store.users["user-1"]; stored.Department == nil || *stored.Department != "Research" {
			t.Fatalf("department not persisted: %+v", stored)
		}
		if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionProfileUpdated {
			t.Fatalf("expected profile_updated audit entry, got %+v", auditor.entries)
		}
	})

	t.Run("role and email stay unchanged", func(t *testing.T) {
		svc, store, _ := seed()
		name := "Aoi Tanaka"
		if _, err := svc.UpdateProfile(context.Background(), UpdateProfileParams{Principal: me, Name: &name}); err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		stored := store.users["user-1"]
		if stored.Role != RoleUser || stored.Email != "aoi@example.com" {
			t.Fatalf("profile update touched protected fields: %+v", stored)
		}
	})
}

func TestUserService_MyStatistics(t *testing.T) {
	store := newUserStoreFake()
	usage := &userUsageFake{stats: persistence.UserStatistics{
		TotalReservations:     4,
		ConfirmedReservations: 3,
		CancelledReservations: 1,
		TotalHours:            5.5,
		MostUsedRoom:          &persistence.MostUsedRoom{RoomID: "room-1", RoomName: "Fuji", Bookings: 2},
	}}
	svc := NewUserService(store, usage, nil, fixedNow)

	stats, err := svc.MyStatistics(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		t.Fatalf("MyStatistics failed: %v", err)
	}
	if usage.userID != "user-1" {
		t.Fatalf("queried statistics for %q, want user-1", usage.userID)
	}
	if stats.ConfirmedReservations != 3 || stats.MostUsedRoom == nil || stats.MostUsedRoom.RoomName != "Fuji" {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}
