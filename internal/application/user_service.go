package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/persistence"
)

// UserStore captures the user persistence operations the admin views need.
type UserStore interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	UpdateUser(ctx context.Context, user persistence.User) error
	ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error)
}

// UserUsageQuery computes per-account booking summaries.
type UserUsageQuery interface {
	UserStatistics(ctx context.Context, userID string) (persistence.UserStatistics, error)
}

// UserService exposes account operations: the administrator views and the
// self-service profile surface.
type UserService struct {
	users   UserStore
	usage   UserUsageQuery
	auditor audit.Sink
	now     func() time.Time
	logger  *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users UserStore, usage UserUsageQuery, auditor audit.Sink, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, usage, auditor, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users UserStore, usage UserUsageQuery, auditor audit.Sink, now func() time.Time, logger *slog.Logger) *UserService {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, usage: usage, auditor: auditor, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// ListUsers returns accounts matching the filter for administrators.
func (s *UserService) ListUsers(ctx context.Context, params ListUsersParams) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	records, listErr := s.users.ListUsers(ctx, persistence.UserFilter{
		Role:       params.Role,
		Department: params.Department,
		Limit:      params.Limit,
	})
	if listErr != nil {
		err = listErr
		return
	}

	users = make([]User, 0, len(records))
	for _, record := range records {
		users = append(users, userFromRecord(record))
	}
	return
}

// UpdateUserRole changes an account's role for administrators.
func (s *UserService) UpdateUserRole(ctx context.Context, params UpdateUserRoleParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUserRole",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user role", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("role", user.Role).InfoContext(ctx, "user role updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if params.Role != RoleUser && params.Role != RoleAdmin {
		vErr := &ValidationError{}
		vErr.add("role", "must be user or admin")
		err = vErr
		return
	}

	var record persistence.User
	record, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	previousRole := record.Role
	record.Role = params.Role
	record.UpdatedAt = s.now()

	if err = s.users.UpdateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	user = userFromRecord(record)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionUserRoleUpdated,
		ActorID:    params.Principal.UserID,
		EntityType: "user",
		EntityID:   user.ID,
		Details:    map[string]any{"from": previousRole, "to": user.Role},
	})
	return
}

// GetProfile returns the principal's own account.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	record, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return userFromRecord(record), nil
}

// UpdateProfile applies the principal's own name or department change. Both
// fields nil is rejected; role and email stay under administrator control.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	vErr := &ValidationError{}
	if params.Name == nil && params.Department == nil {
		vErr.add("profile", "no fields to update")
	}
	if params.Name != nil && len(strings.TrimSpace(*params.Name)) < 2 {
		vErr.add("name", "must be at least 2 characters")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var record persistence.User
	record, err = s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	details := map[string]any{}
	if params.Name != nil {
		record.Name = strings.TrimSpace(*params.Name)
		details["name"] = record.Name
	}
	if params.Department != nil {
		record.Department = normalizeOptionalString(params.Department)
		details["department"] = record.Department
	}
	record.UpdatedAt = s.now()

	if err = s.users.UpdateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	user = userFromRecord(record)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionProfileUpdated,
		ActorID:    params.Principal.UserID,
		EntityType: "user",
		EntityID:   user.ID,
		Details:    details,
	})
	return
}

// MyStatistics summarises the principal's own booking history.
func (s *UserService) MyStatistics(ctx context.Context, principal Principal) (stats persistence.UserStatistics, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.usage == nil {
		err = fmt.Errorf("usage query not configured")
		return
	}

	logger := s.loggerWith(ctx, "MyStatistics", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load user statistics", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	stats, err = s.usage.UserStatistics(ctx, principal.UserID)
	return
}
