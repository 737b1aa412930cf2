package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/auth"
	"github.com/example/room-reservations/internal/persistence"
)

const minPasswordLength = 8

// AccountStore captures the user persistence interactions the auth flows need.
type AccountStore interface {
	CreateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(userID, role string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*auth.Claims, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// AuthService coordinates registration, login, and token validation.
type AuthService struct {
	accounts       AccountStore
	tokens         TokenIssuer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	auditor        audit.Sink
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts AccountStore, tokens TokenIssuer, auditor audit.Sink, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(accounts, tokens, auditor, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts AccountStore, tokens TokenIssuer, auditor audit.Sink, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hashPassword: func(password string) (string, error) {
			return HashPassword(password, DefaultArgon2idParams)
		},
		verifyPassword: VerifyPassword,
		auditor:        auditor,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates an account with the user role and logs it in.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (result AuthResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil || s.tokens == nil {
		err = fmt.Errorf("auth dependencies not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", "name is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, addrErr := mail.ParseAddress(email); addrErr != nil {
		vErr.add("email", "must be a valid email address")
	}
	if len(params.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	createdAt := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Name:         strings.TrimSpace(params.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Department:   normalizeOptionalString(params.Department),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}

	if err = s.accounts.CreateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			inner := &ValidationError{}
			inner.add("email", "already registered")
			err = inner
		}
		return
	}

	var token string
	var expiresAt time.Time
	token, expiresAt, err = s.tokens.Issue(record.ID, record.Role)
	if err != nil {
		return
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionUserRegistered,
		ActorID:    record.ID,
		EntityType: "user",
		EntityID:   record.ID,
		Details:    map[string]any{"email": record.Email},
	})

	result = AuthResult{User: userFromRecord(record), Token: token, ExpiresAt: expiresAt}
	return
}

// Login verifies credentials and issues an access token. Unknown account and
// wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result AuthResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil || s.tokens == nil {
		err = fmt.Errorf("auth dependencies not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var record persistence.User
	record, err = s.accounts.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(record.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var token string
	var expiresAt time.Time
	token, expiresAt, err = s.tokens.Issue(record.ID, record.Role)
	if err != nil {
		return
	}

	result = AuthResult{User: userFromRecord(record), Token: token, ExpiresAt: expiresAt}
	return
}

// ValidateToken resolves an access token into the principal it represents.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if s.tokens == nil {
		return Principal{}, fmt.Errorf("token issuer not configured")
	}

	claims, err := s.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	return Principal{UserID: claims.Subject, IsAdmin: claims.Role == RoleAdmin}, nil
}
