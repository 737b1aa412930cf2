package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/room-reservations/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewUserRepository creates a SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, retry: DefaultRetryConfig()}
}

const userColumns = `id, name, email, password_hash, role, department, created_at, updated_at`

// CreateUser inserts a new user record.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.DB().ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			nullString(user.Department),
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		)
		return mapSQLiteError(err)
	})
}

// UpdateUser updates an existing user record.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx,
			`UPDATE users
				SET name = ?, email = ?, password_hash = ?, role = ?, department = ?, updated_at = ?
				WHERE id = ?`,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			nullString(user.Department),
			formatTime(user.UpdatedAt),
			user.ID,
		)
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

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	return scanUser(row)
}

// ListUsers returns users matching the filter, newest first.
func (r *UserRepository) ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := make([]any, 0, 3)

	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.Department != "" {
		query += ` AND department = ?`
		args = append(args, filter.Department)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (persistence.User, error) {
	user, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, err
	}
	return user, nil
}

func scanUserRow(scanner rowScanner) (persistence.User, error) {
	var (
		user       persistence.User
		department sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := scanner.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&department,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, err
	}

	user.Department = optionalString(department)

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
