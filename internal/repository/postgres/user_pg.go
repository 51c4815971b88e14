// internal/repository/postgres/user_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/repository"
	"streamcart-orders/internal/util"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for unique index conflicts.
const uniqueViolation = "23505"

// UserRepository implements repository.UserRepository for PostgreSQL.
// Methods receive a DBExecutor so they can run inside or outside a transaction.
type UserRepository struct{}

// NewUserRepository creates a new UserRepository.
func NewUserRepository() repository.UserRepository {
	return &UserRepository{}
}

// CreateUser inserts a new user into the database using the provided DBExecutor.
// A concurrent registration that wins the race on a unique index surfaces as
// a *util.ConflictError for the violated column.
func (r *UserRepository) CreateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) error {
	query := `INSERT INTO users (username, email, password_hash, first_name, last_name, created_at)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if conflict := conflictFromPQ(err, user); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by their username using the provided DBExecutor.
func (r *UserRepository) GetUserByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, username, email, password_hash, first_name, last_name, created_at, last_login_at
              FROM users WHERE username = $1`
	err := q.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username '%s': %w", username, err)
	}
	return &user, nil
}

// ExistsByUsername reports whether the username is already registered.
func (r *UserRepository) ExistsByUsername(ctx context.Context, q repository.DBExecutor, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	if err := q.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("failed to check username '%s': %w", username, err)
	}
	return exists, nil
}

// ExistsByEmail reports whether the email is already registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, q repository.DBExecutor, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	if err := q.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin sets last_login_at for the given user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, q repository.DBExecutor, userID int64, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	result, err := q.ExecContext(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating last login for user %d: %w", userID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

func conflictFromPQ(err error, user *domain.User) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return &util.ConflictError{Field: "username", Value: user.Username}
	case "users_email_key":
		return &util.ConflictError{Field: "email", Value: user.Email}
	default:
		return fmt.Errorf("failed to create user: %w", util.ErrDuplicateEntry)
	}
}
