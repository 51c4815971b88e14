// internal/repository/user_repo.go
package repository

import (
	"context"
	"time"

	"streamcart-orders/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser adds a new user to the database using the provided DBExecutor.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// GetUserByUsername retrieves a user by their username using the provided DBExecutor.
	GetUserByUsername(ctx context.Context, q DBExecutor, username string) (*domain.User, error)
	// ExistsByUsername reports whether a user with the given username exists.
	ExistsByUsername(ctx context.Context, q DBExecutor, username string) (bool, error)
	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, q DBExecutor, email string) (bool, error)
	// UpdateLastLogin stamps the user's last successful login time.
	UpdateLastLogin(ctx context.Context, q DBExecutor, userID int64, at time.Time) error
}
