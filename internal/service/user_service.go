// internal/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/repository"
	"streamcart-orders/internal/util"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserService defines the interface for account-related business logic.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	// LoadForAuthentication returns the user owning username, or false when
	// there is none or it cannot be loaded.
	LoadForAuthentication(ctx context.Context, username string) (*domain.User, bool)
}

// userService implements the UserService interface.
type userService struct {
	dbExecutor repository.DBExecutor // For non-transactional reads and writes (e.g., *sqlx.DB)
	userRepo   repository.UserRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(
	dbExecutor repository.DBExecutor,
	userRepo repository.UserRepository,
	logger *slog.Logger,
) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		dbExecutor: dbExecutor,
		userRepo:   userRepo,
		logger:     logger.With("component", "user_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new account. The username is checked for conflicts
// before the email, and only the first conflict is reported.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, s.dbExecutor, input.Username)
	if err != nil {
		return nil, fmt.Errorf("register: failed to check username: %w", err)
	}
	if exists {
		return nil, &util.ConflictError{Field: "username", Value: input.Username}
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, s.dbExecutor, input.Email)
	if err != nil {
		return nil, fmt.Errorf("register: failed to check email: %w", err)
	}
	if exists {
		return nil, &util.ConflictError{Field: "email", Value: input.Email}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("register: failed to hash password: %w", err)
	}

	user := domain.NewUser(input.Username, input.Email, hash, input.FirstName, input.LastName)
	if err := s.userRepo.CreateUser(ctx, s.dbExecutor, user); err != nil {
		var conflict *util.ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate verifies credentials. An unknown username and a wrong
// password produce the same error.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username) // stored trimmed by Register
	if username == "" {
		return nil, util.NewValidationError("username", "username is required")
	}
	if password == "" {
		return nil, util.NewValidationError("password", "password is required")
	}

	user, err := s.userRepo.GetUserByUsername(ctx, s.dbExecutor, username)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			auth.ComparePassword(dummyPasswordHash(), password)
			s.logger.InfoContext(ctx, "Login rejected", "username", username)
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: failed to load user: %w", err)
	}

	if !auth.ComparePassword(user.PasswordHash, password) {
		s.logger.InfoContext(ctx, "Login rejected", "username", username)
		return nil, util.ErrInvalidCredentials
	}

	loginAt := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, s.dbExecutor, user.ID, loginAt); err != nil {
		return nil, fmt.Errorf("authenticate: failed to record login: %w", err)
	}
	user.LastLoginAt = &loginAt

	return user, nil
}

func (s *userService) LoadForAuthentication(ctx context.Context, username string) (*domain.User, bool) {
	user, err := s.userRepo.GetUserByUsername(ctx, s.dbExecutor, username)
	if err != nil {
		if !util.IsError(err, util.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to load user for authentication",
				"username", username,
				"error", err,
			)
		}
		return nil, false
	}
	return user, true
}

func validateRegistration(input RegisterInput) error {
	n := utf8.RuneCountInString(input.Username)
	switch {
	case n == 0:
		return util.NewValidationError("username", "username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		return util.NewValidationError("username",
			fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}

	if input.Email == "" {
		return util.NewValidationError("email", "email is required")
	}
	if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		return util.NewValidationError("email", "email must be a valid address")
	}

	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return util.NewValidationError("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if input.FirstName == "" {
		return util.NewValidationError("firstName", "first name is required")
	}
	if input.LastName == "" {
		return util.NewValidationError("lastName", "last name is required")
	}
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash returns a verifier compared against when the username
// does not exist, so both rejection paths pay for one bcrypt comparison.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		hash, err := auth.HashPassword("streamcart-unknown-user")
		if err == nil {
			dummyHash = hash
		}
	})
	return dummyHash
}
