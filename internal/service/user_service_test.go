// internal/service/user_service_test.go
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret123",
		FirstName: "Alice",
		LastName:  "Liddell",
	}
}

// TestRegister tests the Register method of UserService.
func TestRegister(t *testing.T) {
	t.Run("SuccessfulRegistration", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("ExistsByUsername", ctx, mockExecutor, "alice").Return(false, nil).Once()
		mockUserRepo.On("ExistsByEmail", ctx, mockExecutor, "alice@example.com").Return(false, nil).Once()
		mockUserRepo.On("CreateUser", ctx, mockExecutor, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "alice" &&
				u.PasswordHash != "secret123" &&
				auth.ComparePassword(u.PasswordHash, "secret123")
		})).Run(func(args mock.Arguments) {
			args.Get(2).(*domain.User).ID = 42
		}).Return(nil).Once()

		user, err := svc.Register(ctx, validRegistration())

		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Nil(t, user.LastLoginAt)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("DuplicateUsernameCheckedFirst", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("ExistsByUsername", ctx, mockExecutor, "alice").Return(true, nil).Once()

		user, err := svc.Register(ctx, validRegistration())

		assert.Nil(t, user)
		var conflict *util.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "username", conflict.Field)
		assert.ErrorIs(t, err, util.ErrDuplicateEntry)
		mockUserRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything, mock.Anything)
		mockUserRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("ExistsByUsername", ctx, mockExecutor, "alice").Return(false, nil).Once()
		mockUserRepo.On("ExistsByEmail", ctx, mockExecutor, "alice@example.com").Return(true, nil).Once()

		_, err := svc.Register(ctx, validRegistration())

		var conflict *util.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "email", conflict.Field)
		mockUserRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ConflictOnInsertRace", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("ExistsByUsername", ctx, mockExecutor, "alice").Return(false, nil).Once()
		mockUserRepo.On("ExistsByEmail", ctx, mockExecutor, "alice@example.com").Return(false, nil).Once()
		mockUserRepo.On("CreateUser", ctx, mockExecutor, mock.AnythingOfType("*domain.User")).
			Return(&util.ConflictError{Field: "email", Value: "alice@example.com"}).Once()

		_, err := svc.Register(ctx, validRegistration())

		var conflict *util.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "email", conflict.Field)
	})

	t.Run("RepositoryFailure", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		dbErr := errors.New("connection reset")
		mockUserRepo.On("ExistsByUsername", ctx, mockExecutor, "alice").Return(false, dbErr).Once()

		_, err := svc.Register(ctx, validRegistration())

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, util.ErrDuplicateEntry)
	})

	invalid := []struct {
		name  string
		field string
		edit  func(*RegisterInput)
	}{
		{"ShortUsername", "username", func(in *RegisterInput) { in.Username = "ab" }},
		{"LongUsername", "username", func(in *RegisterInput) { in.Username = string(bytes.Repeat([]byte("a"), 51)) }},
		{"BlankUsername", "username", func(in *RegisterInput) { in.Username = "   " }},
		{"MalformedEmail", "email", func(in *RegisterInput) { in.Email = "alice.example.com" }},
		{"MissingEmail", "email", func(in *RegisterInput) { in.Email = "" }},
		{"ShortPassword", "password", func(in *RegisterInput) { in.Password = "12345" }},
		{"MissingFirstName", "firstName", func(in *RegisterInput) { in.FirstName = " " }},
		{"MissingLastName", "lastName", func(in *RegisterInput) { in.LastName = "" }},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			svc := NewUserService(new(MockDBExecutor), mockUserRepo, discardLogger())

			input := validRegistration()
			tc.edit(&input)
			_, err := svc.Register(context.Background(), input)

			var validationErr *util.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
			mockUserRepo.AssertNotCalled(t, "ExistsByUsername", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// TestAuthenticate tests the Authenticate method of UserService.
func TestAuthenticate(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	stored := func() *domain.User {
		return &domain.User{ID: 7, Username: "alice", Email: "alice@example.com", PasswordHash: hash}
	}

	t.Run("SuccessfulLogin", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "alice").Return(stored(), nil).Once()
		mockUserRepo.On("UpdateLastLogin", ctx, mockExecutor, int64(7), mock.AnythingOfType("time.Time")).Return(nil).Once()

		user, err := svc.Authenticate(ctx, "alice", "secret123")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		require.NotNil(t, user.LastLoginAt)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("UsernameIsTrimmedLikeRegistration", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "alice").Return(stored(), nil).Once()
		mockUserRepo.On("UpdateLastLogin", ctx, mockExecutor, int64(7), mock.AnythingOfType("time.Time")).Return(nil).Once()

		user, err := svc.Authenticate(ctx, " alice ", "secret123")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("UnknownUserAndWrongPasswordAreIndistinguishable", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "ghost").Return(nil, util.ErrNotFound).Once()
		mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "alice").Return(stored(), nil).Once()

		_, unknownErr := svc.Authenticate(ctx, "ghost", "secret123")
		_, wrongErr := svc.Authenticate(ctx, "alice", "not-the-password")

		assert.ErrorIs(t, unknownErr, util.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, util.ErrInvalidCredentials)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
		mockUserRepo.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := NewUserService(new(MockDBExecutor), new(MockUserRepository), discardLogger())

		_, err := svc.Authenticate(context.Background(), "", "secret123")
		assert.ErrorIs(t, err, util.ErrInvalidInput)

		_, err = svc.Authenticate(context.Background(), "alice", "")
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})

	t.Run("StorageFailureIsNotACredentialError", func(t *testing.T) {
		ctx := context.Background()
		mockExecutor := new(MockDBExecutor)
		mockUserRepo := new(MockUserRepository)
		svc := NewUserService(mockExecutor, mockUserRepo, discardLogger())

		dbErr := errors.New("connection refused")
		mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "alice").Return(nil, dbErr).Once()

		_, err := svc.Authenticate(ctx, "alice", "secret123")

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, util.ErrInvalidCredentials)
	})
}

// TestLoadForAuthentication tests the soft lookup used by the middleware.
func TestLoadForAuthentication(t *testing.T) {
	ctx := context.Background()
	mockExecutor := new(MockDBExecutor)
	mockUserRepo := new(MockUserRepository)
	var logs bytes.Buffer
	svc := NewUserService(mockExecutor, mockUserRepo, util.NewLogger(&logs, "debug"))

	mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "alice").Return(&domain.User{Username: "alice"}, nil).Once()
	mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "ghost").Return(nil, util.ErrNotFound).Once()
	mockUserRepo.On("GetUserByUsername", ctx, mockExecutor, "broken").Return(nil, errors.New("timeout")).Once()

	user, ok := svc.LoadForAuthentication(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, "alice", user.Username)

	_, ok = svc.LoadForAuthentication(ctx, "ghost")
	assert.False(t, ok)
	assert.Empty(t, logs.String())

	_, ok = svc.LoadForAuthentication(ctx, "broken")
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "Failed to load user for authentication")
}
