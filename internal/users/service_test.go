package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hammerfall-games/hammerfall/pkg/auth"
)

// MockRepository is a mock implementation of Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func TestService_EnsureAccount(t *testing.T) {
	t.Run("returns existing account without a password", func(t *testing.T) {
		repo := &MockRepository{}
		existing := &User{ID: uuid.New(), Username: "viewer42"}
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(existing, nil)

		user, password, err := NewService(repo).EnsureAccount(context.Background(), "viewer42")

		require.NoError(t, err)
		assert.Equal(t, existing, user)
		assert.Empty(t, password)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("creates account with generated credentials on first contact", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(nil, ErrUserNotFound)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*users.User")).Return(nil)

		user, password, err := NewService(repo).EnsureAccount(context.Background(), "viewer42")

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "viewer42", user.Username)
		assert.Equal(t, int64(0), user.Balance)
		assert.Len(t, password, 8)

		// The stored hash must verify against the returned password.
		ok, err := auth.VerifyPassword(user.PasswordHash, password)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("loses the creation race and returns the winner's account", func(t *testing.T) {
		repo := &MockRepository{}
		winner := &User{ID: uuid.New(), Username: "viewer42"}
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(nil, ErrUserNotFound).Once()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*users.User")).Return(ErrUserExists)
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(winner, nil).Once()

		user, password, err := NewService(repo).EnsureAccount(context.Background(), "viewer42")

		require.NoError(t, err)
		assert.Equal(t, winner, user)
		assert.Empty(t, password)
	})
}

func TestService_Authenticate(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	account := &User{ID: uuid.New(), Username: "viewer42", PasswordHash: hash}

	t.Run("valid credentials", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(account, nil)

		user, err := NewService(repo).Authenticate(context.Background(), "viewer42", "hunter22")

		require.NoError(t, err)
		assert.Equal(t, account.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByUsername", mock.Anything, "viewer42").Return(account, nil)

		_, err := NewService(repo).Authenticate(context.Background(), "viewer42", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user maps to the same error", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("FindByUsername", mock.Anything, "ghost").Return(nil, ErrUserNotFound)

		_, err := NewService(repo).Authenticate(context.Background(), "ghost", "hunter22")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
