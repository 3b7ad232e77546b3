package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/pkg/auth"
)

var (
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserExists         = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
)

const generatedPasswordLength = 8

// Service manages player accounts.
type Service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureAccount returns the account for a username, creating it with a
// random password on first contact. The raw password is returned only
// when an account was created, so the caller can hand it to the user out
// of band; it is never stored or recoverable afterwards.
func (s *Service) EnsureAccount(ctx context.Context, username string) (*User, string, error) {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return existing, "", nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	passwordRaw, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate password: %w", err)
	}
	passwordHash, err := auth.HashPassword(passwordRaw)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      0,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a creation race with a concurrent comment from the same
		// username; the other writer's account wins.
		if errors.Is(err, ErrUserExists) {
			existing, ferr := s.repo.FindByUsername(ctx, username)
			if ferr != nil {
				return nil, "", fmt.Errorf("failed to look up user after create race: %w", ferr)
			}
			return existing, "", nil
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	return user, passwordRaw, nil
}

// Authenticate validates a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID retrieves a user account.
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// GetByUsername retrieves a user account by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, username)
}
