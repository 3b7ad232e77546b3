package users

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines user account persistence.
type Repository interface {
	// Create inserts a new user. Returns ErrUserExists if the username
	// is taken.
	Create(ctx context.Context, user *User) error

	// FindByUsername retrieves a user by username, or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID retrieves a user by id, or ErrUserNotFound.
	FindByID(ctx context.Context, userID uuid.UUID) (*User, error)
}
