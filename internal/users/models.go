package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a player account. Accounts are created implicitly the first
// time a username appears on the comment channel.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Balance      int64
	CreatedAt    time.Time
}
