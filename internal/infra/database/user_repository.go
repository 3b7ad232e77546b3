package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/users"
)

// Postgres unique_violation
const pgUniqueViolation = "23505"

// PostgresUserRepository implements users.Repository using pgx
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *users.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Balance,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return users.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByUsername retrieves a user by username
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.find(ctx, `SELECT id, username, password_hash, balance, created_at FROM users WHERE username = $1`, username)
}

// FindByID retrieves a user by id
func (r *PostgresUserRepository) FindByID(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	return r.find(ctx, `SELECT id, username, password_hash, balance, created_at FROM users WHERE id = $1`, userID)
}

func (r *PostgresUserRepository) find(ctx context.Context, query string, arg any) (*users.User, error) {
	var user users.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Balance,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
