package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/economy"
)

// PostgresLedgerRepository implements economy.Repository using pgx
type PostgresLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLedgerRepository creates a new PostgreSQL ledger repository
func NewPostgresLedgerRepository(pool *pgxpool.Pool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{pool: pool}
}

// GetBalance reads a balance without locking
func (r *PostgresLedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user not found")
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// GetBalanceForUpdate reads a balance under a row lock
func (r *PostgresLedgerRepository) GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user not found")
		}
		return 0, fmt.Errorf("failed to lock balance: %w", err)
	}
	return balance, nil
}

// ApplyBalanceDelta adds delta (possibly negative) to a balance
func (r *PostgresLedgerRepository) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64) error {
	result, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $1 WHERE id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// InsertTransaction appends one ledger audit row
func (r *PostgresLedgerRepository) InsertTransaction(ctx context.Context, tx pgx.Tx, txn *economy.Transaction) error {
	query := `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		txn.ID,
		txn.FromUserID,
		txn.ToUserID,
		txn.Amount,
		txn.Type,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetEarnStateForUpdate reads daily-reward bookkeeping under a row lock
func (r *PostgresLedgerRepository) GetEarnStateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*economy.EarnState, error) {
	var state economy.EarnState
	err := tx.QueryRow(ctx,
		`SELECT last_earn_date, streak FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&state.LastEarnDate, &state.Streak)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to lock earn state: %w", err)
	}
	return &state, nil
}

// ApplyEarn credits the reward and advances the earn date and streak
func (r *PostgresLedgerRepository) ApplyEarn(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, earnedAt time.Time, streak int) error {
	query := `
		UPDATE users
		SET balance = balance + $1, last_earn_date = $2, streak = $3
		WHERE id = $4
	`
	result, err := tx.Exec(ctx, query, amount, earnedAt, streak, userID)
	if err != nil {
		return fmt.Errorf("failed to apply earn: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
