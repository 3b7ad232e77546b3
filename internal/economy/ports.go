package economy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the ledger persistence operations. All mutating
// methods take a transaction; the service decides the boundaries so
// callers (notably auction settlement) can compose them into their own.
type Repository interface {
	// GetBalance reads a balance without locking.
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// GetBalanceForUpdate reads a balance under a row lock, serializing
	// concurrent debits against the same user.
	GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error)

	// ApplyBalanceDelta adds delta (possibly negative) to a balance.
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64) error

	// InsertTransaction appends one ledger audit row.
	InsertTransaction(ctx context.Context, tx pgx.Tx, txn *Transaction) error

	// GetEarnStateForUpdate reads daily-reward bookkeeping under a row lock.
	GetEarnStateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*EarnState, error)

	// ApplyEarn credits the reward and advances the earn date and streak.
	ApplyEarn(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, earnedAt time.Time, streak int) error
}
