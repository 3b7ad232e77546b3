package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/auction"
	pkgdb "github.com/hammerfall-games/hammerfall/pkg/database"
)

// PostgresAuctionRepository implements auction.Repository using pgx
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool // kept for non-transactional reads
}

// NewPostgresAuctionRepository creates a new PostgreSQL auction repository
func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

// CreateAuction inserts a new active auction row
func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, au *auction.Auction) error {
	query := `
		INSERT INTO auctions (id, item_id, start_time, end_time, current_bid, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		au.ID,
		au.ItemID,
		au.StartTime,
		au.EndTime,
		au.CurrentBid,
		au.Status,
		au.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuctionByID retrieves an auction (non-transactional read)
func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return r.getAuction(ctx, r.pool, auctionID, false)
}

// GetAuctionForUpdate retrieves an auction and locks its row. The status
// read under this lock is the resolution idempotency guard.
func (r *PostgresAuctionRepository) GetAuctionForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auction.Auction, error) {
	return r.getAuction(ctx, tx, auctionID, true)
}

func (r *PostgresAuctionRepository) getAuction(ctx context.Context, db pkgdb.DBTX, auctionID uuid.UUID, forUpdate bool) (*auction.Auction, error) {
	query := `
		SELECT id, item_id, start_time, end_time, current_bid, status, winner_id, created_at
		FROM auctions
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var au auction.Auction
	err := db.QueryRow(ctx, query, auctionID).Scan(
		&au.ID,
		&au.ItemID,
		&au.StartTime,
		&au.EndTime,
		&au.CurrentBid,
		&au.Status,
		&au.WinnerID,
		&au.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auction not found")
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &au, nil
}

// MarkCompleted sets status=completed within a transaction. A nil winner
// leaves winner_id null and current_bid untouched.
func (r *PostgresAuctionRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, winnerID *uuid.UUID, finalBid *int64) error {
	var result pgconn.CommandTag
	var err error
	if winnerID != nil {
		query := `
			UPDATE auctions
			SET status = 'completed', winner_id = $1, current_bid = $2
			WHERE id = $3
		`
		result, err = tx.Exec(ctx, query, winnerID, finalBid, auctionID)
	} else {
		query := `
			UPDATE auctions
			SET status = 'completed'
			WHERE id = $1
		`
		result, err = tx.Exec(ctx, query, auctionID)
	}
	if err != nil {
		return fmt.Errorf("failed to mark auction completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("auction not found")
	}
	return nil
}

// ListExpiredActive returns ids of active auctions past their end time
func (r *PostgresAuctionRepository) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return ids, nil
}

// InsertBid appends one bid audit row
func (r *PostgresAuctionRepository) InsertBid(ctx context.Context, bid *auction.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.UserID,
		bid.Amount,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GrantItem records ownership of an item within a transaction
func (r *PostgresAuctionRepository) GrantItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) error {
	query := `
		INSERT INTO user_items (id, user_id, item_id, acquired_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.Exec(ctx, query, uuid.New(), userID, itemID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to grant item: %w", err)
	}
	return nil
}
