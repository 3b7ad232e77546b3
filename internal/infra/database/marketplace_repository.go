package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/marketplace"
)

// PostgresMarketplaceRepository implements marketplace.Repository using pgx
type PostgresMarketplaceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMarketplaceRepository creates a new PostgreSQL marketplace repository
func NewPostgresMarketplaceRepository(pool *pgxpool.Pool) *PostgresMarketplaceRepository {
	return &PostgresMarketplaceRepository{pool: pool}
}

// CreateListing inserts a listing
func (r *PostgresMarketplaceRepository) CreateListing(ctx context.Context, listing *marketplace.Listing) error {
	query := `
		INSERT INTO listings (id, seller_id, item_id, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		listing.ID,
		listing.SellerID,
		listing.ItemID,
		listing.Price,
		listing.Status,
		listing.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// GetListingForUpdate retrieves a listing and locks its row
func (r *PostgresMarketplaceRepository) GetListingForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*marketplace.Listing, error) {
	query := `
		SELECT id, seller_id, item_id, price, status, created_at
		FROM listings
		WHERE id = $1
		FOR UPDATE
	`
	var listing marketplace.Listing
	err := tx.QueryRow(ctx, query, listingID).Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.ItemID,
		&listing.Price,
		&listing.Status,
		&listing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketplace.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// MarkSold flips a listing to sold
func (r *PostgresMarketplaceRepository) MarkSold(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) error {
	result, err := tx.Exec(ctx, `UPDATE listings SET status = 'sold' WHERE id = $1`, listingID)
	if err != nil {
		return fmt.Errorf("failed to mark listing sold: %w", err)
	}
	if result.RowsAffected() == 0 {
		return marketplace.ErrListingNotFound
	}
	return nil
}

// CountOwned counts instances of an item a user currently owns
func (r *PostgresMarketplaceRepository) CountOwned(ctx context.Context, userID, itemID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_items WHERE user_id = $1 AND item_id = $2`,
		userID, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owned items: %w", err)
	}
	return count, nil
}

// FindOwnedInstanceForUpdate locks one instance of the item owned by the seller
func (r *PostgresMarketplaceRepository) FindOwnedInstanceForUpdate(ctx context.Context, tx pgx.Tx, ownerID, itemID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT id FROM user_items
		WHERE user_id = $1 AND item_id = $2
		LIMIT 1
		FOR UPDATE
	`
	var id uuid.UUID
	err := tx.QueryRow(ctx, query, ownerID, itemID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, marketplace.ErrSellerMissingItem
		}
		return uuid.Nil, fmt.Errorf("failed to find owned instance: %w", err)
	}
	return id, nil
}

// TransferInstance reassigns an item instance to a new owner
func (r *PostgresMarketplaceRepository) TransferInstance(ctx context.Context, tx pgx.Tx, userItemID, newOwnerID uuid.UUID) error {
	query := `
		UPDATE user_items
		SET user_id = $1, is_equipped = FALSE, location = NULL, slot_id = NULL
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, query, newOwnerID, userItemID)
	if err != nil {
		return fmt.Errorf("failed to transfer item instance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return marketplace.ErrSellerMissingItem
	}
	return nil
}
