package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/items"
)

// PostgresItemRepository implements items.Repository using pgx
type PostgresItemRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresItemRepository creates a new PostgreSQL item repository
func NewPostgresItemRepository(pool *pgxpool.Pool) *PostgresItemRepository {
	return &PostgresItemRepository{pool: pool}
}

// CreateItem inserts a catalog entry
func (r *PostgresItemRepository) CreateItem(ctx context.Context, item *items.Item) error {
	query := `
		INSERT INTO items (id, name, description, image_url, rarity, base_price, category, slot_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.ImageURL,
		item.Rarity,
		item.BasePrice,
		item.Category,
		item.SlotType,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItemByID retrieves a catalog entry
func (r *PostgresItemRepository) GetItemByID(ctx context.Context, itemID uuid.UUID) (*items.Item, error) {
	query := `
		SELECT id, name, description, image_url, rarity, base_price, category, slot_type, created_at
		FROM items
		WHERE id = $1
	`
	var item items.Item
	err := r.pool.QueryRow(ctx, query, itemID).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.ImageURL,
		&item.Rarity,
		&item.BasePrice,
		&item.Category,
		&item.SlotType,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, items.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListWithActiveAuctions returns the catalog annotated with running auctions
func (r *PostgresItemRepository) ListWithActiveAuctions(ctx context.Context) ([]*items.ItemWithAuction, error) {
	query := `
		SELECT i.id, i.name, i.description, i.image_url, i.rarity, i.base_price, i.category, i.slot_type, i.created_at,
		       a.id AS active_auction_id
		FROM items i
		LEFT JOIN auctions a ON i.id = a.item_id AND a.status = 'active'
		ORDER BY i.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var result []*items.ItemWithAuction
	for rows.Next() {
		var it items.ItemWithAuction
		if err := rows.Scan(
			&it.ID,
			&it.Name,
			&it.Description,
			&it.ImageURL,
			&it.Rarity,
			&it.BasePrice,
			&it.Category,
			&it.SlotType,
			&it.CreatedAt,
			&it.ActiveAuctionID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		result = append(result, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return result, nil
}
