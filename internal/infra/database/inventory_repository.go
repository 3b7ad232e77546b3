package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammerfall-games/hammerfall/internal/inventory"
)

// PostgresInventoryRepository implements inventory.Repository using pgx
type PostgresInventoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresInventoryRepository creates a new PostgreSQL inventory repository
func NewPostgresInventoryRepository(pool *pgxpool.Pool) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{pool: pool}
}

// ListByUser returns a user's inventory joined with the item catalog
func (r *PostgresInventoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*inventory.OwnedItem, error) {
	query := `
		SELECT ui.id, ui.user_id, ui.item_id, ui.is_equipped, ui.location, ui.slot_id, ui.acquired_at,
		       i.name, i.image_url, i.category, i.slot_type
		FROM user_items ui
		JOIN items i ON ui.item_id = i.id
		WHERE ui.user_id = $1
		ORDER BY ui.acquired_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var result []*inventory.OwnedItem
	for rows.Next() {
		var it inventory.OwnedItem
		if err := rows.Scan(
			&it.ID,
			&it.UserID,
			&it.ItemID,
			&it.IsEquipped,
			&it.Location,
			&it.SlotID,
			&it.AcquiredAt,
			&it.Name,
			&it.ImageURL,
			&it.Category,
			&it.SlotType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		result = append(result, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}
	return result, nil
}

// GetOwned retrieves an instance only if owned by the given user
func (r *PostgresInventoryRepository) GetOwned(ctx context.Context, userItemID, userID uuid.UUID) (*inventory.OwnedItem, error) {
	query := `
		SELECT ui.id, ui.user_id, ui.item_id, ui.is_equipped, ui.location, ui.slot_id, ui.acquired_at,
		       i.name, i.image_url, i.category, i.slot_type
		FROM user_items ui
		JOIN items i ON ui.item_id = i.id
		WHERE ui.id = $1 AND ui.user_id = $2
	`
	var it inventory.OwnedItem
	err := r.pool.QueryRow(ctx, query, userItemID, userID).Scan(
		&it.ID,
		&it.UserID,
		&it.ItemID,
		&it.IsEquipped,
		&it.Location,
		&it.SlotID,
		&it.AcquiredAt,
		&it.Name,
		&it.ImageURL,
		&it.Category,
		&it.SlotType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrItemNotOwned
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return &it, nil
}

// UnequipSlot clears whatever currently occupies a slot
func (r *PostgresInventoryRepository) UnequipSlot(ctx context.Context, userID uuid.UUID, location string, slotID int) error {
	query := `
		UPDATE user_items
		SET is_equipped = FALSE
		WHERE user_id = $1 AND location = $2 AND slot_id = $3
	`
	if _, err := r.pool.Exec(ctx, query, userID, location, slotID); err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	return nil
}

// Equip marks an instance equipped in the given slot
func (r *PostgresInventoryRepository) Equip(ctx context.Context, userItemID uuid.UUID, location string, slotID int) error {
	query := `
		UPDATE user_items
		SET is_equipped = TRUE, location = $1, slot_id = $2
		WHERE id = $3
	`
	result, err := r.pool.Exec(ctx, query, location, slotID, userItemID)
	if err != nil {
		return fmt.Errorf("failed to equip item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrItemNotOwned
	}
	return nil
}

// Unequip clears an instance's equipped state
func (r *PostgresInventoryRepository) Unequip(ctx context.Context, userItemID, userID uuid.UUID) error {
	query := `
		UPDATE user_items
		SET is_equipped = FALSE, location = NULL, slot_id = NULL
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.pool.Exec(ctx, query, userItemID, userID)
	if err != nil {
		return fmt.Errorf("failed to unequip item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrItemNotOwned
	}
	return nil
}
