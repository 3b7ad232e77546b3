package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrItemNotOwned = fmt.Errorf("item not found in inventory")

// OwnedItem is one item instance in a user's inventory, joined with its
// catalog entry for display.
type OwnedItem struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ItemID     uuid.UUID
	IsEquipped bool
	Location   *string
	SlotID     *int
	AcquiredAt time.Time
	Name       string
	ImageURL   string
	Category   string
	SlotType   string
}

// Repository defines inventory persistence.
type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*OwnedItem, error)

	// GetOwned retrieves an instance only if owned by the given user;
	// ErrItemNotOwned otherwise.
	GetOwned(ctx context.Context, userItemID, userID uuid.UUID) (*OwnedItem, error)

	// UnequipSlot clears whatever currently occupies a slot.
	UnequipSlot(ctx context.Context, userID uuid.UUID, location string, slotID int) error

	// Equip marks an instance equipped in the given slot.
	Equip(ctx context.Context, userItemID uuid.UUID, location string, slotID int) error

	// Unequip clears an instance's equipped state.
	Unequip(ctx context.Context, userItemID, userID uuid.UUID) error
}

// Service manages a user's collected items.
type Service struct {
	repo Repository
}

// NewService creates a new inventory service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all items a user owns.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*OwnedItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Equip places an owned item into a slot, unequipping whatever occupied
// the slot first.
func (s *Service) Equip(ctx context.Context, userID, userItemID uuid.UUID, location string, slotID int) error {
	if _, err := s.repo.GetOwned(ctx, userItemID, userID); err != nil {
		return err
	}

	if err := s.repo.UnequipSlot(ctx, userID, location, slotID); err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	if err := s.repo.Equip(ctx, userItemID, location, slotID); err != nil {
		return fmt.Errorf("failed to equip item: %w", err)
	}
	return nil
}

// Unequip removes an owned item from its slot.
func (s *Service) Unequip(ctx context.Context, userID, userItemID uuid.UUID) error {
	if err := s.repo.Unequip(ctx, userItemID, userID); err != nil {
		return fmt.Errorf("failed to unequip item: %w", err)
	}
	return nil
}
