package items

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrItemNotFound = fmt.Errorf("item not found")

// Item is a collectible definition. Ownership of instances lives in the
// user_items table; this is the catalog entry.
type Item struct {
	ID          uuid.UUID
	Name        string
	Description string
	ImageURL    string
	Rarity      string
	BasePrice   int64
	Category    string
	SlotType    string
	CreatedAt   time.Time
}

// ItemWithAuction annotates a catalog entry with its running auction, if
// any. Used by the admin listing.
type ItemWithAuction struct {
	Item
	ActiveAuctionID *uuid.UUID
}

// Repository defines item catalog persistence.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItemByID(ctx context.Context, itemID uuid.UUID) (*Item, error)
	ListWithActiveAuctions(ctx context.Context) ([]*ItemWithAuction, error)
}

// CreateItemCommand carries the admin item-creation form.
type CreateItemCommand struct {
	Name        string
	Description string
	ImageURL    string
	Rarity      string
	BasePrice   int64
	Category    string
	SlotType    string
}

// Service manages the item catalog.
type Service struct {
	repo Repository
}

// NewService creates a new item service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateItem adds a new catalog entry.
func (s *Service) CreateItem(ctx context.Context, cmd CreateItemCommand) (*Item, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("item name is required")
	}
	if cmd.BasePrice < 0 {
		return nil, fmt.Errorf("base price must not be negative")
	}

	item := &Item{
		ID:          uuid.New(),
		Name:        cmd.Name,
		Description: cmd.Description,
		ImageURL:    cmd.ImageURL,
		Rarity:      cmd.Rarity,
		BasePrice:   cmd.BasePrice,
		Category:    cmd.Category,
		SlotType:    cmd.SlotType,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

// GetItem retrieves one catalog entry.
func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	return s.repo.GetItemByID(ctx, itemID)
}

// ListWithActiveAuctions returns the catalog annotated with running auctions.
func (s *Service) ListWithActiveAuctions(ctx context.Context) ([]*ItemWithAuction, error) {
	return s.repo.ListWithActiveAuctions(ctx)
}
