package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/economy"
	"github.com/hammerfall-games/hammerfall/pkg/database"
)

var (
	ErrListingNotFound   = fmt.Errorf("listing not found or not active")
	ErrNotOwner          = fmt.Errorf("user does not own this item")
	ErrOwnListing        = fmt.Errorf("cannot buy your own listing")
	ErrSellerMissingItem = fmt.Errorf("seller no longer has the item")
)

// Service manages fixed-price item listings.
type Service struct {
	txManager database.TransactionManager
	repo      Repository
	ledger    Ledger
}

// NewService creates a new marketplace service
func NewService(txManager database.TransactionManager, repo Repository, ledger Ledger) *Service {
	return &Service{
		txManager: txManager,
		repo:      repo,
		ledger:    ledger,
	}
}

// CreateListing offers one of the seller's item instances for sale.
func (s *Service) CreateListing(ctx context.Context, sellerID, itemID uuid.UUID, price int64) (*Listing, error) {
	if price <= 0 {
		return nil, fmt.Errorf("listing price must be positive")
	}

	owned, err := s.repo.CountOwned(ctx, sellerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ownership: %w", err)
	}
	if owned == 0 {
		return nil, ErrNotOwner
	}

	listing := &Listing{
		ID:        uuid.New(),
		SellerID:  sellerID,
		ItemID:    itemID,
		Price:     price,
		Status:    ListingStatusActive,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

// BuyListing purchases a listing: payment, item transfer and the sold
// mark commit in one transaction. The listing row lock prevents two
// buyers from purchasing it concurrently.
func (s *Service) BuyListing(ctx context.Context, buyerID, listingID uuid.UUID) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	listing, err := s.repo.GetListingForUpdate(ctx, tx, listingID)
	if err != nil {
		return err
	}
	if listing.Status != ListingStatusActive {
		return ErrListingNotFound
	}
	if listing.SellerID == buyerID {
		return ErrOwnListing
	}

	if err := s.ledger.TransferTx(ctx, tx, buyerID, listing.SellerID, listing.Price, economy.TxTypeBuyItem); err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			return economy.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to transfer funds: %w", err)
	}

	instanceID, err := s.repo.FindOwnedInstanceForUpdate(ctx, tx, listing.SellerID, listing.ItemID)
	if err != nil {
		return err
	}

	if err := s.repo.TransferInstance(ctx, tx, instanceID, buyerID); err != nil {
		return fmt.Errorf("failed to transfer item: %w", err)
	}
	if err := s.repo.MarkSold(ctx, tx, listingID); err != nil {
		return fmt.Errorf("failed to mark listing sold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit purchase: %w", err)
	}
	return nil
}
