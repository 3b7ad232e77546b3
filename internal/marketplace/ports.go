package marketplace

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines marketplace persistence.
type Repository interface {
	CreateListing(ctx context.Context, listing *Listing) error

	// GetListingForUpdate retrieves a listing and locks its row so two
	// buyers cannot purchase it concurrently.
	GetListingForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*Listing, error)

	MarkSold(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) error

	// CountOwned counts instances of an item a user currently owns.
	CountOwned(ctx context.Context, userID, itemID uuid.UUID) (int, error)

	// FindOwnedInstanceForUpdate locks one instance of the item owned by
	// the seller and returns its id.
	FindOwnedInstanceForUpdate(ctx context.Context, tx pgx.Tx, ownerID, itemID uuid.UUID) (uuid.UUID, error)

	// TransferInstance reassigns an item instance to a new owner.
	TransferInstance(ctx context.Context, tx pgx.Tx, userItemID, newOwnerID uuid.UUID) error
}

// Ledger is the economy collaborator used to settle purchases inside the
// marketplace transaction.
type Ledger interface {
	TransferTx(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID, amount int64, txType string) error
}
