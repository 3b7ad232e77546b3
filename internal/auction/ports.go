package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines durable persistence for auctions and their audit trail.
type Repository interface {
	// CreateAuction inserts a new active auction row.
	CreateAuction(ctx context.Context, au *Auction) error

	// GetAuctionByID retrieves an auction (non-transactional read).
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetAuctionForUpdate retrieves an auction and locks its row.
	// The status check under this lock is the idempotency guard for
	// resolution; must be called within a transaction.
	GetAuctionForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Auction, error)

	// MarkCompleted sets status=completed within a transaction. A nil
	// winner leaves winner_id null and current_bid untouched.
	MarkCompleted(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, winnerID *uuid.UUID, finalBid *int64) error

	// ListExpiredActive returns the ids of auctions still marked active
	// whose end time is at or before the cutoff.
	ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// InsertBid appends one bid audit row.
	InsertBid(ctx context.Context, bid *Bid) error

	// GrantItem records ownership of an item within a transaction.
	GrantItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) error
}

// AdmissionStatus is the verdict of an atomic cache-side bid admission.
type AdmissionStatus int

const (
	AdmissionAccepted AdmissionStatus = iota
	AdmissionNotFound
	AdmissionEnded
	AdmissionTooLow
)

// AdmissionResult carries the verdict plus the maximum the bid was judged
// against (the new maximum when accepted).
type AdmissionResult struct {
	Status     AdmissionStatus
	CurrentMax int64
}

// BidCache is the low-latency working set for active auctions. SubmitBid
// must execute the read-compare-write sequence atomically per auction so
// concurrent bids are admitted in some serial order.
type BidCache interface {
	// Seed creates the cached state for a newly started auction.
	Seed(ctx context.Context, au *Auction) error

	// Info returns the cached metadata, or nil if the auction is not in
	// the cache (never started, or already resolved).
	Info(ctx context.Context, auctionID uuid.UUID) (*CachedAuction, error)

	// TopBid returns the highest cached bid, or nil if none.
	TopBid(ctx context.Context, auctionID uuid.UUID) (*TopBid, error)

	// SubmitBid atomically validates existence, end time and the
	// strictly-greater rule, then records the bid. A bidder's new bid
	// replaces their previous entry.
	SubmitBid(ctx context.Context, auctionID, userID uuid.UUID, amount int64, now time.Time) (AdmissionResult, error)

	// Clear deletes the cached state. Idempotent.
	Clear(ctx context.Context, auctionID uuid.UUID) error
}

// Ledger is the economy collaborator the engine settles through. DebitTx
// participates in the engine's own transaction so the balance debit,
// ownership grant and auction close commit or fail together.
type Ledger interface {
	// GetBalance reads a user's balance; advisory at admission time.
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// DebitTx decrements a balance under a row lock and appends a
	// transaction audit row, all within the given transaction. Returns
	// economy.ErrInsufficientFunds if the balance is short.
	DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, txType string) error
}
