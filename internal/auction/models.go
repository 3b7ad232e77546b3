package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status of a durable auction row. An auction is exactly one of these.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Auction is the durable record of one timed sale.
type Auction struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	CurrentBid int64 // denormalized; starting price until completion
	Status     Status
	WinnerID   *uuid.UUID // nil until resolved with a sale
	CreatedAt  time.Time
}

// Bid is an append-only audit record of a single accepted bid.
// The cache, not this table, is the source of truth for resolution.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	CreatedAt time.Time
}

// CachedAuction is the live working-set metadata for one active auction.
// It exists in the cache if and only if the auction is active.
type CachedAuction struct {
	AuctionID     uuid.UUID
	ItemID        uuid.UUID
	EndTime       time.Time
	StartingPrice int64
}

// TopBid is the current highest entry of an auction's cached bid set.
type TopBid struct {
	UserID uuid.UUID
	Amount int64
}

// Outcome classifies how a resolution concluded.
type Outcome string

const (
	// OutcomeWon: funds debited, ownership transferred.
	OutcomeWon Outcome = "won"
	// OutcomeNoBids: closed without any accepted bid.
	OutcomeNoBids Outcome = "no_bids"
	// OutcomeUnderfunded: the winning bidder's balance dropped below their
	// bid before settlement; the auction closes with no winner.
	OutcomeUnderfunded Outcome = "underfunded"
	// OutcomeAlreadyCompleted: a previous resolution already settled this
	// auction; nothing was transferred.
	OutcomeAlreadyCompleted Outcome = "already_completed"
)

// Settlement describes the result of resolving one auction.
type Settlement struct {
	AuctionID uuid.UUID
	Outcome   Outcome
	WinnerID  *uuid.UUID
	Amount    int64
}

// PlaceBidCommand carries one bid request into the engine.
type PlaceBidCommand struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
	Amount    int64
}

// StartAuctionCommand opens a new auction for an item.
type StartAuctionCommand struct {
	ItemID        uuid.UUID
	Duration      time.Duration
	StartingPrice int64
}
