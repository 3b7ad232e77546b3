package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Exchange is the topic exchange all game events are published to.
const Exchange = "auction.events"

// Routing keys
const (
	RoutingKeyAuctionCreated   = "auction.created"
	RoutingKeyBidPlaced        = "bid.placed"
	RoutingKeyAuctionCompleted = "auction.completed"
)

// Publisher publishes serialized events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// AuctionCreated is broadcast when a new auction opens.
type AuctionCreated struct {
	AuctionID     uuid.UUID `json:"auction_id"`
	ItemID        uuid.UUID `json:"item_id"`
	EndTime       time.Time `json:"end_time"`
	StartingPrice int64     `json:"starting_price"`
}

// BidPlaced is broadcast for every accepted bid.
type BidPlaced struct {
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
}

// AuctionCompleted is broadcast once an auction has been resolved.
// WinnerID is nil when the auction closed without a sale.
type AuctionCompleted struct {
	AuctionID uuid.UUID  `json:"auction_id"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"`
	Amount    int64      `json:"amount"`
}
